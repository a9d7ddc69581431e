// pkg/taint/sanitizer.go
package taint

// SanitizerKind names a class of sanitizing operation. Each kind has a
// canonical level-reduction rule in ApplySanitizer.
type SanitizerKind string

const (
	HTMLEscape      SanitizerKind = "HTML_ESCAPE"
	SQLEscape       SanitizerKind = "SQL_ESCAPE"
	InputValidation SanitizerKind = "INPUT_VALIDATION"
	TypeConversion  SanitizerKind = "TYPE_CONVERSION"
	StringSanitize  SanitizerKind = "STRING_SANITIZE"
	JSONParse       SanitizerKind = "JSON_PARSE"
	CryptoHash      SanitizerKind = "CRYPTO_HASH"
)

// Sanitizer models a sanitizing operation with a configurable
// effectiveness ratio instead of an all-or-nothing flag. A library
// known to miss edge cases gets a ratio below 1.0 and reduces taint
// only partially.
type Sanitizer struct {
	Kind          SanitizerKind
	Effectiveness float64
}

// NewSanitizer returns a sanitizer at full effectiveness.
func NewSanitizer(kind SanitizerKind) Sanitizer {
	return Sanitizer{Kind: kind, Effectiveness: 1.0}
}

// NewSanitizerWithEffectiveness returns a sanitizer with the ratio
// clamped into [0,1].
func NewSanitizerWithEffectiveness(kind SanitizerKind, effectiveness float64) Sanitizer {
	return Sanitizer{Kind: kind, Effectiveness: clampRatio(effectiveness)}
}

// Sanitize returns a new value whose level reflects this sanitizer
// applied to v. The input is never mutated and the result level is
// never higher than the input level. Transforming the payload itself
// is the caller's responsibility; the engine tracks only the level.
func (s Sanitizer) Sanitize(v Value) Value {
	level := ApplySanitizer(v.Level, s.Kind, s.Effectiveness)
	if IsBottom(level) && v.IsTainted() {
		// Fully cleaned values report as Sanitized so a reader can tell
		// "was never tainted" from "was cleaned".
		level = Sanitized
	}
	out := v.withStep(level, v.Source, TraceStep{
		Kind:        StepSanitize,
		Description: string(s.Kind),
		InputLevel:  v.Level,
		OutputLevel: level,
	})
	out.Meta.Sanitizers = appendMissingStrings(out.Meta.Sanitizers, []string{string(s.Kind)})
	return out
}
