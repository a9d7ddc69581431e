// pkg/taint/lattice.go
package taint

// Level is one rung of the taint lattice. The ordering is total and runs
// from Untainted (bottom) to HighlyTainted (top); Sanitized is a
// reporting-only alias that shares the bottom rank.
type Level string

const (
	Untainted       Level = "UNTAINTED"
	Sanitized       Level = "SANITIZED"
	Unknown         Level = "UNKNOWN"
	PossiblyTainted Level = "POSSIBLY_TAINTED"
	Tainted         Level = "TAINTED"
	HighlyTainted   Level = "HIGHLY_TAINTED"
)

// levelHeights ranks every level. Unknown sits above bottom on purpose:
// a failed inference is never treated as safe.
var levelHeights = map[Level]int{
	Untainted:       0,
	Sanitized:       0,
	Unknown:         1,
	PossiblyTainted: 2,
	Tainted:         3,
	HighlyTainted:   4,
}

// levelAtHeight maps a rank back to its canonical level. Sanitized never
// appears here; rank arithmetic always lands on Untainted at the bottom.
var levelAtHeight = [...]Level{Untainted, Unknown, PossiblyTainted, Tainted, HighlyTainted}

// legacyLevelNames maps the older four-level naming onto the canonical
// lattice. The reference material carried both families; callers holding
// the legacy strings parse in without a shim.
var legacyLevelNames = map[string]Level{
	"LIKELY_TAINTED":     Tainted,
	"DEFINITELY_TAINTED": Tainted,
	"CLEAN":              Untainted,
	"SUSPICIOUS":         PossiblyTainted,
}

// Height returns the rank of a level. Unrecognized input ranks as
// Unknown (1) rather than failing; the lattice must stay callable on
// whatever a best-effort analysis hands it.
func Height(l Level) int {
	if h, ok := levelHeights[l]; ok {
		return h
	}
	return levelHeights[Unknown]
}

// normalize collapses the Sanitized alias onto Untainted so ordering
// operations work over canonical ranks only.
func normalize(l Level) Level {
	if l == Sanitized {
		return Untainted
	}
	if _, ok := levelHeights[l]; !ok {
		return Unknown
	}
	return l
}

// Join returns the least upper bound of two levels. Combining two values
// can never produce something safer than either operand.
func Join(a, b Level) Level {
	if Height(b) > Height(a) {
		return normalize(b)
	}
	return normalize(a)
}

// Meet returns the greatest lower bound of two levels.
func Meet(a, b Level) Level {
	if Height(b) < Height(a) {
		return normalize(b)
	}
	return normalize(a)
}

// LessOrEqual reports whether a is at most as tainted as b. Because the
// lattice is totally ordered this is plain rank comparison, and it forms
// a valid partial order: reflexive, antisymmetric, transitive.
func LessOrEqual(a, b Level) bool {
	return Height(a) <= Height(b)
}

// IsBottom reports whether the level carries no taint at all.
func IsBottom(l Level) bool { return Height(l) == 0 }

// IsTop reports whether the level is the lattice maximum.
func IsTop(l Level) bool { return normalize(l) == HighlyTainted }

// ParseLevel resolves a level name from either naming family. The
// boolean is false for unrecognized input, which still maps to Unknown
// so the caller can proceed defensively.
func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	if _, ok := levelHeights[l]; ok {
		return l, true
	}
	if mapped, ok := legacyLevelNames[s]; ok {
		return mapped, true
	}
	return Unknown, false
}

// String returns the fixed diagnostic name of a level. Diagnostic only;
// ordering always goes through Height.
func (l Level) String() string {
	if _, ok := levelHeights[l]; ok {
		return string(l)
	}
	return string(Unknown)
}

// reduceRanks lowers a level by n ranks, flooring at Untainted.
func reduceRanks(l Level, n int) Level {
	h := Height(l) - n
	if h < 0 {
		h = 0
	}
	return levelAtHeight[h]
}

// ApplySanitizer computes the level remaining after a sanitizer of the
// given kind runs at the given effectiveness. Effectiveness is clamped
// to [0,1]. The reduction is deterministic, floors at Untainted, and is
// never level-increasing. An unrecognized kind is the identity: safety
// is never assumed from a sanitizer we do not understand.
func ApplySanitizer(l Level, kind SanitizerKind, effectiveness float64) Level {
	e := clampRatio(effectiveness)
	l = normalize(l)

	switch kind {
	case HTMLEscape, SQLEscape:
		// Escaping removes the dangerous characters entirely when done
		// well; a half-hearted escape still strips some vectors.
		switch {
		case e >= 0.8:
			return Untainted
		case e >= 0.5:
			return reduceRanks(l, 1)
		default:
			return l
		}
	case InputValidation, TypeConversion:
		// Validation and forced conversion constrain the value space
		// rather than rewriting it, so a strong pass drops two ranks.
		switch {
		case e >= 0.8:
			return reduceRanks(l, 2)
		case e >= 0.25:
			return reduceRanks(l, 1)
		default:
			return l
		}
	case StringSanitize:
		if e >= 0.5 {
			return reduceRanks(l, 1)
		}
		return l
	case JSONParse:
		// Parse-don't-validate: a successful strict parse proves shape.
		switch {
		case e >= 0.8:
			return Untainted
		case e >= 0.5:
			return reduceRanks(l, 1)
		default:
			return l
		}
	case CryptoHash:
		// A digest carries no attacker-chosen bytes forward.
		if e >= 0.5 {
			return Untainted
		}
		return l
	default:
		return l
	}
}

// clampRatio pins a ratio into [0,1]. NaN clamps to 0.
func clampRatio(r float64) float64 {
	if r != r || r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
