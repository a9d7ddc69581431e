// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/sasakama-code/taintcore/pkg/taint"
)

// Finding is one reportable violation, in the shape the surrounding
// quality-evaluation pipeline consumes: pattern id, severity, location.
type Finding struct {
	ID        string `json:"id"`
	PatternID string `json:"pattern_id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Location  string `json:"location"`
	Source    string `json:"source,omitempty"`
	Sink      string `json:"sink"`
}

// QualityGap is a missing-sanitizer-coverage observation.
type QualityGap struct {
	Description string `json:"description"`
	Location    string `json:"location"`
}

// Envelope is the complete report for one analyzed fragment.
type Envelope struct {
	Tool         string             `json:"tool"`
	Version      string             `json:"version"`
	Target       string             `json:"target"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Inconclusive bool               `json:"inconclusive"`
	Sources      []taint.Occurrence `json:"sources"`
	Sanitizers   []taint.Occurrence `json:"sanitizers"`
	Flows        []taint.Flow       `json:"flows"`
	Findings     []Finding          `json:"findings"`
	Gaps         []QualityGap       `json:"gaps,omitempty"`
}

// BuildEnvelope maps an analyzer result onto the report shape.
func BuildEnvelope(target, version string, res taint.Result) *Envelope {
	env := &Envelope{
		Tool:         "taintcore",
		Version:      version,
		Target:       target,
		GeneratedAt:  time.Now().UTC(),
		Inconclusive: res.Inconclusive,
		Sources:      res.Sources,
		Sanitizers:   res.Sanitizers,
		Flows:        res.Flows,
	}
	for _, v := range res.Violations {
		env.Findings = append(env.Findings, Finding{
			ID:        v.ID,
			PatternID: v.Kind,
			Severity:  string(v.Severity),
			Message:   v.Message,
			Location:  v.Location.String(),
			Source:    string(v.Source),
			Sink:      string(v.Sink),
		})
	}
	for _, g := range res.Gaps {
		env.Gaps = append(env.Gaps, QualityGap{
			Description: g.Description,
			Location:    g.Location.String(),
		})
	}
	return env
}

// Reporter writes report envelopes to an output.
type Reporter interface {
	// Write processes a single report envelope.
	Write(env *Envelope) error
	// Close finalizes the report and releases any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format and output path. An empty
// path or "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdout := outputPath == "" || outputPath == "stdout"

	if isStdout {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json", "":
		return newJSONReporter(writer), nil
	default:
		if !isStdout {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// jsonReporter streams indented JSON envelopes.
type jsonReporter struct {
	out io.WriteCloser
}

func newJSONReporter(out io.WriteCloser) *jsonReporter {
	return &jsonReporter{out: out}
}

func (r *jsonReporter) Write(env *Envelope) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.out.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.out.Close()
}
