// Package report renders a finished tally as text, YAML or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Ensure Writer implements domain.ReportWriter.
var _ domain.ReportWriter = (*Writer)(nil)

// Writer renders reports.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// document is the structured form of a report.
type document struct {
	Mode    domain.Mode         `json:"mode" yaml:"mode"`
	Ranking []domain.TallyEntry `json:"ranking" yaml:"ranking"`
	Summary summary             `json:"summary" yaml:"summary"`
}

type summary struct {
	domain.Summary `yaml:",inline"`
	Percentage     *float64 `json:"percentage" yaml:"percentage"`
}

// Write renders r to w in the given format.
func (wr *Writer) Write(w io.Writer, r *domain.Report, format domain.Format) error {
	switch format {
	case domain.FormatText, "":
		return writeText(w, r)
	case domain.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(r)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case domain.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newDocument(r)); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidFormat, format)
	}
}

func newDocument(r *domain.Report) document {
	ranking := r.Ranking
	if ranking == nil {
		ranking = []domain.TallyEntry{}
	}
	doc := document{
		Mode:    r.Summary.Mode,
		Ranking: ranking,
		Summary: summary{Summary: r.Summary},
	}
	if pct, ok := r.Summary.Percentage(); ok {
		doc.Summary.Percentage = &pct
	}
	return doc
}

func writeText(w io.Writer, r *domain.Report) error {
	for _, e := range r.Ranking {
		var err error
		if r.Numbered {
			_, err = fmt.Fprintf(w, "%d. %s: %d\n", e.Rank, e.Login, e.Count)
		} else {
			_, err = fmt.Fprintf(w, "%s: %d\n", e.Login, e.Count)
		}
		if err != nil {
			return err
		}
	}

	bold := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	_, err := fmt.Fprintln(w, bold.Render(SummaryLine(r.Summary)))
	return err
}

// SummaryLine formats the closing line of a text report.
func SummaryLine(s domain.Summary) string {
	pct := "n/a"
	if p, ok := s.Percentage(); ok {
		pct = strconv.FormatFloat(p, 'f', -1, 64) + "%"
	}
	if s.Mode == domain.ModeAssignment {
		return fmt.Sprintf("Total number of assigned issues %d out of %d open issues, %s", s.Assigned, s.Open, pct)
	}
	return fmt.Sprintf("Issues closed %d out of %d, %s", s.Closed, s.Total, pct)
}
