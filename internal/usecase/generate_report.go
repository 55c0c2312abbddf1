package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/issue-tally/internal/domain"
)

// GenerateReportInput contains the parameters for a report run.
type GenerateReportInput struct {
	Filter domain.SearchFilter
	Mode   domain.Mode
}

// GenerateReportOutput contains the finished report and the raw responses.
type GenerateReportOutput struct {
	Report    *domain.Report
	Envelopes []*domain.Envelope
}

// GenerateReport is the use case that collects issues and aggregates them.
type GenerateReport struct {
	collect *CollectIssues
	sink    domain.EnvelopeSink
}

// NewGenerateReport creates a new GenerateReport use case.
// sink may be nil when raw responses are not kept.
func NewGenerateReport(collect *CollectIssues, sink domain.EnvelopeSink) *GenerateReport {
	return &GenerateReport{
		collect: collect,
		sink:    sink,
	}
}

// Execute runs the search, tallies every page as it arrives and returns the report.
// Raw responses reach the sink only after the last page was aggregated.
func (uc *GenerateReport) Execute(ctx context.Context, in GenerateReportInput) (*GenerateReportOutput, error) {
	agg, err := domain.NewAggregator(in.Mode)
	if err != nil {
		return nil, err
	}

	collected, err := uc.collect.Execute(ctx, CollectIssuesInput{
		Filter: in.Filter,
		OnPage: agg.AddPage,
	})
	if err != nil {
		return nil, err
	}

	tally, summary := agg.Finalize()
	report := &domain.Report{
		Ranking: tally.Ranked(),
		Summary: summary,
		// Since-date listings are unnumbered.
		Numbered: in.Filter.HasLabel(),
	}

	if uc.sink != nil {
		if err := uc.sink.Save(collected.Envelopes); err != nil {
			return nil, fmt.Errorf("save raw output: %w", err)
		}
	}

	return &GenerateReportOutput{
		Report:    report,
		Envelopes: collected.Envelopes,
	}, nil
}
