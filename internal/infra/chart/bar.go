// Package chart renders a contributor ranking as an HTML bar chart.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Ensure BarRenderer implements domain.ChartRenderer.
var _ domain.ChartRenderer = (*BarRenderer)(nil)

// BarRenderer draws one bar per contributor, in ranking order.
type BarRenderer struct{}

// NewBarRenderer creates a new BarRenderer.
func NewBarRenderer() *BarRenderer {
	return &BarRenderer{}
}

// Render writes a standalone HTML page to w.
func (r *BarRenderer) Render(w io.Writer, title string, ranking []domain.TallyEntry) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			BackgroundColor: "transparent",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d contributors", len(ranking)),
		}),
	)

	logins := make([]string, 0, len(ranking))
	data := make([]opts.BarData, 0, len(ranking))
	for _, e := range ranking {
		logins = append(logins, e.Login)
		data = append(data, opts.BarData{Name: e.Login, Value: e.Count})
	}

	bar.SetXAxis(logins).
		AddSeries("Issues", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: true, Position: "top"}),
		)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
