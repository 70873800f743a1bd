// Package charts renders the analytics output as PNG artifacts for the
// messaging UI. It is presentation only: nothing here touches the store.
package charts

import (
	"bytes"
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/mkowalcze/creditledger/internal/models"
)

const (
	chartWidth  = 1000
	chartHeight = 600
)

// BalanceHistoryPNG draws the balance-over-time line. Fewer than two
// samples cannot form a line; that is "not enough data", not a fault, and
// yields a nil image.
func BalanceHistoryPNG(points []models.BalancePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, nil
	}

	series := chart.TimeSeries{
		Name:    "Credit balance",
		XValues: make([]time.Time, 0, len(points)),
		YValues: make([]float64, 0, len(points)),
	}
	for _, p := range points {
		series.XValues = append(series.XValues, p.At)
		series.YValues = append(series.YValues, float64(p.Balance))
	}

	graph := chart.Chart{
		Title:  "Credit balance history",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("can't render balance chart. Err: %w", err)
	}

	return buf.Bytes(), nil
}

// UsageBreakdownPNG draws the per-category spend pie. Empty usage yields a
// nil image.
func UsageBreakdownPNG(usage []models.CategoryUsage) ([]byte, error) {
	if len(usage) == 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, len(usage))
	for _, u := range usage {
		if u.Amount <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: u.Label,
			Value: float64(u.Amount),
		})
	}
	if len(values) == 0 {
		return nil, nil
	}

	graph := chart.PieChart{
		Title:  "Credit usage by category",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("can't render breakdown chart. Err: %w", err)
	}

	return buf.Bytes(), nil
}
