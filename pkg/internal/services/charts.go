package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/metrics"
	"github.com/samber/lo"
	"github.com/wcharczuk/go-chart/v2"
)

// ChartRenderer draws choice question results. Rendering is CPU bound, so
// only a fixed number of renders run at once.
type ChartRenderer struct {
	slots chan struct{}
}

func NewChartRenderer(workers int) *ChartRenderer {
	return &ChartRenderer{slots: make(chan struct{}, max(workers, 1))}
}

type Charts struct {
	Pie []byte
	Bar []byte
}

// Render draws a pie and a bar chart of the counts. Counts without any
// answer cannot be drawn. When only the bar chart fails, the pie is still
// returned alongside the error.
func (r *ChartRenderer) Render(ctx context.Context, title string, counts []OptionCount) (Charts, error) {
	var out Charts
	if lo.SumBy(counts, func(item OptionCount) int { return item.Count }) == 0 {
		return out, fmt.Errorf("no answers to chart")
	}

	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return out, ctx.Err()
	}
	defer func() { <-r.slots }()

	start := time.Now()
	defer func() {
		metrics.ChartRenderSeconds.Observe(time.Since(start).Seconds())
	}()

	pie := chart.PieChart{
		Title:  title,
		Width:  512,
		Height: 512,
		Values: lo.FilterMap(counts, func(item OptionCount, _ int) (chart.Value, bool) {
			return chart.Value{Label: item.Label, Value: float64(item.Count)}, item.Count > 0
		}),
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return out, fmt.Errorf("render pie chart: %w", err)
	}
	out.Pie = append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	highest := lo.MaxBy(counts, func(a, b OptionCount) bool { return a.Count > b.Count }).Count
	bar := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Width:    1024,
		Height:   512,
		BarWidth: max(8, min(60, 800/len(counts))),
		// go-chart refuses a zero height range, e.g. when every count is equal.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(highest)},
		},
		Bars: lo.Map(counts, func(item OptionCount, _ int) chart.Value {
			return chart.Value{Label: item.Label, Value: float64(item.Count)}
		}),
	}
	if err := bar.Render(chart.PNG, &buf); err != nil {
		return out, fmt.Errorf("render bar chart: %w", err)
	}
	out.Bar = append([]byte(nil), buf.Bytes()...)

	return out, nil
}
