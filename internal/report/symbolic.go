// Package report renders scan results for human consumption: an HTML
// symbolic report built with go-echarts and a trajectory plot rendered
// with gonum/plot.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/seqscan/internal/seqscan"
)

// RenderSymbolic writes a self-contained HTML report of the discovered
// stops: their centroids in space and their durations on a shared page.
func RenderSymbolic(w io.Writer, res *seqscan.Result) error {
	page := components.NewPage()
	page.PageTitle = "SeqScan symbolic report"
	page.AddCharts(stopScatter(res), stopDurations(res))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render symbolic report: %w", err)
	}
	return nil
}

// stopScatter places the stop centroids, sized by membership and labelled
// by stop id.
func stopScatter(res *seqscan.Result) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Stop centroids",
			Subtitle: fmt.Sprintf("tag=%s stops=%d", res.TagID, len(res.Stops)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y"}),
	)

	data := make([]opts.ScatterData, 0, len(res.Stops))
	for i, s := range res.Stops {
		size := 10
		if i < len(res.Clusters) {
			if n := res.Clusters[i].Size(); n > 10 {
				size = min(n, 40)
			}
		}
		data = append(data, opts.ScatterData{
			Name:       s.StopID,
			Value:      []interface{}{s.CentroidX, s.CentroidY},
			SymbolSize: size,
		})
	}
	scatter.AddSeries("stops", data)
	return scatter
}

// stopDurations charts how long the object resided at each stop.
func stopDurations(res *seqscan.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Stop durations"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)

	labels := make([]string, 0, len(res.Stops))
	values := make([]opts.BarData, 0, len(res.Stops))
	for _, s := range res.Stops {
		labels = append(labels, s.StopID)
		values = append(values, opts.BarData{Value: s.End.Sub(s.Start).Seconds()})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("duration", values)
	return bar
}
