package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/seqscan/internal/seqscan"
)

// Class colours for the trajectory plot.
var classColors = map[string]color.RGBA{
	seqscan.TypeCluster:    {R: 31, G: 119, B: 180, A: 255}, // blue
	seqscan.TypeExcursion:  {R: 255, G: 127, B: 14, A: 255}, // orange
	seqscan.TypeTransition: {R: 44, G: 160, B: 44, A: 255},  // green
	seqscan.TypeNoise:      {R: 127, G: 127, B: 127, A: 255},
}

// SaveTrajectoryPlot renders the classified trajectory as a PNG: the raw
// path as a thin line, one scatter series per classification type and the
// stop centroids as larger red markers.
func SaveTrajectoryPlot(path string, res *seqscan.Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("SeqScan trajectory %s", res.TagID)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	// Raw path in scan order.
	pathPts := make(plotter.XYs, 0, len(res.Classifications))
	for _, row := range res.Classifications {
		pathPts = append(pathPts, plotter.XY{X: row.X, Y: row.Y})
	}
	if len(pathPts) > 1 {
		line, err := plotter.NewLine(pathPts)
		if err != nil {
			return fmt.Errorf("build path line: %w", err)
		}
		line.Width = vg.Points(0.5)
		line.Color = color.RGBA{R: 200, G: 200, B: 200, A: 255}
		p.Add(line)
	}

	// One series per classification type, in a fixed order for a stable
	// legend.
	for _, class := range []string{seqscan.TypeCluster, seqscan.TypeExcursion, seqscan.TypeTransition, seqscan.TypeNoise} {
		pts := make(plotter.XYs, 0)
		for _, row := range res.Classifications {
			if row.Type == class {
				pts = append(pts, plotter.XY{X: row.X, Y: row.Y})
			}
		}
		if len(pts) == 0 {
			continue
		}

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("build %s scatter: %w", class, err)
		}
		scatter.GlyphStyle.Color = classColors[class]
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(class, scatter)
	}

	// Stop centroids.
	if len(res.Stops) > 0 {
		centroids := make(plotter.XYs, 0, len(res.Stops))
		for _, s := range res.Stops {
			centroids = append(centroids, plotter.XY{X: s.CentroidX, Y: s.CentroidY})
		}
		scatter, err := plotter.NewScatter(centroids)
		if err != nil {
			return fmt.Errorf("build centroid scatter: %w", err)
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("centroids", scatter)
	}

	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}
