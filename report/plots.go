package report

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mhartwell/clinimetrics/metrics"
)

const plotSize = 6 * vg.Inch

// SaveROCCurve renders the ROC curve of one split as a PNG, with a dashed
// diagonal marking the random classifier.
func SaveROCCurve(fs afero.Fs, m LabelsAndPredictions, title, path string) error {
	points := metrics.ROCCurve(m.Labels, m.ModelOutputs)
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.FPR, Y: pt.TPR}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	setUnitSquare(p)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "building ROC line")
	}
	diagonal, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "building reference line")
	}
	diagonal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(plotter.NewGrid(), line, diagonal)

	return savePNG(fs, p, path)
}

// SavePRCurve renders the precision-recall curve of one split as a PNG.
func SavePRCurve(fs afero.Fs, m LabelsAndPredictions, title, path string) error {
	points := metrics.PRCurve(m.Labels, m.ModelOutputs)
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.Recall, Y: pt.Precision}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"
	setUnitSquare(p)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "building PR line")
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(plotter.NewGrid(), line)

	return savePNG(fs, p, path)
}

func setUnitSquare(p *plot.Plot) {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
}

func savePNG(fs afero.Fs, p *plot.Plot, path string) error {
	wt, err := p.WriterTo(plotSize, plotSize, "png")
	if err != nil {
		return errors.Wrapf(err, "rendering plot %s", path)
	}
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating plot file %s", path)
	}
	defer f.Close()
	if _, err := wt.WriteTo(f); err != nil {
		return errors.Wrapf(err, "writing plot file %s", path)
	}
	return nil
}
