// Package report renders comparison scores as charts.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
)

// ErrNoScores is returned when there is nothing to chart.
var ErrNoScores = errors.New("report: no scores to chart")

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var (
	frameColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	secondColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// newScorePlot plots frame scores and per-second means against time in
// seconds. Each second's mean is drawn at the middle of its second.
func newScorePlot(title string, art similarity.ScoreArtifact, fps int) (*plot.Plot, error) {
	if len(art.FrameScores) == 0 {
		return nil, ErrNoScores
	}
	if fps <= 0 {
		return nil, fmt.Errorf("report: fps must be positive, got %d", fps)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Score"
	p.Add(plotter.NewGrid())

	framePts := make(plotter.XYs, len(art.FrameScores))
	for i, s := range art.FrameScores {
		framePts[i] = plotter.XY{X: float64(i) / float64(fps), Y: s}
	}
	frameLine, err := plotter.NewLine(framePts)
	if err != nil {
		return nil, fmt.Errorf("frame line: %w", err)
	}
	frameLine.Color = frameColor
	frameLine.Width = vg.Points(1)
	p.Add(frameLine)
	p.Legend.Add("frame", frameLine)

	if len(art.SecondScores) > 0 {
		secondPts := make(plotter.XYs, len(art.SecondScores))
		for i, s := range art.SecondScores {
			secondPts[i] = plotter.XY{X: float64(i) + 0.5, Y: s}
		}
		secondLine, secondMarks, err := plotter.NewLinePoints(secondPts)
		if err != nil {
			return nil, fmt.Errorf("second line: %w", err)
		}
		secondLine.Color = secondColor
		secondLine.Width = vg.Points(2)
		secondMarks.Color = secondColor
		p.Add(secondLine, secondMarks)
		p.Legend.Add("per second", secondLine, secondMarks)
	}

	p.Legend.Top = true
	return p, nil
}

// SaveScoreChart writes the score chart to path. The image format follows
// the file extension (png, svg, pdf, ...).
func SaveScoreChart(path, title string, art similarity.ScoreArtifact, fps int) error {
	p, err := newScorePlot(title, art, fps)
	if err != nil {
		return err
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// WriteScoreChartPNG writes the score chart as a PNG image to w.
func WriteScoreChartPNG(w io.Writer, title string, art similarity.ScoreArtifact, fps int) error {
	p, err := newScorePlot(title, art, fps)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
