package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/yujeong-lee-1996/temp-kpop/internal/similarity"
)

// AssetsHost is where rendered HTML pages load the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// WriteScoreChartHTML renders an interactive page with a frame score line
// and a per-second bar chart. flagged frames, if any, are marked on the line.
func WriteScoreChartHTML(w io.Writer, title string, art similarity.ScoreArtifact, fps int, flagged []int) error {
	if len(art.FrameScores) == 0 {
		return ErrNoScores
	}
	if fps <= 0 {
		return fmt.Errorf("report: fps must be positive, got %d", fps)
	}

	frames := make([]string, len(art.FrameScores))
	frameData := make([]opts.LineData, len(art.FrameScores))
	for i, s := range art.FrameScores {
		frames[i] = strconv.Itoa(i)
		frameData[i] = opts.LineData{Value: s}
	}

	marks := make([]opts.ScatterData, 0, len(flagged))
	for _, t := range flagged {
		if t < 0 || t >= len(art.FrameScores) {
			continue
		}
		marks = append(marks, opts.ScatterData{Value: []interface{}{t, art.FrameScores[t]}})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d fps=%d flagged=%d", len(frames), fps, len(marks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(frames).
		AddSeries("final score", frameData,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)

	if len(marks) > 0 {
		scatter := charts.NewScatter()
		scatter.AddSeries("flagged", marks,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}),
		)
		line.Overlap(scatter)
	}

	seconds := make([]string, len(art.SecondScores))
	secondData := make([]opts.BarData, len(art.SecondScores))
	for i, s := range art.SecondScores {
		seconds[i] = strconv.Itoa(i)
		secondData[i] = opts.BarData{Value: s}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Per-second score"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Second", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(seconds).AddSeries("second score", secondData)

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = title
	page.AddCharts(line, bar)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}
