// Copyright (C) 2016, Heiko Koehler

package main

import (
	"errors"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/hkoehler/ledenik/internal/history"
	"github.com/hkoehler/ledenik/internal/sense"
)

var ErrNothingToPlot = errors.New("nothing to plot")

type GraphOptions struct {
	Location     *time.Location
	MedianKernel int
	Width        int
	Height       int
}

func timeFormatter(loc *time.Location, layout string) chart.ValueFormatter {
	return func(v interface{}) string {
		switch t := v.(type) {
		case time.Time:
			return t.In(loc).Format(layout)
		case float64:
			return time.Unix(0, int64(t)).In(loc).Format(layout)
		}
		return ""
	}
}

var hexColor = regexp.MustCompile(`^#?([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// seriesColor uses the configured hex color of a sense, else the palette.
func seriesColor(disp *sense.Displayables, id string, i int) drawing.Color {
	if item, ok := disp.Get(id); ok && hexColor.MatchString(item.Color) {
		return drawing.ColorFromHex(strings.TrimPrefix(item.Color, "#"))
	}
	return chart.GetDefaultColor(i)
}

// PlotHistory renders the graphed senses of a history table as SVG. Numbers
// and temperatures use the left axis, percents the right one. Each series
// is median filtered.
func PlotHistory(w io.Writer, tbl *history.Table, disp *sense.Displayables, opts GraphOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	kernel := opts.MedianKernel
	if kernel <= 0 {
		kernel = history.DefaultMedianKernel
	}

	var series []chart.Series
	var numbers, percents bool
	lo, hi := math.Inf(1), math.Inf(-1)
	var from, to time.Time
	for i, col := range tbl.Columns {
		if col.Kind != history.Sense || !disp.Graphed(col.ID) {
			continue
		}
		xvalues := make([]time.Time, 0, len(tbl.Samples))
		yvalues := make([]float64, 0, len(tbl.Samples))
		for _, s := range tbl.Samples {
			if v := s.Values[i]; v.Valid && !math.IsNaN(v.Float64) {
				xvalues = append(xvalues, s.Time)
				yvalues = append(yvalues, v.Float64)
			}
		}
		if len(xvalues) < 2 {
			continue
		}
		if from.IsZero() || xvalues[0].Before(from) {
			from = xvalues[0]
		}
		if last := xvalues[len(xvalues)-1]; last.After(to) {
			to = last
		}
		ts := chart.TimeSeries{
			Name: disp.Alias(col.ID),
			Style: chart.Style{
				StrokeColor: seriesColor(disp, col.ID, len(series)),
				StrokeWidth: 1.5,
			},
			XValues: xvalues,
			YValues: history.Median(yvalues, kernel),
		}
		if item, _ := disp.Get(col.ID); item.Type == sense.TypePercent {
			ts.YAxis = chart.YAxisSecondary
			percents = true
		} else {
			numbers = true
			for _, v := range ts.YValues {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		series = append(series, ts)
	}
	if len(series) == 0 {
		return ErrNothingToPlot
	}

	layout := "15:04"
	if to.Sub(from) >= 48*time.Hour {
		layout = "Jan 02"
	}
	graph := chart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			ValueFormatter: timeFormatter(loc, layout),
		},
		Series: series,
	}
	percentAxis := chart.YAxis{Name: "%", Range: &chart.ContinuousRange{Min: 0, Max: 100}}
	switch {
	case !numbers:
		// percents alone go on the primary axis
		for i := range series {
			ts := series[i].(chart.TimeSeries)
			ts.YAxis = chart.YAxisPrimary
			series[i] = ts
		}
		graph.YAxis = percentAxis
	case lo == hi:
		// a flat line needs an explicit range
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	if numbers && percents {
		graph.YAxisSecondary = percentAxis
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.SVG, w)
}
