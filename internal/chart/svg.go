// Copyright (C) 2016, Heiko Koehler

package chart

import (
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/hkoehler/ledenik/internal/scale"
)

// RenderOptions control the SVG output.
type RenderOptions struct {
	Location *time.Location
	// HoverStep is the distance in pixels between pre-rendered crosshair
	// columns, zero disables them
	HoverStep float64
	// Notice is shown above the plot, e.g. when the last fetch failed
	Notice string
	// Morph animates paths from their previous geometry
	Morph bool
}

type tickView struct {
	Pos   string
	Label string
}

type groupView struct {
	Class     string
	PathClass string
	ID        string
	Color     string
	D         string
	PrevD     string
	Label     Label
	LabelX    string
	LabelY    string
}

type readingView struct {
	X, Y  string
	Color string
	Text  string
}

type hoverView struct {
	X        string
	RectX    string
	RectW    string
	Time     string
	Readings []readingView
}

type svgView struct {
	Width, Height  string
	Left, Top      string
	InnerW, InnerH string
	HalfH          string
	WritesTop      string
	Notice         string
	Empty          bool
	Morph          bool
	XTicks         []tickView
	NumberTicks    []tickView
	PercentTicks   []tickView
	WriteTicks     []tickView
	Groups         []groupView
	Hovers         []hoverView
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Render writes the scene as a standalone SVG element.
func (s *Scene) Render(w io.Writer, opts RenderOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s.mu.RLock()
	v := s.view(opts, loc)
	s.mu.RUnlock()

	return svgTmpl.Execute(w, v)
}

func (s *Scene) view(opts RenderOptions, loc *time.Location) svgView {
	l, f := s.layout, s.frame
	iw, ih := l.InnerWidth(), l.InnerHeight()
	v := svgView{
		Width: px(l.Width), Height: px(l.Height),
		Left: px(l.Margin.Left), Top: px(l.Margin.Top),
		InnerW: px(iw), InnerH: px(ih), HalfH: px(ih / 2), WritesTop: px(ih + 30),
		Notice: opts.Notice,
		Empty:  !f.HasTime,
		Morph:  opts.Morph,
	}
	if !f.HasTime {
		return v
	}

	ticks, step := scale.TimeTicks(f.X.From, f.X.To, 8, loc)
	layout := "15:04"
	if step >= 24*time.Hour {
		layout = "Jan 02"
	}
	for _, t := range ticks {
		v.XTicks = append(v.XTicks, tickView{Pos: px(f.X.Map(t)), Label: t.In(loc).Format(layout)})
	}
	if f.HasNumbers {
		for _, n := range scale.NumericTicks(f.Numbers.D0, f.Numbers.D1, 5) {
			v.NumberTicks = append(v.NumberTicks, tickView{Pos: px(f.Numbers.Map(n)), Label: scale.FormatTick(n)})
		}
	}
	for _, n := range scale.NumericTicks(0, 100, 5) {
		v.PercentTicks = append(v.PercentTicks, tickView{Pos: px(f.Percents.Map(n)), Label: scale.FormatTick(n)})
	}

	for _, key := range s.order {
		g := s.groups[key]
		gv := groupView{
			Class: key.Category.String(), PathClass: "line",
			ID: key.ID, Color: g.Series.Color, D: g.D, PrevD: g.PrevD,
			Label: g.Label, LabelX: px(g.Label.X), LabelY: px(g.Label.Y),
		}
		if key.Category == Writes {
			gv.PathClass = "area"
			if top, ok := f.Writes.Map(key.ID); ok {
				v.WriteTicks = append(v.WriteTicks, tickView{
					Pos:   px(top + f.Writes.Bandwidth()/2),
					Label: g.Series.Alias,
				})
			}
		}
		v.Groups = append(v.Groups, gv)
	}

	if opts.HoverStep > 0 {
		for x := 0.0; x < iw; x += opts.HoverStep {
			center := x + opts.HoverStep/2
			ch := s.hover(center)
			hv := hoverView{
				X: px(ch.X), RectX: px(x), RectW: px(opts.HoverStep),
				Time: ch.Time.In(loc).Format("2006-01-02 15:04"),
			}
			for _, r := range ch.Readings {
				if !r.InRange {
					continue
				}
				hv.Readings = append(hv.Readings, readingView{
					X: px(r.X), Y: px(r.Y), Color: r.Color,
					Text: strconv.FormatFloat(r.Value, 'f', 2, 64),
				})
			}
			v.Hovers = append(v.Hovers, hv)
		}
	}
	return v
}

var svgTmpl = template.Must(template.New("chart").Parse(`<svg xmlns="http://www.w3.org/2000/svg" class="chart" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<style>
.chart text { font: 10px sans-serif; }
.chart .axis path, .chart .axis line { stroke: #000; fill: none; }
.chart path.line { fill: none; stroke-width: 1.5px; }
.chart .hover .crosshair { opacity: 0; }
.chart .hover:hover .crosshair { opacity: 1; }
.chart .mouse-line { stroke: black; stroke-width: 1px; }
</style>
<g transform="translate({{.Left}},{{.Top}})">
{{if .Notice}}<text class="notice" x="0" y="-6" fill="#c00">{{.Notice}}</text>{{end}}
{{if .Empty}}<text class="empty" x="{{.InnerW}}" y="{{.HalfH}}" text-anchor="end">no data</text>{{else}}
<g class="axis axis--x" transform="translate(0,{{.InnerH}})">
<path d="M0,0H{{.InnerW}}"></path>
{{range .XTicks}}<g class="tick" transform="translate({{.Pos}},0)"><line y2="6"></line><text y="9" dy="0.71em" text-anchor="middle">{{.Label}}</text></g>
{{end}}</g>
<g class="axis axis-numbers-y">
<path d="M0,0V{{.HalfH}}"></path>
{{range .NumberTicks}}<g class="tick" transform="translate(0,{{.Pos}})"><line x2="-6"></line><text x="-9" dy="0.32em" text-anchor="end">{{.Label}}</text></g>
{{end}}<text transform="rotate(-90)" y="6" dy="0.71em" fill="#000">Numbers</text>
</g>
<g class="axis axis-percents-y">
{{range .PercentTicks}}<g class="tick" transform="translate(0,{{.Pos}})"><line x2="-6"></line><text x="-9" dy="0.32em" text-anchor="end">{{.Label}}</text></g>
{{end}}<text transform="rotate(-90)" y="6" x="-{{.HalfH}}" dy="0.71em" fill="#000">Percents</text>
</g>
<g class="axis axis-writes-y">
{{range .WriteTicks}}<g class="tick" transform="translate(0,{{.Pos}})"><line x2="-6"></line><text x="-9" dy="0.32em" text-anchor="end">{{.Label}}</text></g>
{{end}}<text transform="rotate(-90)" y="6" x="-{{.WritesTop}}" dy="0.71em" fill="#000">Writes</text>
</g>
{{range .Groups}}<g class="{{.Class}}" data-id="{{.ID}}">
{{if eq .PathClass "area"}}<path class="area" fill="{{.Color}}" d="{{.D}}">{{else}}<path class="line" stroke="{{.Color}}" d="{{.D}}">{{end}}{{if and $.Morph .PrevD (ne .PrevD .D)}}<animate attributeName="d" from="{{.PrevD}}" to="{{.D}}" dur="250ms" fill="freeze"></animate>{{end}}</path>
{{if .Label.Visible}}<text x="3" dy="0.35em" transform="translate({{.LabelX}},{{.LabelY}})">{{.Label.Text}}</text>{{end}}
</g>
{{end}}
<g class="mouse-over-effects">
{{range .Hovers}}<g class="hover">
<rect x="{{.RectX}}" y="0" width="{{.RectW}}" height="{{$.InnerH}}" fill="none" pointer-events="all"></rect>
<g class="crosshair">
<path class="mouse-line" d="M{{.X}},{{$.InnerH}}V0"></path>
<text class="mouse-time" x="{{.X}}" y="-6" text-anchor="middle">{{.Time}}</text>
{{range .Readings}}<g class="mouse-per-line" transform="translate({{.X}},{{.Y}})"><circle r="7" stroke="{{.Color}}" fill="none"></circle><text transform="translate(10,3)">{{.Text}}</text></g>{{end}}
</g>
</g>
{{end}}</g>
{{end}}
</g>
</svg>
`))
