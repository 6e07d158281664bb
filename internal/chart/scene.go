// Copyright (C) 2016, Heiko Koehler

package chart

import (
	"sort"
	"sync"
	"time"

	"github.com/hkoehler/ledenik/internal/scale"
	"github.com/volatiletech/null/v8"
)

// Margin around the plotting area
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Layout fixes the outer chart size.
type Layout struct {
	Width, Height float64
	Margin        Margin
	// cubic segments are flattened into this many lines for hit testing
	FlattenSteps int
}

var DefaultLayout = Layout{
	Width:        960,
	Height:       500,
	Margin:       Margin{Top: 20, Right: 80, Bottom: 100, Left: 80},
	FlattenSteps: 16,
}

func (l Layout) InnerWidth() float64 {
	return l.Width - l.Margin.Left - l.Margin.Right
}

func (l Layout) InnerHeight() float64 {
	return l.Height - l.Margin.Top - l.Margin.Bottom
}

// Frame holds the scales derived from one dataset.
type Frame struct {
	X        scale.TimeScale
	Numbers  scale.LinearScale
	Percents scale.LinearScale
	Writes   scale.BandScale
	// HasTime is false for an empty dataset, nothing is drawn then
	HasTime    bool
	HasNumbers bool
}

// NewFrame computes the domains of all scales over the series.
func NewFrame(l Layout, series []Series) Frame {
	w, h := l.InnerWidth(), l.InnerHeight()
	var times []time.Time
	var numbers [][]null.Float64
	var writeIDs []string
	for _, s := range series {
		for _, d := range s.Data {
			times = append(times, d.Time)
		}
		switch s.Category {
		case Number:
			values := make([]null.Float64, len(s.Data))
			for i, d := range s.Data {
				values[i] = d.Value
			}
			numbers = append(numbers, values)
		case Writes:
			writeIDs = append(writeIDs, s.ID)
		}
	}

	var f Frame
	if from, to, ok := scale.TimeExtent(times); ok {
		f.HasTime = true
		f.X = scale.NewTime(from, to, 0, w)
	}
	if lo, hi, ok := scale.NumberExtent(numbers); ok {
		f.HasNumbers = true
		f.Numbers = scale.NewLinear(lo, hi, h/2, 0)
	}
	f.Percents = scale.NewLinear(scale.PercentDomain[0], scale.PercentDomain[1], h, h/2+10)
	f.Writes = scale.NewBand(scale.BandDomain(writeIDs), h+100, h+30)
	return f
}

// Key identifies a visual group across redraws.
type Key struct {
	Category Category
	ID       string
}

// Label is the text shown next to a series.
type Label struct {
	X, Y    float64
	Text    string
	Visible bool
}

// Group is the retained visual state of one series: its path, the path it
// morphs from and its label.
type Group struct {
	Key    Key
	Series Series
	Path   Path
	D      string
	PrevD  string
	Label  Label
	line   Polyline
	valid  []Datum
}

// Diff reports the outcome of a keyed join.
type Diff struct {
	Entered []Key
	Updated []Key
	Exited  []Key
}

// Scene is the retained chart of one thing. A redraw replaces the whole
// dataset, groups survive as long as their key does.
type Scene struct {
	mu     sync.RWMutex
	layout Layout
	frame  Frame
	groups map[Key]*Group
	order  []Key
	drawn  time.Time
}

func NewScene(l Layout) *Scene {
	if l.FlattenSteps <= 0 {
		l.FlattenSteps = DefaultLayout.FlattenSteps
	}
	return &Scene{layout: l, groups: make(map[Key]*Group)}
}

func (s *Scene) Layout() Layout {
	return s.layout
}

// Drawn returns the time of the last redraw, zero before the first.
func (s *Scene) Drawn() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawn
}

// Redraw joins the series with the existing groups by category and id:
// new keys enter, present keys update their geometry, missing keys exit.
// A duplicate key within one call keeps its first series.
func (s *Scene) Redraw(series []Series) Diff {
	frame := NewFrame(s.layout, series)

	s.mu.Lock()
	defer s.mu.Unlock()

	var diff Diff
	seen := make(map[Key]bool, len(series))
	order := make([]Key, 0, len(series))
	for _, ser := range series {
		key := Key{ser.Category, ser.ID}
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, key)

		g, ok := s.groups[key]
		if !ok {
			g = &Group{Key: key}
			s.groups[key] = g
			diff.Entered = append(diff.Entered, key)
		} else {
			diff.Updated = append(diff.Updated, key)
		}
		g.PrevD = g.D
		g.Series = ser
		s.shape(g, frame)
	}
	for key := range s.groups {
		if !seen[key] {
			delete(s.groups, key)
			diff.Exited = append(diff.Exited, key)
		}
	}
	sort.Slice(diff.Exited, func(i, j int) bool {
		a, b := diff.Exited[i], diff.Exited[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.ID < b.ID
	})

	s.frame = frame
	s.order = order
	s.drawn = time.Now()
	return diff
}

// shape computes path geometry and label of a group against the frame.
func (s *Scene) shape(g *Group, f Frame) {
	ser := g.Series
	g.valid = make([]Datum, 0, len(ser.Data))
	for _, d := range ser.Data {
		if finite(d.Value) {
			g.valid = append(g.valid, d)
		}
	}
	g.Path = Path{}
	g.Label = Label{Text: ser.Alias}
	if !f.HasTime {
		g.D, g.line = "", Polyline{}
		return
	}

	switch ser.Category {
	case Number, Percent:
		y := f.Percents
		if ser.Category == Number {
			if !f.HasNumbers {
				break
			}
			y = f.Numbers
		}
		pts := make([]XY, len(ser.Data))
		defined := make([]bool, len(ser.Data))
		for i, d := range ser.Data {
			defined[i] = finite(d.Value)
			if defined[i] {
				pts[i] = XY{f.X.Map(d.Time), y.Map(d.Value.Float64)}
			}
		}
		g.Path = BasisLine(pts, defined)
		if last, ok := ser.last(); ok {
			g.Label.X, g.Label.Y = f.X.Map(last.Time), y.Map(last.Value.Float64)
			g.Label.Visible = true
		}
	case Writes:
		top, ok := f.Writes.Map(ser.ID)
		if !ok {
			break
		}
		xs := make([]float64, len(ser.Data))
		defined := make([]bool, len(ser.Data))
		for i, d := range ser.Data {
			xs[i] = f.X.Map(d.Time)
			// zero and unset values are gaps, not flat bars
			defined[i] = finite(d.Value) && d.Value.Float64 != 0
		}
		g.Path = BandArea(xs, defined, top, top+f.Writes.Bandwidth())
		g.Label.X, g.Label.Y = 3, top+f.Writes.Bandwidth()/2
		g.Label.Visible = true
	}
	g.D = g.Path.String()
	g.line = g.Path.Flatten(s.layout.FlattenSteps)
}

// Keys returns the current group keys in draw order.
func (s *Scene) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Key(nil), s.order...)
}

// Group returns a copy of the group with the given key.
func (s *Scene) Group(key Key) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[key]
	if !ok {
		return Group{}, false
	}
	return *g, true
}

// Frame returns the scales of the last redraw.
func (s *Scene) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}
