// Copyright (C) 2016, Heiko Koehler

package chart

import (
	"math"
	"sort"
	"time"
)

// HitTolerance is how close in pixels the path search gets to the pointer.
const HitTolerance = 0.5

// Reading is the value of one series under the crosshair.
type Reading struct {
	Key   Key     `json:"-"`
	ID    string  `json:"id"`
	Alias string  `json:"alias"`
	Color string  `json:"color"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// Value is inverse-scaled from the rendered path at X
	Value float64 `json:"value"`
	// Nearest is the closest sample in time
	Nearest time.Time `json:"nearest"`
	Sample  float64   `json:"sample"`
	// InRange is false when the pointer is outside the drawn path
	InRange bool `json:"in_range"`
}

// Crosshair is what is shown for one pointer position.
type Crosshair struct {
	X        float64   `json:"x"`
	Time     time.Time `json:"time"`
	Visible  bool      `json:"visible"`
	Readings []Reading `json:"readings"`
}

// Hover locates, for every number and percent series, the value under the
// pixel column px. It reads the rendered geometry and changes nothing.
func (s *Scene) Hover(px float64) Crosshair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hover(px)
}

func (s *Scene) hover(px float64) Crosshair {
	f := s.frame
	if !f.HasTime {
		return Crosshair{X: px}
	}
	px = math.Max(0, math.Min(px, s.layout.InnerWidth()))
	ch := Crosshair{X: px, Time: f.X.Invert(px), Visible: true}

	for _, key := range s.order {
		g := s.groups[key]
		if key.Category == Writes || len(g.valid) == 0 || len(g.line.pts) == 0 {
			continue
		}
		y := f.Percents
		if key.Category == Number {
			y = f.Numbers
		}
		nearest := nearestDatum(g.valid, ch.Time)
		pos := searchX(g.line, px)
		ch.Readings = append(ch.Readings, Reading{
			Key:     key,
			ID:      key.ID,
			Alias:   g.Series.Alias,
			Color:   g.Series.Color,
			X:       px,
			Y:       pos.Y,
			Value:   y.Invert(pos.Y),
			Nearest: nearest.Time,
			Sample:  nearest.Value.Float64,
			InRange: math.Abs(pos.X-px) <= HitTolerance,
		})
	}
	return ch
}

// nearestDatum bisects time-sorted data for the sample closest to t.
func nearestDatum(data []Datum, t time.Time) Datum {
	i := sort.Search(len(data), func(i int) bool { return data[i].Time.After(t) })
	if i == 0 {
		return data[0]
	}
	if i == len(data) {
		return data[i-1]
	}
	if t.Sub(data[i-1].Time) <= data[i].Time.Sub(t) {
		return data[i-1]
	}
	return data[i]
}

// searchX bisects the arc length of a path with increasing x until the
// point lies within HitTolerance of px.
func searchX(line Polyline, px float64) XY {
	lo, hi := 0.0, line.Length()
	pos := line.PointAt(lo)
	for i := 0; i < 64; i++ {
		mid := (lo + hi) / 2
		pos = line.PointAt(mid)
		if math.Abs(pos.X-px) <= HitTolerance/4 {
			break
		}
		if pos.X > px {
			hi = mid
		} else {
			lo = mid
		}
	}
	return pos
}
