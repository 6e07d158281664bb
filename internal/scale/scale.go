// Copyright (C) 2016, Heiko Koehler

// Package scale maps domain values (times, numbers, write ids) to pixels.
package scale

import (
	"math"
	"time"
)

// TimeScale maps a time domain onto a pixel range.
type TimeScale struct {
	From, To time.Time
	R0, R1   float64
}

func NewTime(from, to time.Time, r0, r1 float64) TimeScale {
	return TimeScale{From: from, To: to, R0: r0, R1: r1}
}

func (s TimeScale) Empty() bool {
	return s.From.IsZero() && s.To.IsZero()
}

func (s TimeScale) span() float64 {
	return float64(s.To.Sub(s.From))
}

func (s TimeScale) Map(t time.Time) float64 {
	span := s.span()
	if span == 0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + float64(t.Sub(s.From))/span*(s.R1-s.R0)
}

func (s TimeScale) Invert(px float64) time.Time {
	if s.R1 == s.R0 {
		return s.From
	}
	frac := (px - s.R0) / (s.R1 - s.R0)
	return s.From.Add(time.Duration(frac * s.span()))
}

// LinearScale maps a numeric domain onto a pixel range.
type LinearScale struct {
	D0, D1 float64
	R0, R1 float64
}

func NewLinear(d0, d1, r0, r1 float64) LinearScale {
	return LinearScale{D0: d0, D1: d1, R0: r0, R1: r1}
}

// Map sends a degenerate domain to the middle of the range.
func (s LinearScale) Map(v float64) float64 {
	if s.D1 == s.D0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + (v-s.D0)/(s.D1-s.D0)*(s.R1-s.R0)
}

func (s LinearScale) Invert(px float64) float64 {
	if s.R1 == s.R0 {
		return s.D0
	}
	return s.D0 + (px-s.R0)/(s.R1-s.R0)*(s.D1-s.D0)
}

// Resolution is the domain distance covered by one pixel.
func (s LinearScale) Resolution() float64 {
	if s.R1 == s.R0 {
		return 0
	}
	return math.Abs((s.D1 - s.D0) / (s.R1 - s.R0))
}

// BandScale splits a pixel range into one band per id. A range given
// high to low lays out the first id at the bottom.
type BandScale struct {
	IDs    []string
	R0, R1 float64
	index  map[string]int
}

func NewBand(ids []string, r0, r1 float64) BandScale {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return BandScale{IDs: ids, R0: r0, R1: r1, index: index}
}

func (s BandScale) Bandwidth() float64 {
	if len(s.IDs) == 0 {
		return 0
	}
	return math.Abs(s.R1-s.R0) / float64(len(s.IDs))
}

// Map returns the start (top) of the band.
func (s BandScale) Map(id string) (float64, bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	if s.R1 < s.R0 {
		i = len(s.IDs) - 1 - i
	}
	return math.Min(s.R0, s.R1) + float64(i)*s.Bandwidth(), true
}
