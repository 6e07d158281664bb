// Copyright (C) 2016, Heiko Koehler

// Package chart keeps a retained scene of chart elements per thing,
// reconciles it with freshly fetched history and renders it as SVG.
package chart

import (
	"math"
	"time"

	"github.com/hkoehler/ledenik/internal/history"
	"github.com/hkoehler/ledenik/internal/sense"
	"github.com/volatiletech/null/v8"
)

// Category selects the scale a series is drawn against.
type Category int

const (
	Number Category = iota
	Percent
	Writes
)

func (c Category) String() string {
	switch c {
	case Percent:
		return "percent"
	case Writes:
		return "write"
	}
	return "number"
}

// Datum is a single value of a series.
type Datum struct {
	Time  time.Time
	Value null.Float64
}

// Series is one sense or write column with its display metadata.
type Series struct {
	ID       string
	Alias    string
	Color    string
	Category Category
	Data     []Datum
}

// BuildSeries picks the graphed sense columns and all write columns from a
// table. Percent senses go to the percent scale, all others to numbers.
func BuildSeries(tbl *history.Table, disp *sense.Displayables) []Series {
	if tbl == nil {
		return nil
	}
	var numbers, percents, writes []Series
	for i, col := range tbl.Columns {
		var cat Category
		switch col.Kind {
		case history.Sense:
			if !disp.Graphed(col.ID) {
				continue
			}
			cat = Number
			if item, _ := disp.Get(col.ID); item.Type == sense.TypePercent {
				cat = Percent
			}
		case history.Write:
			cat = Writes
		default:
			continue
		}
		s := Series{
			ID:       col.ID,
			Alias:    disp.Alias(col.ID),
			Color:    disp.Color(col.ID),
			Category: cat,
			Data:     make([]Datum, len(tbl.Samples)),
		}
		for j, sample := range tbl.Samples {
			s.Data[j] = Datum{Time: sample.Time, Value: sample.Values[i]}
		}
		switch cat {
		case Number:
			numbers = append(numbers, s)
		case Percent:
			percents = append(percents, s)
		default:
			writes = append(writes, s)
		}
	}
	out := append(numbers, percents...)
	return append(out, writes...)
}

// last valid datum, ok is false for an all-null series
// finite reports whether v is a drawable reading.
func finite(v null.Float64) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

func (s Series) last() (Datum, bool) {
	for i := len(s.Data) - 1; i >= 0; i-- {
		if finite(s.Data[i].Value) {
			return s.Data[i], true
		}
	}
	return Datum{}, false
}
