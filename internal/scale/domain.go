// Copyright (C) 2016, Heiko Koehler

package scale

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"
)

// PercentDomain is fixed regardless of data.
var PercentDomain = [2]float64{0, 100}

// TimeExtent returns the earliest and latest time, ok is false for no times.
func TimeExtent(times []time.Time) (from, to time.Time, ok bool) {
	for _, t := range times {
		if !ok {
			from, to, ok = t, t, true
			continue
		}
		if t.Before(from) {
			from = t
		}
		if t.After(to) {
			to = t
		}
	}
	return from, to, ok
}

// NumberExtent returns min and max over all valid values of all series.
func NumberExtent(series [][]null.Float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, values := range series {
		for _, v := range values {
			if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
				continue
			}
			lo = math.Min(lo, v.Float64)
			hi = math.Max(hi, v.Float64)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// BandDomain lists ids in encounter order without duplicates.
func BandDomain(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
