// Copyright (C) 2016, Heiko Koehler

package scale

import (
	"math"
	"strconv"
	"time"
)

// NumericTicks returns up to about n ticks covering [lo, hi] on a
// 1, 2, 2.5, 5 x 10^k grid, clipped to the domain.
func NumericTicks(lo, hi float64, n int) []float64 {
	if n < 2 || math.IsNaN(lo) || math.IsNaN(hi) {
		return nil
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return []float64{lo}
	}
	span := hi - lo
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	step := mag
	best := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		count := math.Floor(span/(c*mag)) + 1
		if d := math.Abs(count - float64(n)); d < best {
			best = d
			step = c * mag
		}
	}
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, round6(v))
	}
	return out
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// FormatTick gives a compact label, fewer decimals for larger values.
func FormatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 100 || v == math.Trunc(v):
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case av >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case av >= 0.01:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

var timeSteps = []time.Duration{
	time.Minute, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute,
	time.Hour, 3 * time.Hour, 6 * time.Hour, 12 * time.Hour,
	24 * time.Hour, 2 * 24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour,
}

// TimeTicks returns at most n ticks inside [from, to] aligned to a whole
// step in loc, together with the step.
func TimeTicks(from, to time.Time, n int, loc *time.Location) ([]time.Time, time.Duration) {
	if n < 1 || !to.After(from) {
		return nil, 0
	}
	if loc == nil {
		loc = time.UTC
	}
	span := to.Sub(from)
	step := timeSteps[len(timeSteps)-1]
	for _, s := range timeSteps {
		if span/s <= time.Duration(n) {
			step = s
			break
		}
	}
	// align on the local wall clock
	local := from.In(loc)
	_, offset := local.Zone()
	shift := time.Duration(offset) * time.Second
	first := from.Add(shift).Truncate(step).Add(-shift)
	if first.Before(from) {
		first = first.Add(step)
	}
	var out []time.Time
	for t := first; !t.After(to); t = t.Add(step) {
		out = append(out, t)
	}
	return out, step
}
