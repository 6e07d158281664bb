// Copyright (C) 2016, Heiko Koehler

package history

import "sort"

// DefaultMedianKernel smooths single-sample spikes.
const DefaultMedianKernel = 3

// Median applies a running median over a window of kernel values. Even
// kernels are widened by one, windows are truncated at both ends.
func Median(values []float64, kernel int) []float64 {
	if kernel <= 1 || len(values) == 0 {
		return append([]float64(nil), values...)
	}
	if kernel%2 == 0 {
		kernel++
	}
	half := kernel / 2
	out := make([]float64, len(values))
	window := make([]float64, 0, kernel)
	for i := range values {
		lo, hi := i-half, i+half+1
		if lo < 0 {
			lo = 0
		}
		if hi > len(values) {
			hi = len(values)
		}
		window = append(window[:0], values[lo:hi]...)
		sort.Float64s(window)
		n := len(window)
		if n%2 == 1 {
			out[i] = window[n/2]
		} else {
			out[i] = (window[n/2-1] + window[n/2]) / 2
		}
	}
	return out
}
