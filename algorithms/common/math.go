package common

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// MatrixMean returns the mean over every element of a 2-D slice
func MatrixMean(data [][]float64) float64 {
	count, sum := 0, 0.0
	for _, row := range data {
		sum += floats.Sum(row)
		count += len(row)
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// Finite returns v, or 0 when v is NaN or infinite
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// MedianFilter applies a median filter of odd width windowSize. Edges are
// handled by half-sample reflection (d c b a | a b c d | d c b a), so
// every output is the median of exactly windowSize values.
func MedianFilter(data []float64, windowSize int) []float64 {
	result := make([]float64, len(data))
	MedianFilterInto(result, data, windowSize, nil)
	return result
}

// MedianFilterInto is MedianFilter writing into dst. scratch is reused when
// it has capacity for windowSize values.
func MedianFilterInto(dst, data []float64, windowSize int, scratch []float64) {
	n := len(data)
	if n == 0 {
		return
	}
	if windowSize <= 1 {
		copy(dst, data)
		return
	}
	if windowSize%2 == 0 {
		windowSize++
	}

	if cap(scratch) < windowSize {
		scratch = make([]float64, windowSize)
	}
	window := scratch[:windowSize]
	half := windowSize / 2

	for i := range n {
		for k := range windowSize {
			window[k] = data[reflectIndex(i-half+k, n)]
		}
		slices.Sort(window)
		dst[i] = window[half]
	}
}

// reflectIndex maps an out-of-range index back into [0, n) by reflecting
// about the edges, repeating the edge sample.
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// NextPowerOfTwo returns the smallest power of two >= n
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
