package harmonic

import (
	"errors"
	"math"

	"github.com/jinglegen/jinglegen/algorithms/common"
)

// HPSSConfig holds the median filter widths and mask exponent for
// harmonic/percussive source separation.
type HPSSConfig struct {
	HarmonicKernel   int     // median width across time frames
	PercussiveKernel int     // median width across frequency bins
	Power            float64 // soft mask exponent
}

// DefaultHPSSConfig returns the standard separation parameters
func DefaultHPSSConfig() HPSSConfig {
	return HPSSConfig{
		HarmonicKernel:   31,
		PercussiveKernel: 31,
		Power:            2.0,
	}
}

// HPSSResult holds the separated magnitude spectrograms, indexed [frame][bin]
type HPSSResult struct {
	Harmonic       [][]float64 `json:"-"`
	Percussive     [][]float64 `json:"-"`
	HarmonicMean   float64     `json:"harmonic_mean"`
	PercussiveMean float64     `json:"percussive_mean"`
}

// HPSS separates a magnitude spectrogram into harmonic and percussive parts
// by median filtering. Sustained tones are smooth along time; transients
// are smooth along frequency.
type HPSS struct {
	config HPSSConfig
}

// NewHPSS creates a new separator
func NewHPSS(config HPSSConfig) *HPSS {
	return &HPSS{config: config}
}

// Separate splits magnitude into soft-masked harmonic and percussive
// spectrograms. Every row must have the same number of bins.
func (h *HPSS) Separate(magnitude [][]float64) (*HPSSResult, error) {
	if len(magnitude) == 0 || len(magnitude[0]) == 0 {
		return nil, errors.New("empty spectrogram")
	}

	frames, bins := len(magnitude), len(magnitude[0])
	for _, row := range magnitude {
		if len(row) != bins {
			return nil, errors.New("ragged spectrogram")
		}
	}

	harmonicRef := h.filterTime(magnitude, frames, bins)
	percussiveRef := h.filterFrequency(magnitude)

	result := &HPSSResult{
		Harmonic:   make([][]float64, frames),
		Percussive: make([][]float64, frames),
	}

	for t := range frames {
		hRow := make([]float64, bins)
		pRow := make([]float64, bins)
		for f := range bins {
			hm, pm := softMasks(harmonicRef[t][f], percussiveRef[t][f], h.config.Power)
			hRow[f] = magnitude[t][f] * hm
			pRow[f] = magnitude[t][f] * pm
		}
		result.Harmonic[t] = hRow
		result.Percussive[t] = pRow
	}

	result.HarmonicMean = common.MatrixMean(result.Harmonic)
	result.PercussiveMean = common.MatrixMean(result.Percussive)
	return result, nil
}

// filterTime median-filters each frequency bin across frames
func (h *HPSS) filterTime(magnitude [][]float64, frames, bins int) [][]float64 {
	out := make([][]float64, frames)
	for t := range out {
		out[t] = make([]float64, bins)
	}

	column := make([]float64, frames)
	filtered := make([]float64, frames)
	scratch := make([]float64, h.config.HarmonicKernel+1)

	for f := range bins {
		for t := range frames {
			column[t] = magnitude[t][f]
		}
		common.MedianFilterInto(filtered, column, h.config.HarmonicKernel, scratch)
		for t := range frames {
			out[t][f] = filtered[t]
		}
	}
	return out
}

// filterFrequency median-filters each frame across bins
func (h *HPSS) filterFrequency(magnitude [][]float64) [][]float64 {
	out := make([][]float64, len(magnitude))
	scratch := make([]float64, h.config.PercussiveKernel+1)

	for t, row := range magnitude {
		out[t] = make([]float64, len(row))
		common.MedianFilterInto(out[t], row, h.config.PercussiveKernel, scratch)
	}
	return out
}

// softMasks returns the Wiener-style masks H^p/(H^p+P^p) and P^p/(H^p+P^p).
// Both are 0 where the references are both 0.
func softMasks(hRef, pRef, power float64) (float64, float64) {
	z := math.Max(hRef, pRef)
	if z <= math.SmallestNonzeroFloat64 {
		return 0, 0
	}

	hm := math.Pow(hRef/z, power)
	pm := math.Pow(pRef/z, power)
	sum := hm + pm
	return hm / sum, pm / sum
}

// HarmonicRatio returns harmonicMean / (harmonicMean + percussiveMean).
// When both are zero, as for silence, the ratio is 0.5.
func HarmonicRatio(harmonicMean, percussiveMean float64) float64 {
	sum := harmonicMean + percussiveMean
	if sum == 0 {
		return 0.5
	}
	return harmonicMean / sum
}
