package harmonic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(frames, bins int, fill func(t, f int) float64) [][]float64 {
	out := make([][]float64, frames)
	for t := range out {
		out[t] = make([]float64, bins)
		for f := range out[t] {
			out[t][f] = fill(t, f)
		}
	}
	return out
}

func TestHarmonicRatioGuard(t *testing.T) {
	assert.Equal(t, 0.5, HarmonicRatio(0, 0))
	assert.InDelta(t, 0.75, HarmonicRatio(3, 1), 1e-12)
	assert.Equal(t, 1.0, HarmonicRatio(2, 0))
}

func TestSeparateSilence(t *testing.T) {
	res, err := NewHPSS(DefaultHPSSConfig()).Separate(grid(40, 64, func(int, int) float64 { return 0 }))
	require.NoError(t, err)

	assert.Zero(t, res.HarmonicMean)
	assert.Zero(t, res.PercussiveMean)
	assert.Equal(t, 0.5, HarmonicRatio(res.HarmonicMean, res.PercussiveMean))
}

func TestSeparateSustainedToneIsHarmonic(t *testing.T) {
	// one bin lit in every frame: a horizontal line
	spec := grid(80, 128, func(_, f int) float64 {
		if f == 20 {
			return 1
		}
		return 0
	})

	res, err := NewHPSS(DefaultHPSSConfig()).Separate(spec)
	require.NoError(t, err)

	assert.Greater(t, HarmonicRatio(res.HarmonicMean, res.PercussiveMean), 0.9)
}

func TestSeparateClickIsPercussive(t *testing.T) {
	// every bin lit in one frame: a vertical line
	spec := grid(80, 128, func(frame, _ int) float64 {
		if frame == 40 {
			return 1
		}
		return 0
	})

	res, err := NewHPSS(DefaultHPSSConfig()).Separate(spec)
	require.NoError(t, err)

	assert.Less(t, HarmonicRatio(res.HarmonicMean, res.PercussiveMean), 0.1)
}

func TestSeparateRejectsBadInput(t *testing.T) {
	h := NewHPSS(DefaultHPSSConfig())

	_, err := h.Separate(nil)
	assert.Error(t, err)

	_, err = h.Separate([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}
