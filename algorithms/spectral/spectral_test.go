package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinglegen/jinglegen/algorithms/windowing"
)

const testRate = 22050

func sine(freq float64, seconds float64, rate int) []float64 {
	n := int(seconds * float64(rate))
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func spectrogram(t *testing.T, signal []float64) *STFTResult {
	t.Helper()
	cfg := DefaultSTFTConfig()
	res, err := NewSTFT().Compute(signal, testRate, cfg, windowing.NewHann(cfg.WindowSize, false))
	require.NoError(t, err)
	return res
}

func TestSTFTCentredFrameCount(t *testing.T) {
	signal := sine(440, 1.0, testRate)
	res := spectrogram(t, signal)

	assert.Equal(t, 1+len(signal)/512, res.TimeFrames)
	assert.Equal(t, 1025, res.FreqBins)
	assert.Len(t, res.Magnitude, res.TimeFrames)
	assert.InDelta(t, testRate/2048.0, res.FreqResolution, 1e-9)
}

func TestSTFTRejectsBadInput(t *testing.T) {
	s := NewSTFT()

	_, err := s.Compute(nil, testRate, DefaultSTFTConfig(), nil)
	assert.Error(t, err)

	_, err = s.Compute(make([]float64, 100), testRate, STFTConfig{WindowSize: 2048, HopSize: 512}, nil)
	assert.ErrorIs(t, err, ErrSignalTooShort)

	_, err = s.Compute(make([]float64, 4096), testRate, STFTConfig{WindowSize: 2048, HopSize: 0}, nil)
	assert.Error(t, err)
}

func TestSineRolloffCentroidBandwidth(t *testing.T) {
	res := spectrogram(t, sine(1000, 2.0, testRate))

	// skip edge frames, they straddle the zero padding
	mid := res.Magnitude[10 : len(res.Magnitude)-10]

	rolloffs := NewSpectralRolloff(testRate).ComputeFrames(mid, DefaultRolloffPercent)
	centroids := NewSpectralCentroid(testRate).ComputeFrames(mid)
	bandwidths := NewSpectralBandwidth(testRate).ComputeFrames(mid, centroids)

	for i := range mid {
		assert.InDelta(t, 1000, rolloffs[i], 60, "rolloff frame %d", i)
		assert.InDelta(t, 1000, centroids[i], 30, "centroid frame %d", i)
		assert.Less(t, bandwidths[i], 200.0, "bandwidth frame %d", i)
	}
}

func TestRolloffOrdersByBrightness(t *testing.T) {
	low := spectrogram(t, sine(500, 1.0, testRate))
	high := spectrogram(t, sine(5000, 1.0, testRate))

	r := NewSpectralRolloff(testRate)
	lowRoll := r.ComputeFrames(low.Magnitude[5:10], DefaultRolloffPercent)
	highRoll := r.ComputeFrames(high.Magnitude[5:10], DefaultRolloffPercent)

	for i := range lowRoll {
		assert.Less(t, lowRoll[i], highRoll[i])
	}
}

func TestSilentFramesAreZero(t *testing.T) {
	frame := make([]float64, 1025)

	assert.Zero(t, NewSpectralRolloff(testRate).Compute(frame, DefaultRolloffPercent))
	assert.Zero(t, NewSpectralCentroid(testRate).Compute(frame))
	assert.Zero(t, NewSpectralBandwidth(testRate).Compute(frame, 0))
}

func TestBandwidthMismatchedCentroids(t *testing.T) {
	out := NewSpectralBandwidth(testRate).ComputeFrames([][]float64{{1, 2}}, nil)
	assert.Empty(t, out)
}

func TestRectifiedMeanFlux(t *testing.T) {
	spec := [][]float64{
		{0, 0, 0, 0},
		{1, 2, 0, 1},
		{0, 2, 4, 1},
	}

	flux := NewSpectralFlux().RectifiedMean(spec)
	require.Len(t, flux, 2)
	assert.InDelta(t, 1.0, flux[0], 1e-12)
	assert.InDelta(t, 1.0, flux[1], 1e-12)
}

func TestFrequencyBins(t *testing.T) {
	bins := FrequencyBins(1025, testRate)
	assert.Zero(t, bins[0])
	assert.InDelta(t, testRate/2.0, bins[1024], 1e-9)
}
