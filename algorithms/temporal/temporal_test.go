package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinglegen/jinglegen/algorithms/spectral"
	"github.com/jinglegen/jinglegen/algorithms/windowing"
)

const (
	testRate = 22050
	testHop  = 512
)

var frameRate = float64(testRate) / testHop

// clickTrain places unit impulses every period samples, starting at offset
func clickTrain(seconds float64, offset, period int) []float64 {
	out := make([]float64, int(seconds*testRate))
	for i := offset; i < len(out); i += period {
		out[i] = 1
	}
	return out
}

func envelopeOf(t *testing.T, signal []float64) []float64 {
	t.Helper()
	cfg := spectral.DefaultSTFTConfig()
	res, err := spectral.NewSTFT().Compute(signal, testRate, cfg, windowing.NewHann(cfg.WindowSize, false))
	require.NoError(t, err)
	return NewOnsetDetection(DefaultOnsetConfig()).Strength(res.Magnitude)
}

func TestStrengthLengthMatchesFrames(t *testing.T) {
	signal := clickTrain(2, 5120, 10240)
	env := envelopeOf(t, signal)

	assert.Len(t, env, 1+len(signal)/testHop)
	assert.Zero(t, env[0])
	for _, v := range env {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestClickTrainOnsets(t *testing.T) {
	env := envelopeOf(t, clickTrain(8, 5120, 10240))

	onsets := NewOnsetDetection(DefaultOnsetConfig()).Detect(env, frameRate)
	require.Len(t, onsets, 17)
	for i := 1; i < len(onsets); i++ {
		assert.Equal(t, 20, onsets[i]-onsets[i-1])
	}
}

func TestClickTrainTempo(t *testing.T) {
	env := envelopeOf(t, clickTrain(10, 5120, 10240))

	bpm := NewTempoEstimation(DefaultTempoConfig()).Estimate(env, frameRate)
	assert.InDelta(t, 60*frameRate/20, bpm, 0.5)
}

func TestMeanTempogramNormalisesEachFrame(t *testing.T) {
	env := make([]float64, 600)
	for i := 3; i < len(env); i += 20 {
		env[i] = 1
	}

	te := NewTempoEstimation(DefaultTempoConfig())
	winLength := int(te.config.ACSize * frameRate)
	tg := te.meanTempogram(env, winLength)

	require.Len(t, tg, winLength)
	assert.InDelta(t, 1.0, tg[0], 1e-9)
	assert.Greater(t, tg[20], tg[10])
	assert.Greater(t, tg[40], tg[30])
}

func TestSilenceIsDegenerate(t *testing.T) {
	env := envelopeOf(t, make([]float64, 4*testRate))

	for _, v := range env {
		assert.Zero(t, v)
	}
	assert.Zero(t, NewTempoEstimation(DefaultTempoConfig()).Estimate(env, frameRate))
	assert.Empty(t, NewOnsetDetection(DefaultOnsetConfig()).Detect(env, frameRate))
}

func TestTempoEmptyEnvelope(t *testing.T) {
	te := NewTempoEstimation(DefaultTempoConfig())
	assert.Zero(t, te.Estimate(nil, frameRate))
	assert.Zero(t, te.Estimate([]float64{1, 0, 1}, 0))
}

func TestPickPeaksRespectsWait(t *testing.T) {
	x := []float64{0, 1, 0, 0.9, 0, 0, 0, 1, 0}

	assert.Equal(t, []int{1, 7}, pickPeaks(x, 1, 1, 1, 1, 0.1, 2))
	assert.Equal(t, []int{1, 3, 7}, pickPeaks(x, 1, 1, 1, 1, 0.1, 0))
}

func TestDensity(t *testing.T) {
	assert.Zero(t, Density(0, 10))
	assert.Zero(t, Density(5, 0))
	assert.InDelta(t, 1.5, Density(15, 10), 1e-12)
}

func TestRampPad(t *testing.T) {
	out := rampPad([]float64{4, 8}, 2)

	require.Len(t, out, 7)
	assert.Equal(t, []float64{0, 2, 4, 8, 8, 4, 0}, out)
}
