package analysis

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/internal/testaudio"
	"github.com/jinglegen/jinglegen/logging"
)

const testRate = testaudio.Rate

func clickTrain(seconds float64) []float64 {
	out := make([]float64, int(seconds*testRate))
	for i := 5120; i < len(out); i += 10240 {
		out[i] = 1
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	stages []string
}

func (r *recorder) StageCompleted(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func allFinite(t *testing.T, raw *RawDescriptors) {
	t.Helper()
	for name, v := range map[string]float64{
		"rolloff":    raw.MoodEnergy.SpectralRolloff,
		"bandwidth":  raw.MoodEnergy.SpectralBandwidth,
		"harmonic":   raw.InstrumentAnalysis.HarmonicEnergyMean,
		"percussive": raw.InstrumentAnalysis.PercussiveEnergyMean,
		"ratio":      raw.InstrumentAnalysis.HarmonicRatio,
		"onset_mean": raw.MusicalCharacteristics.OnsetStrengthMean,
		"density":    raw.RhythmAnalysis.RhythmDensity,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), name)
	}
}

func TestExtractToneWithNoise(t *testing.T) {
	raw, err := NewExtractor(DefaultExtractorConfig(), nil).Extract(testaudio.ToneWithNoise(10), testRate)
	require.NoError(t, err)

	assert.InDelta(t, 2800, raw.MoodEnergy.SpectralRolloff, 100)
	assert.InDelta(t, 1800, raw.MoodEnergy.SpectralBandwidth, 100)
	assert.Greater(t, raw.InstrumentAnalysis.HarmonicRatio, 0.6)
	allFinite(t, raw)
}

func TestExtractSilence(t *testing.T) {
	raw, err := NewExtractor(DefaultExtractorConfig(), nil).Extract(make([]float64, 2*testRate), testRate)
	require.NoError(t, err)

	assert.Equal(t, 0.5, raw.InstrumentAnalysis.HarmonicRatio)
	assert.Zero(t, raw.InstrumentAnalysis.HarmonicEnergyMean)
	assert.Zero(t, raw.InstrumentAnalysis.PercussiveEnergyMean)
	assert.Zero(t, raw.MusicalCharacteristics.TempoBPM)
	assert.Zero(t, raw.RhythmAnalysis.OnsetCount)
	assert.Zero(t, raw.RhythmAnalysis.RhythmDensity)
	assert.Zero(t, raw.MoodEnergy.SpectralRolloff)
	assert.Zero(t, raw.MoodEnergy.SpectralBandwidth)
	allFinite(t, raw)
}

func TestExtractClickTrain(t *testing.T) {
	raw, err := NewExtractor(DefaultExtractorConfig(), nil).Extract(clickTrain(8), testRate)
	require.NoError(t, err)

	assert.Equal(t, 129, raw.MusicalCharacteristics.TempoBPM)
	assert.Equal(t, 17, raw.RhythmAnalysis.OnsetCount)
	assert.InDelta(t, 17.0/8.0, raw.RhythmAnalysis.RhythmDensity, 1e-9)
	assert.Greater(t, raw.MusicalCharacteristics.OnsetStrengthMean, 0.0)
	assert.Less(t, raw.InstrumentAnalysis.HarmonicRatio, 0.4)
}

func TestExtractRejectsBadInput(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig(), nil)

	_, err := e.Extract(nil, testRate)
	assert.ErrorIs(t, err, audioerr.ErrEmptyAudio)

	_, err = e.Extract(make([]float64, 1000), testRate)
	assert.ErrorIs(t, err, audioerr.ErrAnalysis)
	assert.ErrorIs(t, err, ErrSignalTooShort)

	_, err = e.Extract(make([]float64, 4096), 0)
	assert.ErrorIs(t, err, audioerr.ErrAnalysis)
}

func TestExtractReportsStages(t *testing.T) {
	rec := &recorder{}
	_, err := NewExtractor(DefaultExtractorConfig(), rec).Extract(testaudio.ToneWithNoise(1), testRate)
	require.NoError(t, err)

	assert.Equal(t, []string{
		StageSpectralRolloff,
		StageSpectralBandwidth,
		StageHPSS,
		StageOnsetStrength,
		StageBeatTrack,
		StageOnsetDetect,
		StageTotal,
	}, rec.stages)
}

func TestExtractConcurrentCallsAgree(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig(), nil)
	signal := testaudio.ToneWithNoise(2)

	want, err := e.Extract(signal, testRate)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*RawDescriptors, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = e.Extract(signal, testRate)
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestRawDescriptorsJSONLayout(t *testing.T) {
	raw := &RawDescriptors{}
	raw.MusicalCharacteristics.TempoBPM = 128

	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded["mood_energy"], "spectral_rolloff")
	assert.Contains(t, decoded["mood_energy"], "spectral_bandwidth")
	assert.Contains(t, decoded["instrument_analysis"], "harmonic_ratio")
	assert.Contains(t, decoded["instrument_analysis"], "harmonic_energy_mean")
	assert.Contains(t, decoded["instrument_analysis"], "percussive_energy_mean")
	assert.EqualValues(t, 128, decoded["musical_characteristics"]["tempo_bpm"])
	assert.Contains(t, decoded["musical_characteristics"], "onset_strength_mean")
	assert.Contains(t, decoded["rhythm_analysis"], "onset_count")
	assert.Contains(t, decoded["rhythm_analysis"], "rhythm_density_onsets_per_sec")
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := LogObserver{Logger: logging.NewZapLogger(zap.New(core))}

	obs.StageCompleted(StageHPSS, 1500*time.Microsecond)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, StageHPSS, fields["stage"])
	assert.InDelta(t, 1.5, fields["elapsed_ms"], 1e-9)
}

func TestMultiObserver(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	MultiObserver{a, nil, b}.StageCompleted(StageTotal, time.Millisecond)

	assert.Equal(t, []string{StageTotal}, a.stages)
	assert.Equal(t, []string{StageTotal}, b.stages)
}
