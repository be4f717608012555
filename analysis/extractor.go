// Package analysis computes the raw audio descriptors (spectral shape,
// harmonic/percussive balance, tempo and onset density) for a mono buffer.
package analysis

import (
	"fmt"

	"github.com/jinglegen/jinglegen/algorithms/common"
	"github.com/jinglegen/jinglegen/algorithms/harmonic"
	"github.com/jinglegen/jinglegen/algorithms/spectral"
	"github.com/jinglegen/jinglegen/algorithms/temporal"
	"github.com/jinglegen/jinglegen/algorithms/windowing"
	"github.com/jinglegen/jinglegen/audioerr"
)

// ErrSignalTooShort is the cause of an analysis error for buffers shorter
// than one STFT window.
var ErrSignalTooShort = spectral.ErrSignalTooShort

// ExtractorConfig gathers the parameters of every descriptor
type ExtractorConfig struct {
	STFT           spectral.STFTConfig
	RolloffPercent float64
	HPSS           harmonic.HPSSConfig
	Onset          temporal.OnsetConfig
	Tempo          temporal.TempoConfig
}

// DefaultExtractorConfig returns the parameters the label thresholds were
// tuned against
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		STFT:           spectral.DefaultSTFTConfig(),
		RolloffPercent: spectral.DefaultRolloffPercent,
		HPSS:           harmonic.DefaultHPSSConfig(),
		Onset:          temporal.DefaultOnsetConfig(),
		Tempo:          temporal.DefaultTempoConfig(),
	}
}

// Extractor computes RawDescriptors. It keeps no per-call state, so one
// Extractor can serve concurrent requests.
type Extractor struct {
	config   ExtractorConfig
	observer Observer
}

// NewExtractor creates an extractor. A nil observer is silent.
func NewExtractor(config ExtractorConfig, observer Observer) *Extractor {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Extractor{config: config, observer: observer}
}

// Observer returns the timing hook in use
func (e *Extractor) Observer() Observer {
	return e.observer
}

// Extract computes every descriptor group over samples.
func (e *Extractor) Extract(samples []float64, sampleRate int) (*RawDescriptors, error) {
	if len(samples) == 0 {
		return nil, audioerr.NewEmptyAudioError("sample buffer is empty")
	}
	if sampleRate <= 0 {
		return nil, audioerr.NewAnalysisError("invalid sample rate", fmt.Errorf("sample rate %d", sampleRate))
	}
	if len(samples) < e.config.STFT.WindowSize {
		return nil, audioerr.NewAnalysisError("buffer shorter than one analysis frame",
			fmt.Errorf("%w: %d samples, window %d", ErrSignalTooShort, len(samples), e.config.STFT.WindowSize))
	}

	total := newTimer(e.observer)
	lap := newTimer(e.observer)

	cfg := e.config.STFT
	stft, err := spectral.NewSTFT().Compute(samples, sampleRate, cfg, windowing.NewHann(cfg.WindowSize, false))
	if err != nil {
		return nil, audioerr.NewAnalysisError("short-time transform failed", err)
	}
	mag := stft.Magnitude

	raw := &RawDescriptors{}

	rolloffs := spectral.NewSpectralRolloff(sampleRate).ComputeFrames(mag, e.config.RolloffPercent)
	raw.MoodEnergy.SpectralRolloff = common.Mean(rolloffs)
	lap.lap(StageSpectralRolloff)

	centroids := spectral.NewSpectralCentroid(sampleRate).ComputeFrames(mag)
	bandwidths := spectral.NewSpectralBandwidth(sampleRate).ComputeFrames(mag, centroids)
	raw.MoodEnergy.SpectralBandwidth = common.Mean(bandwidths)
	lap.lap(StageSpectralBandwidth)

	separated, err := harmonic.NewHPSS(e.config.HPSS).Separate(mag)
	if err != nil {
		return nil, audioerr.NewAnalysisError("harmonic/percussive separation failed", err)
	}
	h, p := common.Finite(separated.HarmonicMean), common.Finite(separated.PercussiveMean)
	raw.InstrumentAnalysis = InstrumentAnalysis{
		HarmonicEnergyMean:   h,
		PercussiveEnergyMean: p,
		HarmonicRatio:        harmonic.HarmonicRatio(h, p),
	}
	lap.lap(StageHPSS)

	onsets := temporal.NewOnsetDetection(e.config.Onset)
	envelope := onsets.Strength(mag)
	raw.MusicalCharacteristics.OnsetStrengthMean = common.Mean(envelope)
	lap.lap(StageOnsetStrength)

	frameRate := float64(sampleRate) / float64(cfg.HopSize)
	tempo := temporal.NewTempoEstimation(e.config.Tempo).Estimate(envelope, frameRate)
	raw.MusicalCharacteristics.TempoBPM = int(common.Finite(tempo))
	lap.lap(StageBeatTrack)

	frames := onsets.Detect(envelope, frameRate)
	duration := float64(len(samples)) / float64(sampleRate)
	raw.RhythmAnalysis = RhythmAnalysis{
		OnsetCount:    len(frames),
		RhythmDensity: temporal.Density(len(frames), duration),
	}
	lap.lap(StageOnsetDetect)

	raw.sanitize()
	total.lap(StageTotal)
	return raw, nil
}

// sanitize replaces any non-finite value with 0
func (r *RawDescriptors) sanitize() {
	r.MoodEnergy.SpectralRolloff = common.Finite(r.MoodEnergy.SpectralRolloff)
	r.MoodEnergy.SpectralBandwidth = common.Finite(r.MoodEnergy.SpectralBandwidth)
	r.InstrumentAnalysis.HarmonicEnergyMean = common.Finite(r.InstrumentAnalysis.HarmonicEnergyMean)
	r.InstrumentAnalysis.PercussiveEnergyMean = common.Finite(r.InstrumentAnalysis.PercussiveEnergyMean)
	r.InstrumentAnalysis.HarmonicRatio = common.Finite(r.InstrumentAnalysis.HarmonicRatio)
	r.MusicalCharacteristics.OnsetStrengthMean = common.Finite(r.MusicalCharacteristics.OnsetStrengthMean)
	r.RhythmAnalysis.RhythmDensity = common.Finite(r.RhythmAnalysis.RhythmDensity)
	if r.MusicalCharacteristics.TempoBPM < 0 {
		r.MusicalCharacteristics.TempoBPM = 0
	}
}
