package spectral

// DefaultRolloffPercent is the cumulative-magnitude fraction used for rolloff
const DefaultRolloffPercent = 0.85

// SpectralRolloff computes spectral rolloff frequency
type SpectralRolloff struct {
	sampleRate int
	freqBins   []float64
}

// NewSpectralRolloff creates a new spectral rolloff calculator
func NewSpectralRolloff(sampleRate int) *SpectralRolloff {
	return &SpectralRolloff{
		sampleRate: sampleRate,
	}
}

// Compute returns the lowest bin frequency at which the cumulative magnitude
// reaches percent of the frame total. A silent frame rolls off at 0 Hz.
func (sr *SpectralRolloff) Compute(spectrum []float64, percent float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	if len(sr.freqBins) != len(spectrum) {
		sr.freqBins = FrequencyBins(len(spectrum), sr.sampleRate)
	}

	total := 0.0
	for _, mag := range spectrum {
		total += mag
	}
	if total == 0 {
		return 0
	}

	target := percent * total
	cumulative := 0.0
	for i, mag := range spectrum {
		cumulative += mag
		if cumulative >= target {
			return sr.freqBins[i]
		}
	}

	return sr.freqBins[len(sr.freqBins)-1]
}

// ComputeFrames processes every frame of a magnitude spectrogram
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64, percent float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum, percent)
	}
	return rolloffs
}
