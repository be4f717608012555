package analysis

// MoodEnergy holds the spectral shape descriptors, in Hz
type MoodEnergy struct {
	SpectralRolloff   float64 `json:"spectral_rolloff"`
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
}

// InstrumentAnalysis holds the harmonic/percussive balance
type InstrumentAnalysis struct {
	HarmonicEnergyMean   float64 `json:"harmonic_energy_mean"`
	PercussiveEnergyMean float64 `json:"percussive_energy_mean"`
	HarmonicRatio        float64 `json:"harmonic_ratio"`
}

// MusicalCharacteristics holds tempo and onset strength
type MusicalCharacteristics struct {
	TempoBPM          int     `json:"tempo_bpm"`
	OnsetStrengthMean float64 `json:"onset_strength_mean"`
}

// RhythmAnalysis holds discrete onset statistics
type RhythmAnalysis struct {
	OnsetCount    int     `json:"onset_count"`
	RhythmDensity float64 `json:"rhythm_density_onsets_per_sec"`
}

// RawDescriptors is the numeric output of feature extraction. Every float
// is finite.
type RawDescriptors struct {
	MoodEnergy             MoodEnergy             `json:"mood_energy"`
	InstrumentAnalysis     InstrumentAnalysis     `json:"instrument_analysis"`
	MusicalCharacteristics MusicalCharacteristics `json:"musical_characteristics"`
	RhythmAnalysis         RhythmAnalysis         `json:"rhythm_analysis"`
}
