package analysis

import (
	"time"

	"github.com/jinglegen/jinglegen/logging"
)

// Stage names reported to an Observer
const (
	StageDecode            = "decode"
	StageSpectralRolloff   = "spectral_rolloff"
	StageSpectralBandwidth = "spectral_bandwidth"
	StageHPSS              = "hpss"
	StageOnsetStrength     = "onset_strength"
	StageBeatTrack         = "beat_track"
	StageOnsetDetect       = "onset_detect"
	StageTotal             = "total"
)

// Observer receives per-stage timings. Implementations must be safe for
// concurrent use when an Extractor is shared between requests.
type Observer interface {
	StageCompleted(stage string, elapsed time.Duration)
}

// NoopObserver discards all events
type NoopObserver struct{}

func (NoopObserver) StageCompleted(string, time.Duration) {}

// LogObserver writes each stage timing as a debug log line
type LogObserver struct {
	Logger logging.Logger
}

func (o LogObserver) StageCompleted(stage string, elapsed time.Duration) {
	logger := o.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger.Debug("Analysis stage completed", logging.Fields{
		"stage":      stage,
		"elapsed_ms": float64(elapsed.Microseconds()) / 1000,
	})
}

// MultiObserver fans events out to several observers
type MultiObserver []Observer

func (m MultiObserver) StageCompleted(stage string, elapsed time.Duration) {
	for _, o := range m {
		if o != nil {
			o.StageCompleted(stage, elapsed)
		}
	}
}

// timer measures consecutive stages
type timer struct {
	observer Observer
	last     time.Time
}

func newTimer(observer Observer) *timer {
	return &timer{observer: observer, last: time.Now()}
}

// lap reports the time since the previous lap under stage
func (t *timer) lap(stage string) {
	now := time.Now()
	t.observer.StageCompleted(stage, now.Sub(t.last))
	t.last = now
}
