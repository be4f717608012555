package lambda

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jinglegen/jinglegen/transcode"
)

// Config is read from JINGLEGEN_* environment variables
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Profile  string `envconfig:"PROFILE" default:"cloud"`
	RawAgent string `envconfig:"RAW_AGENT" default:"curl"`
	// TempDir holds payloads decoded by ffmpeg; empty means os.TempDir
	TempDir string `envconfig:"TEMP_DIR"`

	SampleRate    int           `envconfig:"SAMPLE_RATE" default:"22050"`
	MaxDuration   time.Duration `envconfig:"MAX_DURATION" default:"15s"`
	FFmpegEnabled bool          `envconfig:"FFMPEG_ENABLED" default:"true"`
	FFmpegPath    string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath   string        `envconfig:"FFPROBE_PATH" default:"ffprobe"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// LoadConfig processes the environment
func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("jinglegen", &cfg)
	return cfg, err
}

// DecoderConfig returns the decoder settings
func (c Config) DecoderConfig() *transcode.DecoderConfig {
	return &transcode.DecoderConfig{
		TargetSampleRate: c.SampleRate,
		MaxDuration:      c.MaxDuration,
		FFmpegEnabled:    c.FFmpegEnabled,
		FFmpegPath:       c.FFmpegPath,
		FFprobePath:      c.FFprobePath,
		Timeout:          c.Timeout,
	}
}
