// Package config loads the service configuration from defaults, an
// optional YAML file and JINGLEGEN_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "JINGLEGEN"

// Config represents the application configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	// Profile selects the bid request profile, "local" or "cloud"
	Profile string `mapstructure:"profile"`

	Server   ServerConfig            `mapstructure:"server"`
	Audio    transcode.DecoderConfig `mapstructure:"audio"`
	Response ResponseConfig          `mapstructure:"response"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	UploadDir       string        `mapstructure:"upload_dir"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ResponseConfig controls response shaping
type ResponseConfig struct {
	// RawAgent is the User-Agent substring that selects the bare bid
	// request response. Empty disables shaping.
	RawAgent string `mapstructure:"raw_agent"`
	Indent   bool   `mapstructure:"indent"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Runtime bool `mapstructure:"runtime"`
}

// New returns a viper instance with defaults, environment overrides and,
// when configFile is non-empty, that file merged in.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("profile", ortb.LocalProfile().Name)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.max_upload_bytes", 50<<20)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	audio := transcode.DefaultDecoderConfig()
	v.SetDefault("audio.sample_rate", audio.TargetSampleRate)
	v.SetDefault("audio.max_duration", audio.MaxDuration.String())
	v.SetDefault("audio.ffmpeg_enabled", audio.FFmpegEnabled)
	v.SetDefault("audio.ffmpeg_path", audio.FFmpegPath)
	v.SetDefault("audio.ffprobe_path", audio.FFprobePath)
	v.SetDefault("audio.timeout", audio.Timeout.String())

	v.SetDefault("response.raw_agent", pipeline.DefaultRawAgent)
	v.SetDefault("response.indent", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.runtime", true)
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server address must be set")
	}
	if cfg.Server.UploadDir == "" {
		return fmt.Errorf("upload directory must be set")
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if cfg.Audio.TargetSampleRate < 0 {
		return fmt.Errorf("audio sample rate cannot be negative")
	}
	if cfg.Audio.MaxDuration <= 0 {
		return fmt.Errorf("audio max duration must be positive")
	}
	if _, ok := ortb.ProfileByName(cfg.Profile); !ok {
		return fmt.Errorf("unknown profile %q", cfg.Profile)
	}
	return nil
}
