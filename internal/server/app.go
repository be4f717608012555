package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/jinglegen/jinglegen/analysis"
	"github.com/jinglegen/jinglegen/internal/config"
	"github.com/jinglegen/jinglegen/internal/metrics"
	"github.com/jinglegen/jinglegen/logging"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

// Module wires the HTTP service for cfg
func Module(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			NewLogger,
			NewMetrics,
			NewAnalyzer,
			New,
			NewHTTPServer,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(func(*http.Server) {}),
	)
}

// NewLogger builds the production zap logger and installs it as the
// library-wide logger.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.NewProductionZap(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetGlobalLogger(logging.NewZapLogger(log))
	return log, nil
}

// NewMetrics returns nil when metrics are disabled
func NewMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics.Runtime)
}

// NewAnalyzer builds the pipeline from cfg. Stage timings go to the debug
// log and, when enabled, to Prometheus.
func NewAnalyzer(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *pipeline.Analyzer {
	observers := analysis.MultiObserver{analysis.LogObserver{Logger: logging.NewZapLogger(log)}}
	if m != nil {
		observers = append(observers, m)
	}

	decoderCfg := cfg.Audio
	decoder := transcode.NewDecoder(&decoderCfg)
	if decoderCfg.FFmpegEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := decoder.CheckFFmpeg(ctx); err != nil {
			log.Warn("ffmpeg unavailable, falling back to native decoders", zap.Error(err))
		}
		cancel()
	}
	profile, _ := ortb.ProfileByName(cfg.Profile)

	return pipeline.NewAnalyzer(
		decoder,
		analysis.NewExtractor(analysis.DefaultExtractorConfig(), observers),
		ortb.NewAssembler(profile),
	)
}

// NewHTTPServer binds the handler to the configured address for the
// lifetime of the fx application.
func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, handler *Server, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
