// Package server is the HTTP adapter: multipart upload in, combined
// analysis and bid request JSON out.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/internal/config"
	"github.com/jinglegen/jinglegen/internal/metrics"
	"github.com/jinglegen/jinglegen/internal/transport"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
)

// TransportName labels this adapter in metrics
const TransportName = "http"

// Form fields read from an upload
const (
	FileField       = "audioFile"
	TranscriptField = "transcript"
)

// Server holds the routes and their dependencies
type Server struct {
	analyzer *pipeline.Analyzer
	metrics  *metrics.Metrics
	log      *zap.Logger
	server   config.ServerConfig
	response config.ResponseConfig
	router   *mux.Router
}

// New builds the router. The upload directory is created if missing.
// m may be nil to serve without /metrics.
func New(analyzer *pipeline.Analyzer, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	s := &Server{
		analyzer: analyzer,
		metrics:  m,
		log:      log,
		server:   cfg.Server,
		response: cfg.Response,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(corsMiddleware, jsonMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// ServeHTTP makes Server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("request_id", uuid.NewString()))
	r.Body = http.MaxBytesReader(w, r.Body, s.server.MaxUploadBytes)

	combined, err := s.analyze(r)
	if s.metrics != nil {
		s.metrics.ObserveRequest(TransportName, transport.OutcomeOf(err))
	}
	if err != nil {
		status := transport.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("analysis failed", zap.Error(err))
		} else {
			log.Info("analysis rejected", zap.Int("status", status), zap.Error(err))
		}
		s.writeJSON(w, status, pipeline.NewErrorBody(err))
		return
	}

	log.Info("analysis complete",
		zap.String("bid_request_id", combined.OrtbRequest.ID),
		zap.String("energy", combined.AudioAnalysis.MoodEnergy.InterpretedEnergy),
		zap.Int("tempo_bpm", combined.AudioAnalysis.MusicalCharacteristics.TempoBPM),
	)
	s.writeJSON(w, http.StatusOK, pipeline.Shape(combined, r.UserAgent(), s.response.RawAgent))
}

// analyze spools the upload to disk, runs the pipeline over it and
// removes the spooled file on every path.
func (s *Server) analyze(r *http.Request) (*pipeline.Combined, error) {
	file, filename, err := s.formFile(r)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	path, err := s.spool(file, filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}()

	return s.analyzer.Run(r.Context(), pipeline.Input{
		Path:       path,
		Filename:   filename,
		Transcript: r.FormValue(TranscriptField),
		Device: &ortb.DeviceContext{
			UserAgent: r.UserAgent(),
			IP:        clientIP(r),
		},
	})
}

// formFile pulls the upload out of a multipart request
func (s *Server) formFile(r *http.Request) (io.ReadCloser, string, error) {
	file, header, err := r.FormFile(FileField)
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile):
		// a part without a filename is parsed as a plain value
		if r.MultipartForm != nil && len(r.MultipartForm.Value[FileField]) > 0 {
			return nil, "", audioerr.NewPayloadError("No selected file", nil)
		}
		return nil, "", audioerr.NewPayloadError("No audio file part in the request", nil)
	case errors.Is(err, http.ErrNotMultipart):
		return nil, "", audioerr.NewPayloadError("No audio file part in the request", err)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", audioerr.NewPayloadError("Audio file too large", err)
		}
		return nil, "", audioerr.NewPayloadError("Invalid multipart request", err)
	}

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		file.Close()
		return nil, "", audioerr.NewPayloadError("No selected file", nil)
	}
	return file, filename, nil
}

// spool copies the upload into the upload directory under a unique name
func (s *Server) spool(src io.Reader, filename string) (string, error) {
	path := filepath.Join(s.server.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if s.response.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

// clientIP prefers the first X-Forwarded-For hop
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, User-Agent")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html>
<head><title>jinglegen</title></head>
<body>
<h1>Audio analysis</h1>
<form action="/analyze" method="post" enctype="multipart/form-data">
  <p><input type="file" name="audioFile" accept="audio/*"></p>
  <p><input type="text" name="transcript" placeholder="Transcript (optional)" size="60"></p>
  <p><input type="submit" value="Analyze"></p>
</form>
</body>
</html>
`
