// Package lambda adapts the pipeline to API Gateway proxy events.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/jinglegen/jinglegen/internal/transport"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

// Handler serves API Gateway proxy requests
type Handler struct {
	analyzer *pipeline.Analyzer
	rawAgent string
	tempDir  string
	log      *zap.Logger
}

// NewHandler creates a handler. cfg.RawAgent selects the bare bid request
// response as in the HTTP server; cfg.TempDir holds audio that has to be
// handed to ffmpeg as a file.
func NewHandler(analyzer *pipeline.Analyzer, cfg Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{analyzer: analyzer, rawAgent: cfg.RawAgent, tempDir: cfg.TempDir, log: log}
}

// Handle never returns an error: every failure becomes a JSON response
// with the matching status code.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := h.log.With(zap.String("request_id", event.RequestContext.RequestID))

	userAgent := header(event.Headers, "User-Agent")
	combined, err := h.run(ctx, event, userAgent)
	if err != nil {
		status := transport.StatusFor(err)
		log.Info("analysis failed",
			zap.Int("status", status),
			zap.String("outcome", transport.OutcomeOf(err)),
			zap.Error(err),
		)
		return h.respond(status, pipeline.NewErrorBody(err)), nil
	}

	log.Info("analysis complete", zap.String("bid_request_id", combined.OrtbRequest.ID))
	return h.respond(http.StatusOK, pipeline.Shape(combined, userAgent, h.rawAgent)), nil
}

func (h *Handler) run(ctx context.Context, event events.APIGatewayProxyRequest, userAgent string) (*pipeline.Combined, error) {
	payload, err := NormalizeEvent(event)
	if err != nil {
		return nil, err
	}

	in := pipeline.Input{
		Data:       payload.Data,
		Filename:   payload.Filename,
		Transcript: payload.Transcript,
		Device: &ortb.DeviceContext{
			UserAgent: userAgent,
			IP:        event.RequestContext.Identity.SourceIP,
		},
	}

	if transcode.RequiresFFmpeg(payload.Filename, payload.Data) {
		path, cleanup, err := h.spool(payload)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		in.Path = path
	}

	return h.analyzer.Run(ctx, in)
}

// spool writes the payload to a temp file named after its extension and
// returns a func that removes it
func (h *Handler) spool(payload Payload) (string, func(), error) {
	f, err := os.CreateTemp(h.tempDir, "jinglegen-*"+strings.ToLower(filepath.Ext(payload.Filename)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.log.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}

	if _, err := f.Write(payload.Data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, cleanup, nil
}

func (h *Handler) respond(status int, body any) events.APIGatewayProxyResponse {
	encoded, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		encoded = []byte(`{"error": "Internal server error"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(encoded),
	}
}

// header looks name up case-insensitively
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
