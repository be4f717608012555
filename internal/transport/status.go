// Package transport holds the pieces both request adapters share: status
// mapping and outcome labels for metrics.
package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/jinglegen/jinglegen/audioerr"
)

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomePayload   = "invalid_payload"
	OutcomeDecode    = "decode_failed"
	OutcomeEmpty     = "empty_audio"
	OutcomeAnalysis  = "analysis_failed"
	OutcomeCancelled = "cancelled"
	OutcomeInternal  = "internal_error"
)

// StatusFor maps a pipeline error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, audioerr.ErrPayload):
		return http.StatusBadRequest
	case errors.Is(err, audioerr.ErrDecode), errors.Is(err, audioerr.ErrEmptyAudio):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// OutcomeOf returns the metrics label for err
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, audioerr.ErrPayload):
		return OutcomePayload
	case errors.Is(err, audioerr.ErrDecode):
		return OutcomeDecode
	case errors.Is(err, audioerr.ErrEmptyAudio):
		return OutcomeEmpty
	case errors.Is(err, audioerr.ErrAnalysis):
		return OutcomeAnalysis
	default:
		return OutcomeInternal
	}
}
