package pipeline

import (
	"errors"
	"strings"

	"github.com/jinglegen/jinglegen/audioerr"
)

// DefaultRawAgent marks the client class that gets the bid request alone
const DefaultRawAgent = "curl"

// ErrorBody is the serialised failure response
type ErrorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NewErrorBody describes err for a client. The message depends on the
// failure class; the underlying error text goes into Detail.
func NewErrorBody(err error) ErrorBody {
	body := ErrorBody{Code: audioerr.CodeOf(err)}

	var classified *audioerr.Error
	switch {
	case errors.Is(err, audioerr.ErrPayload) && errors.As(err, &classified):
		body.Error = classified.Message
		if classified.Cause != nil {
			body.Detail = classified.Cause.Error()
		}
		return body
	case errors.Is(err, audioerr.ErrDecode):
		body.Error = "Unsupported or corrupt audio file"
	case errors.Is(err, audioerr.ErrEmptyAudio):
		body.Error = "Audio file contains no samples"
	case errors.Is(err, audioerr.ErrAnalysis):
		body.Error = "Analysis failed"
	default:
		body.Error = "Internal server error"
	}

	if err != nil {
		body.Detail = err.Error()
	}
	return body
}

// Shape applies the client rule: a user agent containing rawAgent
// (case-insensitive) receives only the bid request, everyone else the
// combined object. An empty rawAgent disables the rule.
func Shape(combined *Combined, userAgent, rawAgent string) any {
	if rawAgent != "" && strings.Contains(strings.ToLower(userAgent), strings.ToLower(rawAgent)) {
		return combined.OrtbRequest
	}
	return combined
}
