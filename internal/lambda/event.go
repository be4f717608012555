package lambda

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jinglegen/jinglegen/audioerr"
)

// Payload is the canonical request after normalisation
type Payload struct {
	Data       []byte
	Filename   string
	Transcript string
}

// envelope is the JSON request body
type envelope struct {
	AudioData  *string `json:"audio_data"`
	Filename   string  `json:"filename"`
	Transcript string  `json:"transcript"`
}

// NormalizeEvent turns the three accepted body shapes into a Payload:
// a JSON envelope, a base64-encoded JSON envelope, or base64-encoded raw
// audio. The filename comes from the envelope, then the filename query
// parameter, then a generated name.
func NormalizeEvent(event events.APIGatewayProxyRequest) (Payload, error) {
	body := strings.TrimSpace(event.Body)

	var (
		payload Payload
		err     error
	)
	if event.IsBase64Encoded {
		payload, err = fromBase64Body(body)
	} else {
		payload, err = fromJSONBody(body)
	}
	if err != nil {
		return Payload{}, err
	}

	if payload.Filename == "" {
		payload.Filename = event.QueryStringParameters["filename"]
	}
	if payload.Filename == "" {
		payload.Filename = "audio-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ".mp3"
	}
	return payload, nil
}

func fromJSONBody(body string) (Payload, error) {
	if body == "" {
		body = "{}"
	}
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Payload{}, audioerr.NewPayloadError("Invalid JSON in request body", err)
	}
	return env.payload()
}

// fromBase64Body accepts a body that is already a JSON envelope, a base64
// encoded envelope, or base64 audio.
func fromBase64Body(body string) (Payload, error) {
	if looksLikeJSONObject([]byte(body)) {
		return fromJSONBody(body)
	}

	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Payload{}, audioerr.NewPayloadError("Invalid request body format. Expected JSON or direct base64.", err)
	}

	if looksLikeJSONObject(decoded) {
		var env envelope
		if err := json.Unmarshal(decoded, &env); err == nil && env.AudioData != nil {
			return env.payload()
		}
	}

	if len(decoded) == 0 {
		return Payload{}, audioerr.NewPayloadError("'audio_data' not found in request payload.", nil)
	}
	return Payload{Data: decoded}, nil
}

func (e envelope) payload() (Payload, error) {
	if e.AudioData == nil || *e.AudioData == "" {
		return Payload{}, audioerr.NewPayloadError("'audio_data' not found in request payload.", nil)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*e.AudioData))
	if err != nil {
		return Payload{}, audioerr.NewPayloadError("Invalid base64 encoded audio data", err)
	}
	return Payload{Data: data, Filename: e.Filename, Transcript: e.Transcript}, nil
}

func looksLikeJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 1 && b[0] == '{' && b[len(b)-1] == '}'
}
