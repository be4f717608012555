package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/internal/testaudio"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestNormalizeEventShapes(t *testing.T) {
	audio := []byte("RIFF....WAVE")
	envelope := fmt.Sprintf(`{"audio_data": %q, "filename": "clip.wav", "transcript": "hi"}`, b64(audio))

	tests := []struct {
		name     string
		event    events.APIGatewayProxyRequest
		filename string
	}{
		{
			name:     "json envelope",
			event:    events.APIGatewayProxyRequest{Body: envelope},
			filename: "clip.wav",
		},
		{
			name:     "base64 flag with json body",
			event:    events.APIGatewayProxyRequest{Body: envelope, IsBase64Encoded: true},
			filename: "clip.wav",
		},
		{
			name:     "base64 encoded envelope",
			event:    events.APIGatewayProxyRequest{Body: b64([]byte(envelope)), IsBase64Encoded: true},
			filename: "clip.wav",
		},
		{
			name: "raw base64 audio with query filename",
			event: events.APIGatewayProxyRequest{
				Body:                  b64(audio),
				IsBase64Encoded:       true,
				QueryStringParameters: map[string]string{"filename": "upload.wav"},
			},
			filename: "upload.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NormalizeEvent(tt.event)
			require.NoError(t, err)
			assert.Equal(t, audio, p.Data)
			assert.Equal(t, tt.filename, p.Filename)
		})
	}
}

func TestNormalizeEventDefaultFilename(t *testing.T) {
	p, err := NormalizeEvent(events.APIGatewayProxyRequest{Body: b64([]byte("abc")), IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Regexp(t, `^audio-[0-9a-f]{8}\.mp3$`, p.Filename)
	assert.Empty(t, p.Transcript)
}

func TestNormalizeEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		event   events.APIGatewayProxyRequest
		message string
	}{
		{"empty body", events.APIGatewayProxyRequest{}, "'audio_data' not found in request payload."},
		{"missing audio_data", events.APIGatewayProxyRequest{Body: `{"filename": "a.wav"}`}, "'audio_data' not found in request payload."},
		{"bad json", events.APIGatewayProxyRequest{Body: `not json`}, "Invalid JSON in request body"},
		{"bad inner base64", events.APIGatewayProxyRequest{Body: `{"audio_data": "@@@"}`}, "Invalid base64 encoded audio data"},
		{"bad outer base64", events.APIGatewayProxyRequest{Body: "@@@", IsBase64Encoded: true}, "Invalid request body format. Expected JSON or direct base64."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeEvent(tt.event)
			require.ErrorIs(t, err, audioerr.ErrPayload)

			var e *audioerr.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func newHandler(rawAgent string) *Handler {
	cfg := transcode.DefaultDecoderConfig()
	cfg.FFmpegEnabled = false
	analyzer := pipeline.NewAnalyzer(transcode.NewDecoder(cfg), nil, ortb.NewAssembler(ortb.CloudProfile()))
	return NewHandler(analyzer, Config{RawAgent: rawAgent}, nil)
}

func TestHandleM4AGoesThroughTempFile(t *testing.T) {
	ffmpeg, ffprobe := testaudio.FakeFFmpeg(t, testaudio.ToneWithNoise(2), testaudio.Rate)
	dc := transcode.DefaultDecoderConfig()
	dc.FFmpegPath = ffmpeg
	dc.FFprobePath = ffprobe
	analyzer := pipeline.NewAnalyzer(transcode.NewDecoder(dc), nil, ortb.NewAssembler(ortb.CloudProfile()))

	tempDir := t.TempDir()
	h := NewHandler(analyzer, Config{RawAgent: "curl", TempDir: tempDir}, nil)

	body := fmt.Sprintf(`{"audio_data": %q, "filename": "memo.m4a"}`, b64(testaudio.MP4()))
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: body})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleNativeFormatSkipsTempFile(t *testing.T) {
	cfg := transcode.DefaultDecoderConfig()
	cfg.FFmpegEnabled = false
	analyzer := pipeline.NewAnalyzer(transcode.NewDecoder(cfg), nil, nil)

	// a missing directory fails any attempt to spool
	h := NewHandler(analyzer, Config{TempDir: filepath.Join(t.TempDir(), "missing")}, nil)

	wav := testaudio.WAV(t, testaudio.ToneWithNoise(1), testaudio.Rate)
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: b64(wav), IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Body: fmt.Sprintf(`{"audio_data": %q, "filename": "memo.m4a"}`, b64(testaudio.MP4())),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandleCombinedResponse(t *testing.T) {
	wav := testaudio.WAV(t, testaudio.ToneWithNoise(3), testaudio.Rate)
	event := events.APIGatewayProxyRequest{
		Body:            b64(wav),
		IsBase64Encoded: true,
		Headers:         map[string]string{"user-agent": "Mozilla/5.0"},
	}
	event.RequestContext.Identity.SourceIP = "198.51.100.9"

	resp, err := newHandler("curl").Handle(context.Background(), event)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Contains(t, resp.Body, "\n  \"audio_analysis\"")

	var combined pipeline.Combined
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &combined))
	require.NotNil(t, combined.OrtbRequest)
	assert.Regexp(t, `^bid-cloud-[0-9a-f-]{36}$`, combined.OrtbRequest.ID)
	assert.Equal(t, "Mozilla/5.0", combined.OrtbRequest.Device.UA)
	assert.Equal(t, "198.51.100.9", combined.OrtbRequest.Device.IP)
	assert.Equal(t, "Medium", combined.AudioAnalysis.MoodEnergy.InterpretedEnergy)
}

func TestHandleCurlGetsBidRequestOnly(t *testing.T) {
	wav := testaudio.WAV(t, testaudio.ToneWithNoise(2), testaudio.Rate)
	body := fmt.Sprintf(`{"audio_data": %q, "filename": "clip.wav"}`, b64(wav))

	for _, key := range []string{"User-Agent", "user-agent", "USER-AGENT"} {
		t.Run(key, func(t *testing.T) {
			resp, err := newHandler("curl").Handle(context.Background(), events.APIGatewayProxyRequest{
				Body:    body,
				Headers: map[string]string{key: "curl/8.4.0"},
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var top map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &top))
			assert.Contains(t, top, "imp")
			assert.NotContains(t, top, "audio_analysis")
		})
	}
}

func TestHandleErrors(t *testing.T) {
	h := newHandler("curl")

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: "{"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Body:            b64(testaudio.Corrupt()),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body pipeline.ErrorBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "Unsupported or corrupt audio file", body.Error)
	assert.Equal(t, audioerr.CodeDecode, body.Code)
}

func TestHeaderLookup(t *testing.T) {
	h := map[string]string{"user-agent": "a"}
	assert.Equal(t, "a", header(h, "User-Agent"))
	assert.Empty(t, header(nil, "User-Agent"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JINGLEGEN_SAMPLE_RATE", "0")
	t.Setenv("JINGLEGEN_MAX_DURATION", "20s")
	t.Setenv("JINGLEGEN_FFMPEG_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "cloud", cfg.Profile)
	assert.Equal(t, "curl", cfg.RawAgent)
	dc := cfg.DecoderConfig()
	assert.Zero(t, dc.TargetSampleRate)
	assert.Equal(t, 20*time.Second, dc.MaxDuration)
	assert.False(t, dc.FFmpegEnabled)
	assert.Equal(t, "ffmpeg", dc.FFmpegPath)
}
