package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/internal/testaudio"
	"github.com/jinglegen/jinglegen/labels"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/transcode"
)

func newAnalyzer() *Analyzer {
	cfg := transcode.DefaultDecoderConfig()
	cfg.FFmpegEnabled = false
	return NewAnalyzer(transcode.NewDecoder(cfg), nil, nil)
}

func TestAnalyzeToneWithNoiseEndToEnd(t *testing.T) {
	data := testaudio.WAV(t, testaudio.ToneWithNoise(10), testaudio.Rate)

	result, err := newAnalyzer().Analyze(context.Background(), data, "fixture.wav")
	require.NoError(t, err)

	assert.InDelta(t, 2800, result.Raw.MoodEnergy.SpectralRolloff, 100)
	assert.InDelta(t, 1800, result.Raw.MoodEnergy.SpectralBandwidth, 100)
	assert.Equal(t, labels.Medium, result.Labeled.MoodEnergy.InterpretedEnergy)
	assert.Equal(t, labels.Muted, result.Labeled.MoodEnergy.InterpretedBrightness)
	assert.Equal(t, testaudio.Rate*10, len(result.Audio.PCM))
}

func TestAnalyzeSilence(t *testing.T) {
	data := testaudio.WAV(t, make([]float64, 3*testaudio.Rate), testaudio.Rate)

	result, err := newAnalyzer().Analyze(context.Background(), data, "silence.wav")
	require.NoError(t, err)

	assert.Equal(t, 0.5, result.Raw.InstrumentAnalysis.HarmonicRatio)
	assert.Zero(t, result.Raw.RhythmAnalysis.RhythmDensity)
	assert.Equal(t, labels.Low, result.Labeled.RhythmAnalysis.InterpretedBeatDensity)
	assert.Equal(t, labels.Mixed, result.Labeled.InstrumentAnalysis.InterpretedInstrumentType)
}

func TestAnalyzeCorruptBytes(t *testing.T) {
	result, err := newAnalyzer().Analyze(context.Background(), testaudio.Corrupt(), "upload.wav")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, audioerr.ErrDecode)
}

func TestAnalyzeTooShort(t *testing.T) {
	data := testaudio.WAV(t, make([]float64, 500), testaudio.Rate)

	_, err := newAnalyzer().Analyze(context.Background(), data, "blip.wav")
	assert.ErrorIs(t, err, audioerr.ErrAnalysis)
}

func TestAnalyzeReader(t *testing.T) {
	data := testaudio.WAV(t, testaudio.ToneWithNoise(1), testaudio.Rate)

	result, err := newAnalyzer().AnalyzeReader(context.Background(), bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, transcode.FormatWAV, result.Audio.SourceFormat)
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3f1c.wav")
	require.NoError(t, os.WriteFile(path, testaudio.WAV(t, testaudio.ToneWithNoise(1), testaudio.Rate), 0o600))

	result, err := newAnalyzer().AnalyzeFile(context.Background(), path, "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, transcode.FormatWAV, result.Audio.SourceFormat)
	assert.Len(t, result.Audio.PCM, testaudio.Rate)

	_, err = newAnalyzer().AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), "")
	assert.ErrorIs(t, err, audioerr.ErrDecode)
}

func TestRunPrefersPath(t *testing.T) {
	samples := testaudio.ToneWithNoise(2)
	ffmpeg, ffprobe := testaudio.FakeFFmpeg(t, samples, testaudio.Rate)
	cfg := transcode.DefaultDecoderConfig()
	cfg.FFmpegPath = ffmpeg
	cfg.FFprobePath = ffprobe
	analyzer := NewAnalyzer(transcode.NewDecoder(cfg), nil, nil)

	path := filepath.Join(t.TempDir(), "upload.m4a")
	require.NoError(t, os.WriteFile(path, testaudio.MP4(), 0o600))

	// Data alone cannot be decoded by the stand-in ffmpeg
	combined, err := analyzer.Run(context.Background(), Input{Data: testaudio.MP4(), Path: path, Filename: "clip.m4a"})
	require.NoError(t, err)
	assert.Equal(t, labels.Medium, combined.AudioAnalysis.MoodEnergy.InterpretedEnergy)

	_, err = analyzer.Run(context.Background(), Input{Data: testaudio.MP4(), Filename: "clip.m4a"})
	assert.ErrorIs(t, err, audioerr.ErrDecode)
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := testaudio.WAV(t, testaudio.ToneWithNoise(1), testaudio.Rate)
	_, err := newAnalyzer().Analyze(ctx, data, "clip.wav")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCombined(t *testing.T) {
	data := testaudio.WAV(t, testaudio.ToneWithNoise(2), testaudio.Rate)

	combined, err := newAnalyzer().Run(context.Background(), Input{
		Data:       data,
		Filename:   "clip.wav",
		Transcript: "hello",
		Device:     &ortb.DeviceContext{UserAgent: "Mozilla/5.0"},
	})
	require.NoError(t, err)

	signals := combined.OrtbRequest.Imp[0].Ext.CustomAudioSignals
	assert.Equal(t, combined.AudioAnalysis.MoodEnergy.InterpretedEnergy, signals.EnergyLevel)
	assert.Equal(t, "hello", signals.TranscribedTextSnippet)
	assert.Equal(t, "Mozilla/5.0", combined.OrtbRequest.Device.UA)

	encoded, err := json.Marshal(combined)
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(encoded, &top))
	assert.Len(t, top, 2)
	assert.Contains(t, top, "audio_analysis")
	assert.Contains(t, top, "ortb_request")
}

func TestShape(t *testing.T) {
	combined := &Combined{OrtbRequest: &ortb.BidRequest{ID: "bid-local-1"}}

	assert.Same(t, combined.OrtbRequest, Shape(combined, "curl/8.0", DefaultRawAgent))
	assert.Same(t, combined.OrtbRequest, Shape(combined, "CURL/7.1", DefaultRawAgent))
	assert.Same(t, combined, Shape(combined, "Mozilla/5.0", DefaultRawAgent))
	assert.Same(t, combined, Shape(combined, "", DefaultRawAgent))
	assert.Same(t, combined, Shape(combined, "curl/8.0", ""))
}

func TestNewErrorBody(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		code string
	}{
		{"decode", audioerr.NewDecodeError("could not decode wav audio", errors.New("bad header")), "Unsupported or corrupt audio file", audioerr.CodeDecode},
		{"empty", audioerr.NewEmptyAudioError("no samples"), "Audio file contains no samples", audioerr.CodeEmptyAudio},
		{"analysis", fmt.Errorf("run: %w", audioerr.NewAnalysisError("stft", nil)), "Analysis failed", audioerr.CodeAnalysis},
		{"payload", audioerr.NewPayloadError("No selected file", nil), "No selected file", audioerr.CodePayload},
		{"other", errors.New("boom"), "Internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := NewErrorBody(tt.err)
			assert.Equal(t, tt.want, body.Error)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	assert.Equal(t, "could not decode wav audio: bad header", NewErrorBody(tests[0].err).Detail)
	assert.Empty(t, NewErrorBody(tests[3].err).Detail)
}
