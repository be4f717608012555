// Package testaudio builds deterministic audio fixtures for tests.
package testaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Rate is the fixture sample rate
const Rate = 22050

// ToneWithNoise mixes 700 Hz and 2800 Hz sines of equal amplitude with
// white noise. Its 85% rolloff sits on the upper partial (about 2800 Hz)
// and the noise floor spreads its bandwidth to about 1800 Hz.
func ToneWithNoise(seconds float64) []float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]float64, int(seconds*Rate))
	for i := range out {
		ts := float64(i) / Rate
		out[i] = 0.3*math.Sin(2*math.Pi*700*ts) +
			0.3*math.Sin(2*math.Pi*2800*ts) +
			0.0027*rng.NormFloat64()
	}
	return out
}

// WAV encodes mono samples in [-1, 1] as a 16-bit PCM WAV file
func WAV(tb testing.TB, samples []float64, rate int) []byte {
	tb.Helper()

	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * 32767))
	}

	path := filepath.Join(tb.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create fixture: %v", err)
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close fixture: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read fixture: %v", err)
	}
	return data
}

// ffmpegScript stands in for ffmpeg: it finds the -i argument, fails the
// way ffmpeg does on an unseekable MP4 unless that is a regular file, and
// writes the prepared f64le samples to stdout.
const ffmpegScript = `#!/bin/sh
if [ "$1" = "-version" ]; then echo "ffmpeg version test"; exit 0; fi
in=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
done
if [ ! -f "$in" ]; then
  echo "moov atom not found" >&2
  exit 1
fi
cat "%s"
`

// ffprobeScript stands in for ffprobe; its last argument is the input
const ffprobeScript = `#!/bin/sh
if [ "$1" = "-version" ]; then echo "ffprobe version test"; exit 0; fi
in=""
for a in "$@"; do in="$a"; done
if [ ! -f "$in" ]; then
  echo "moov atom not found" >&2
  exit 1
fi
echo '{"streams": [{"codec_type": "audio", "codec_name": "aac", "sample_rate": "%d", "channels": 2, "duration": "%.3f"}]}'
`

// FakeFFmpeg writes ffmpeg and ffprobe stand-ins that only accept a file
// path as input and emit samples as mono f64le. It returns their paths
// and skips the test on Windows.
func FakeFFmpeg(tb testing.TB, samples []float64, rate int) (ffmpeg, ffprobe string) {
	tb.Helper()
	if runtime.GOOS == "windows" {
		tb.Skip("fake ffmpeg needs a POSIX shell")
	}

	dir := tb.TempDir()
	raw := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(s))
	}
	pcmPath := filepath.Join(dir, "samples.f64le")
	if err := os.WriteFile(pcmPath, raw, 0o600); err != nil {
		tb.Fatalf("write samples: %v", err)
	}

	ffmpeg = filepath.Join(dir, "ffmpeg")
	ffprobe = filepath.Join(dir, "ffprobe")
	scripts := map[string]string{
		ffmpeg:  fmt.Sprintf(ffmpegScript, pcmPath),
		ffprobe: fmt.Sprintf(ffprobeScript, rate, float64(len(samples))/float64(rate)),
	}
	for path, body := range scripts {
		if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
			tb.Fatalf("write %s: %v", filepath.Base(path), err)
		}
	}
	return ffmpeg, ffprobe
}

// MP4 returns the leading bytes of an M4A file whose index follows the
// media data
func MP4() []byte {
	return append([]byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A', ' '}, make([]byte, 20)...)
}

// Corrupt returns bytes that no decoder accepts
func Corrupt() []byte {
	return bytes.Repeat([]byte("not audio "), 64)
}
