package transcode

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies an audio container
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOGG     Format = "ogg"
	FormatFLAC    Format = "flac"
	FormatM4A     Format = "m4a"
	FormatAAC     Format = "aac"
	FormatWebM    Format = "webm"
	FormatOpus    Format = "opus"
)

// Native reports whether the format is decoded in-process without ffmpeg
func (f Format) Native() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatOGG:
		return true
	default:
		return false
	}
}

var extensions = map[string]Format{
	"wav":  FormatWAV,
	"wave": FormatWAV,
	"mp3":  FormatMP3,
	"ogg":  FormatOGG,
	"oga":  FormatOGG,
	"flac": FormatFLAC,
	"m4a":  FormatM4A,
	"mp4":  FormatM4A,
	"aac":  FormatAAC,
	"webm": FormatWebM,
	"opus": FormatOpus,
}

// FormatFromHint maps a filename or bare extension ("song.MP3", ".wav",
// "ogg") to a format.
func FormatFromHint(hint string) Format {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return FormatUnknown
	}

	ext := strings.TrimPrefix(filepath.Ext(hint), ".")
	if ext == "" {
		ext = strings.TrimPrefix(hint, ".")
	}
	return extensions[ext]
}

// Sniff identifies a container from its leading bytes
func Sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOGG
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return FormatM4A
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xF6 == 0xF0:
		// ADTS sync, layer bits 00
		return FormatAAC
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// ResolveFormat prefers the hint and falls back to sniffing. A hint that
// names a native format the bytes contradict is overridden by the sniffed
// container, so a mislabelled upload still decodes.
func ResolveFormat(hint string, data []byte) Format {
	fromHint := FormatFromHint(hint)
	sniffed := Sniff(data)

	switch {
	case fromHint == FormatUnknown:
		return sniffed
	case sniffed != FormatUnknown && sniffed != fromHint && fromHint.Native():
		return sniffed
	default:
		return fromHint
	}
}
