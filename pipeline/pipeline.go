// Package pipeline wires decoding, feature extraction, labelling and bid
// request assembly into the single call the transport adapters use.
package pipeline

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/jinglegen/jinglegen/analysis"
	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/labels"
	"github.com/jinglegen/jinglegen/logging"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/transcode"
)

// Result is the outcome of analysing one clip
type Result struct {
	Audio   *transcode.AudioData      `json:"audio"`
	Raw     analysis.RawDescriptors   `json:"raw"`
	Labeled labels.LabeledDescriptors `json:"labeled"`
}

// Input is one analysis request as handed over by a transport adapter
type Input struct {
	Data []byte
	// Path, when set, names a file holding the audio and takes precedence
	// over Data. Filename still supplies the format hint.
	Path       string
	Filename   string
	Transcript string
	Device     *ortb.DeviceContext
}

// Combined is the serialised success response
type Combined struct {
	AudioAnalysis labels.LabeledDescriptors `json:"audio_analysis"`
	OrtbRequest   *ortb.BidRequest          `json:"ortb_request"`
}

// Analyzer runs the full pipeline. It holds only read-only collaborators
// and is safe for concurrent use.
type Analyzer struct {
	decoder   *transcode.Decoder
	extractor *analysis.Extractor
	assembler *ortb.Assembler
}

// NewAnalyzer creates an analyzer. Nil collaborators get defaults: the
// default decoder, a silent extractor and the local profile.
func NewAnalyzer(decoder *transcode.Decoder, extractor *analysis.Extractor, assembler *ortb.Assembler) *Analyzer {
	if decoder == nil {
		decoder = transcode.NewDecoder(nil)
	}
	if extractor == nil {
		extractor = analysis.NewExtractor(analysis.DefaultExtractorConfig(), nil)
	}
	if assembler == nil {
		assembler = ortb.NewAssembler(ortb.LocalProfile())
	}
	return &Analyzer{decoder: decoder, extractor: extractor, assembler: assembler}
}

// Analyze decodes data, extracts descriptors and labels them. On failure
// no partial descriptors are returned.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, filenameHint string) (*Result, error) {
	return a.analyze(ctx, filenameHint, func() (*transcode.AudioData, error) {
		return a.decoder.Decode(ctx, data, filenameHint)
	})
}

// AnalyzeFile is Analyze over a file on disk. filenameHint names the
// container when path carries no useful extension.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path, filenameHint string) (*Result, error) {
	return a.analyze(ctx, filenameHint, func() (*transcode.AudioData, error) {
		return a.decoder.DecodeFile(ctx, path, filenameHint)
	})
}

func (a *Analyzer) analyze(ctx context.Context, filenameHint string, decode func() (*transcode.AudioData, error)) (*Result, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "analyzer",
		"filename":  filenameHint,
	})

	start := time.Now()
	audio, err := decode()
	if err != nil {
		return nil, err
	}
	a.extractor.Observer().StageCompleted(analysis.StageDecode, time.Since(start))

	if err := ctx.Err(); err != nil {
		return nil, audioerr.NewAnalysisError("analysis cancelled", err)
	}

	raw, err := a.extractor.Extract(audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio analysed", logging.Fields{
		"duration":    audio.Duration.Seconds(),
		"sample_rate": audio.SampleRate,
		"tempo_bpm":   raw.MusicalCharacteristics.TempoBPM,
		"onset_count": raw.RhythmAnalysis.OnsetCount,
	})

	return &Result{
		Audio:   audio,
		Raw:     *raw,
		Labeled: labels.Classify(*raw),
	}, nil
}

// AnalyzeReader is Analyze over an io.Reader
func (a *Analyzer) AnalyzeReader(ctx context.Context, r io.Reader, filenameHint string) (*Result, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, audioerr.NewDecodeError("failed to read audio data", err)
	}
	return a.Analyze(ctx, buf.Bytes(), filenameHint)
}

// BuildBidRequest assembles a bid request for already-labelled descriptors
func (a *Analyzer) BuildBidRequest(labeled labels.LabeledDescriptors, transcript string, device *ortb.DeviceContext) *ortb.BidRequest {
	return a.assembler.Assemble(labeled, transcript, device)
}

// Run analyses in and builds the combined response
func (a *Analyzer) Run(ctx context.Context, in Input) (*Combined, error) {
	var (
		result *Result
		err    error
	)
	if in.Path != "" {
		result, err = a.AnalyzeFile(ctx, in.Path, in.Filename)
	} else {
		result, err = a.Analyze(ctx, in.Data, in.Filename)
	}
	if err != nil {
		return nil, err
	}
	return &Combined{
		AudioAnalysis: result.Labeled,
		OrtbRequest:   a.BuildBidRequest(result.Labeled, in.Transcript, in.Device),
	}, nil
}
