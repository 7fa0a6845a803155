package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	draptolib "github.com/five82/drapto"

	"baler/internal/config"
)

// Drapto implements Engine using the drapto Go library directly. The library
// owns its encoder parameters (AV1 with opinionated defaults), so the
// transcode codec settings only apply to the ffmpeg engine.
type Drapto struct{}

// NewDrapto constructs a drapto library engine.
func NewDrapto() *Drapto {
	return &Drapto{}
}

// Name identifies the engine in logs and status output.
func (d *Drapto) Name() string { return config.EngineDrapto }

// Transcode encodes a video file using the drapto library.
func (d *Drapto) Transcode(ctx context.Context, req Request) (*Result, error) {
	if req.InputPath == "" {
		return nil, errors.New("input path required")
	}
	if req.OutputPath == "" {
		return nil, errors.New("output path required")
	}

	inputInfo, err := os.Stat(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	outputDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return nil, fmt.Errorf("initialize drapto: %w", err)
	}

	var rep draptolib.Reporter
	if req.Progress != nil {
		rep = newProgressReporter(req.Progress)
	}

	started := time.Now()
	if _, err := encoder.EncodeWithReporter(ctx, req.InputPath, outputDir, rep); err != nil {
		return nil, fmt.Errorf("drapto encode: %w", err)
	}

	// The library names its output after the input stem.
	produced := filepath.Join(outputDir, OutputName(req.InputPath))
	if produced != req.OutputPath {
		if err := os.Rename(produced, req.OutputPath); err != nil {
			return nil, fmt.Errorf("move drapto output: %w", err)
		}
	}

	outputInfo, err := os.Stat(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	return &Result{
		OutputPath: req.OutputPath,
		InputSize:  inputInfo.Size(),
		OutputSize: outputInfo.Size(),
		Elapsed:    time.Since(started),
	}, nil
}

var _ Engine = (*Drapto)(nil)
