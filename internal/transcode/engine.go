package transcode

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"baler/internal/config"
)

// ProgressUpdate captures transcode progress events.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
	Speed   float64
	FPS     float64
	ETA     time.Duration
}

// Request names the input and output of a single transcode.
type Request struct {
	InputPath  string
	OutputPath string
	Progress   func(ProgressUpdate)
}

// Result reports a finished transcode.
type Result struct {
	OutputPath string
	InputSize  int64
	OutputSize int64
	Elapsed    time.Duration
}

// Ratio returns output size over input size, or 0 when the input size is
// unknown.
func (r *Result) Ratio() float64 {
	if r == nil || r.InputSize <= 0 {
		return 0
	}
	return float64(r.OutputSize) / float64(r.InputSize)
}

// Engine converts one media file into its compressed form.
type Engine interface {
	Name() string
	Transcode(ctx context.Context, req Request) (*Result, error)
}

// New selects an engine implementation from the configured transcode engine.
func New(cfg *config.Config) (Engine, error) {
	switch cfg.Transcode.Engine {
	case config.EngineFFmpeg:
		return NewFFmpeg(cfg), nil
	case config.EngineDrapto:
		return NewDrapto(), nil
	default:
		return nil, fmt.Errorf("unsupported transcode engine %q", cfg.Transcode.Engine)
	}
}

// OutputName derives the output filename for an input. The container is
// always Matroska regardless of the source extension.
func OutputName(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem + ".mkv"
}
