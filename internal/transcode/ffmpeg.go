package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"baler/internal/config"
	"baler/internal/ffprobe"
)

var (
	commandContext = exec.CommandContext
	ffmpegProbe    = ffprobe.Inspect
)

// FFmpeg wraps the ffmpeg command-line encoder. Encoder parameters come from
// the transcode configuration section.
type FFmpeg struct {
	binary      string
	probeBinary string
	settings    config.Transcode
}

// NewFFmpeg constructs an ffmpeg engine from configuration.
func NewFFmpeg(cfg *config.Config) *FFmpeg {
	return &FFmpeg{
		binary:      cfg.FFmpegBinary(),
		probeBinary: cfg.FFprobeBinary(),
		settings:    cfg.Transcode,
	}
}

// Name identifies the engine in logs and status output.
func (f *FFmpeg) Name() string { return config.EngineFFmpeg }

func (f *FFmpeg) args(input, output string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", input,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-c:v", f.settings.VideoCodec,
		"-preset", f.settings.Preset,
		"-crf", strconv.Itoa(f.settings.Quality),
		"-c:a", f.settings.AudioCodec,
		"-b:a", f.settings.AudioBitrate,
	}
	args = append(args, f.settings.ExtraArgs...)
	return append(args, "-progress", "pipe:1", "-loglevel", "error", output)
}

// Transcode launches ffmpeg and streams progress until the encode finishes.
// A failed or cancelled encode removes the partial output file.
func (f *FFmpeg) Transcode(ctx context.Context, req Request) (*Result, error) {
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

	// Container duration drives percent reporting; a probe failure only
	// degrades progress output.
	var durationSeconds float64
	if probe, probeErr := ffmpegProbe(ctx, f.probeBinary, req.InputPath); probeErr == nil {
		durationSeconds = probe.Duration()
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	started := time.Now()
	cmd := commandContext(ctx, f.binary, f.args(req.InputPath, req.OutputPath)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	parser := newProgressParser(durationSeconds)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if update, ok := parser.parseLine(scanner.Text()); ok && req.Progress != nil {
			req.Progress(update)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		_ = cmd.Wait()
		_ = os.Remove(req.OutputPath)
		return nil, fmt.Errorf("read ffmpeg output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(req.OutputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return nil, fmt.Errorf("ffmpeg encode failed: %w", err)
		}
		const maxDetail = 400
		if len(detail) > maxDetail {
			detail = "..." + detail[len(detail)-maxDetail:]
		}
		return nil, fmt.Errorf("ffmpeg encode failed: %w: %s", err, detail)
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

// progressParser accumulates the key=value blocks ffmpeg writes with
// -progress pipe:1 and emits one update per block terminator.
type progressParser struct {
	totalSeconds float64
	doneSeconds  float64
	current      ProgressUpdate
}

func newProgressParser(totalSeconds float64) *progressParser {
	return &progressParser{
		totalSeconds: totalSeconds,
		current:      ProgressUpdate{Stage: "encoding"},
	}
}

func (p *progressParser) parseLine(line string) (ProgressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.doneSeconds = float64(us) / 1e6
			if p.totalSeconds > 0 {
				p.current.Percent = clampPercent(p.doneSeconds / p.totalSeconds * 100)
			}
		}
	case "fps":
		if fps, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = fps
		}
	case "speed":
		if speed, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.current.Speed = speed
		}
	case "progress":
		if value == "end" {
			p.current.Percent = 100
			p.current.ETA = 0
		} else {
			p.current.ETA = p.eta()
		}
		return p.current, true
	}
	return ProgressUpdate{}, false
}

func (p *progressParser) eta() time.Duration {
	if p.totalSeconds <= 0 || p.current.Speed <= 0 {
		return 0
	}
	remaining := p.totalSeconds - p.doneSeconds
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining / p.current.Speed * float64(time.Second))
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

var _ Engine = (*FFmpeg)(nil)
