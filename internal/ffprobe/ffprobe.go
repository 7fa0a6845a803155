// Package ffprobe shells out to ffprobe and decodes its JSON report.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Report is the decoded ffprobe output for one media file.
type Report struct {
	Streams []Stream  `json:"streams"`
	Format  Container `json:"format"`
}

// Stream is one elementary stream inside the container.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Duration  string `json:"duration"`
}

// Container is the format-level section of the report.
type Container struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Inspect probes path and returns the decoded report. An empty binary name
// falls back to "ffprobe" on PATH. The tool is killed when ctx is canceled.
func Inspect(ctx context.Context, binary, path string) (Report, error) {
	if strings.TrimSpace(path) == "" {
		return Report{}, errors.New("probe: empty path")
	}
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := firstLine(stderr.String()); detail != "" {
			return Report{}, fmt.Errorf("probe %s: %w: %s", filepath.Base(path), err, detail)
		}
		return Report{}, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}

	var report Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return Report{}, fmt.Errorf("probe %s: decode report: %w", filepath.Base(path), err)
	}
	return report, nil
}

// Duration reports the container duration in seconds. Missing or unparsable
// values come back as 0 so callers only need a positive check.
func (r Report) Duration() float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// StreamCount reports how many streams carry the given codec type,
// for example "video" or "audio".
func (r Report) StreamCount(codecType string) int {
	n := 0
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
