package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"baler/internal/ffprobe"
	"baler/internal/testsupport"
)

func stubProbeDuration(t *testing.T, seconds float64) {
	t.Helper()
	original := ffmpegProbe
	ffmpegProbe = func(ctx context.Context, binary, path string) (ffprobe.Report, error) {
		return ffprobe.Report{Format: ffprobe.Container{Duration: fmt.Sprintf("%f", seconds)}}, nil
	}
	t.Cleanup(func() {
		ffmpegProbe = original
	})
}

func setFFmpegHelper(t *testing.T, mode string, captured *[][]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append(*captured, append([]string{name}, args...))
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode),
			fmt.Sprintf("FFMPEG_HELPER_OUTPUT=%s", args[len(args)-1]),
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestFFmpegArgsFollowConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcode.VideoCodec = "libsvtav1"
	cfg.Transcode.Preset = "4"
	cfg.Transcode.Quality = 30
	cfg.Transcode.AudioCodec = "libopus"
	cfg.Transcode.AudioBitrate = "96k"
	cfg.Transcode.ExtraArgs = []string{"-pix_fmt", "yuv420p10le"}

	engine := NewFFmpeg(cfg)
	args := engine.args("/in/movie.mkv", "/out/movie.mkv")

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /in/movie.mkv",
		"-c:v libsvtav1",
		"-preset 4",
		"-crf 30",
		"-c:a libopus",
		"-b:a 96k",
		"-pix_fmt yuv420p10le",
		"-progress pipe:1",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected args to contain %q, got %v", want, args)
		}
	}
	if args[len(args)-1] != "/out/movie.mkv" {
		t.Fatalf("expected output path last, got %q", args[len(args)-1])
	}
}

func TestFFmpegTranscodeReportsProgress(t *testing.T) {
	var captured [][]string
	setFFmpegHelper(t, "success", &captured)
	stubProbeDuration(t, 60)

	cfg := testsupport.NewConfig(t)
	engine := NewFFmpeg(cfg)

	input := filepath.Join(cfg.Paths.StagingDir, "movie.mkv")
	testsupport.WriteFile(t, input, 8192)
	output := filepath.Join(cfg.Paths.StagingDir, "encoded", "movie.mkv")

	var updates []ProgressUpdate
	result, err := engine.Transcode(context.Background(), Request{
		InputPath:  input,
		OutputPath: output,
		Progress: func(update ProgressUpdate) {
			updates = append(updates, update)
		},
	})
	if err != nil {
		t.Fatalf("Transcode returned error: %v", err)
	}

	if result.OutputPath != output {
		t.Fatalf("expected output path %q, got %q", output, result.OutputPath)
	}
	if result.InputSize != 8192 {
		t.Fatalf("expected input size 8192, got %d", result.InputSize)
	}
	if result.OutputSize <= 0 {
		t.Fatalf("expected positive output size, got %d", result.OutputSize)
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	first := updates[0]
	if first.Percent != 50 {
		t.Fatalf("expected 50 percent after 30s of 60s, got %f", first.Percent)
	}
	if first.Speed != 2.0 {
		t.Fatalf("expected speed 2.0, got %f", first.Speed)
	}
	if first.ETA != 15*time.Second {
		t.Fatalf("expected eta 15s, got %s", first.ETA)
	}
	last := updates[len(updates)-1]
	if last.Percent != 100 {
		t.Fatalf("expected final update at 100 percent, got %f", last.Percent)
	}
}

func TestFFmpegTranscodeFailureRemovesOutput(t *testing.T) {
	setFFmpegHelper(t, "failure", nil)
	stubProbeDuration(t, 60)

	cfg := testsupport.NewConfig(t)
	engine := NewFFmpeg(cfg)

	input := filepath.Join(cfg.Paths.StagingDir, "movie.mkv")
	testsupport.WriteFile(t, input, 4096)
	output := filepath.Join(cfg.Paths.StagingDir, "encoded", "movie.mkv")

	_, err := engine.Transcode(context.Background(), Request{InputPath: input, OutputPath: output})
	if err == nil {
		t.Fatal("expected transcode failure")
	}
	if !strings.Contains(err.Error(), "no decoder found") {
		t.Fatalf("expected stderr detail in error, got %q", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed, stat err=%v", statErr)
	}
}

func TestFFmpegTranscodeRequiresPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := NewFFmpeg(cfg)

	if _, err := engine.Transcode(context.Background(), Request{OutputPath: "/tmp/out.mkv"}); err == nil {
		t.Fatal("expected error for missing input path")
	}
	if _, err := engine.Transcode(context.Background(), Request{InputPath: "/tmp/in.mkv"}); err == nil {
		t.Fatal("expected error for missing output path")
	}
}

func TestProgressParser(t *testing.T) {
	parser := newProgressParser(120)

	lines := []string{
		"frame=500",
		"fps=48.5",
		"out_time_us=30000000",
		"speed=1.5x",
		"progress=continue",
	}
	var update ProgressUpdate
	var emitted bool
	for _, line := range lines {
		if u, ok := parser.parseLine(line); ok {
			update = u
			emitted = true
		}
	}
	if !emitted {
		t.Fatal("expected parser to emit on progress line")
	}
	if update.Percent != 25 {
		t.Fatalf("expected 25 percent, got %f", update.Percent)
	}
	if update.FPS != 48.5 {
		t.Fatalf("expected fps 48.5, got %f", update.FPS)
	}
	if update.Speed != 1.5 {
		t.Fatalf("expected speed 1.5, got %f", update.Speed)
	}
	if update.ETA != time.Minute {
		t.Fatalf("expected eta 60s for 90s remaining at 1.5x, got %s", update.ETA)
	}
	if update.Stage != "encoding" {
		t.Fatalf("expected encoding stage, got %q", update.Stage)
	}

	final, ok := parser.parseLine("progress=end")
	if !ok {
		t.Fatal("expected emit on end")
	}
	if final.Percent != 100 || final.ETA != 0 {
		t.Fatalf("expected 100 percent and zero eta at end, got %f %s", final.Percent, final.ETA)
	}
}

func TestProgressParserWithoutDuration(t *testing.T) {
	parser := newProgressParser(0)
	parser.parseLine("out_time_us=30000000")
	update, ok := parser.parseLine("progress=continue")
	if !ok {
		t.Fatal("expected emit")
	}
	if update.Percent != 0 {
		t.Fatalf("expected percent to stay 0 without total duration, got %f", update.Percent)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	output := os.Getenv("FFMPEG_HELPER_OUTPUT")
	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		if output != "" {
			_ = os.WriteFile(output, make([]byte, 2048), 0o644)
		}
		fmt.Println("frame=720")
		fmt.Println("fps=48.0")
		fmt.Println("out_time_us=30000000")
		fmt.Println("speed=2.0x")
		fmt.Println("progress=continue")
		fmt.Println("out_time_us=60000000")
		fmt.Println("speed=2.0x")
		fmt.Println("progress=end")
		os.Exit(0)
	case "failure":
		if output != "" {
			_ = os.WriteFile(output, make([]byte, 16), 0o644)
		}
		fmt.Fprintln(os.Stderr, "Error while decoding stream: no decoder found")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
