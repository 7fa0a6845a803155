package transcode

import (
	"context"
	"fmt"
	"math"
	"os"

	"baler/internal/ffprobe"
	"baler/internal/services"
)

var verifyProbe = ffprobe.Inspect

// minOutputFileSizeBytes rejects outputs where the encoder wrote little more
// than a container header before dying.
const minOutputFileSizeBytes = 1024

// CheckIntegrity probes a media file and verifies it holds a decodable
// container with video and audio streams and a positive duration. The probe
// result is returned so callers can reuse it.
func CheckIntegrity(ctx context.Context, binary, path string) (ffprobe.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ffprobe.Report{}, services.Wrap(
			services.ErrValidation,
			"verifying",
			"stat file",
			fmt.Sprintf("File %q is not readable", path),
			err,
		)
	}
	if info.IsDir() {
		return ffprobe.Report{}, services.Wrap(
			services.ErrValidation,
			"verifying",
			"stat file",
			fmt.Sprintf("Path %q is a directory", path),
			nil,
		)
	}
	if info.Size() < minOutputFileSizeBytes {
		return ffprobe.Report{}, services.Wrap(
			services.ErrValidation,
			"verifying",
			"check size",
			fmt.Sprintf("File %q is unexpectedly small (%d bytes)", path, info.Size()),
			nil,
		)
	}

	probe, err := verifyProbe(ctx, binary, path)
	if err != nil {
		return ffprobe.Report{}, services.Wrap(
			services.ErrExternalTool,
			"verifying",
			"ffprobe",
			fmt.Sprintf("Failed to inspect %q", path),
			err,
		)
	}
	if probe.StreamCount("video") == 0 {
		return probe, services.Wrap(
			services.ErrValidation,
			"verifying",
			"check video stream",
			fmt.Sprintf("File %q does not contain a video stream", path),
			nil,
		)
	}
	if probe.StreamCount("audio") == 0 {
		return probe, services.Wrap(
			services.ErrValidation,
			"verifying",
			"check audio stream",
			fmt.Sprintf("File %q does not contain an audio stream", path),
			nil,
		)
	}
	if probe.Duration() <= 0 {
		return probe, services.Wrap(
			services.ErrValidation,
			"verifying",
			"check duration",
			fmt.Sprintf("Duration of %q could not be determined", path),
			nil,
		)
	}
	return probe, nil
}

// CompareDurations verifies the output duration stays within tolerance
// seconds of the source duration.
func CompareDurations(source, output ffprobe.Report, tolerance float64) error {
	sourceSeconds := source.Duration()
	outputSeconds := output.Duration()
	if sourceSeconds <= 0 || outputSeconds <= 0 {
		return services.Wrap(
			services.ErrValidation,
			"verifying",
			"compare durations",
			"Durations could not be determined for comparison",
			nil,
		)
	}
	if diff := math.Abs(sourceSeconds - outputSeconds); diff > tolerance {
		return services.Wrap(
			services.ErrIntegrity,
			"verifying",
			"compare durations",
			fmt.Sprintf("Output duration %.2fs drifts %.2fs from source %.2fs (tolerance %.2fs)", outputSeconds, diff, sourceSeconds, tolerance),
			nil,
		)
	}
	return nil
}

// VerifyOutput runs the deep post-transcode checks: output integrity plus a
// duration comparison against the source when sourcePath is supplied.
func VerifyOutput(ctx context.Context, binary, sourcePath, outputPath string, tolerance float64) error {
	outputProbe, err := CheckIntegrity(ctx, binary, outputPath)
	if err != nil {
		return err
	}
	if sourcePath == "" {
		return nil
	}
	sourceProbe, err := verifyProbe(ctx, binary, sourcePath)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"verifying",
			"ffprobe source",
			fmt.Sprintf("Failed to inspect %q", sourcePath),
			err,
		)
	}
	return CompareDurations(sourceProbe, outputProbe, tolerance)
}
