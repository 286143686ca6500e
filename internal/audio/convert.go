package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/soundprint/soundprint/pkg/utils"
)

// ConvertConfig controls how ConvertToMonoWAV invokes ffmpeg.
type ConvertConfig struct {
	// TargetRate is the output sample rate in Hz. The recognizer's own
	// Resampler still runs afterward, but handing ffmpeg the target rate
	// up front avoids decimating audio the recognizer would resample away
	// anyway.
	TargetRate int
	// Timeout bounds the ffmpeg invocation. Zero means 30 seconds.
	Timeout time.Duration
}

// DefaultConvertConfig matches the recognizer's default ingestion rate.
func DefaultConvertConfig() ConvertConfig {
	return ConvertConfig{TargetRate: 11025, Timeout: 30 * time.Second}
}

// ConvertToMonoWAV shells out to ffmpeg to downmix inputPath to mono
// 16-bit PCM WAV at cfg.TargetRate, writing the result under outputDir
// using the input's base name. The conversion is atomic: ffmpeg writes to
// a temp file in outputDir, and only a successful run is moved into place.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertConfig) (string, error) {
	if cfg.TargetRate == 0 {
		cfg.TargetRate = 11025
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("audio: creating output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(inputPath)+".wav")
	tmpPath := outputPath + ".tmp"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", cfg.TargetRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("audio: ffmpeg conversion timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("audio: ffmpeg conversion failed: %w (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", fmt.Errorf("audio: moving converted file into place: %w", err)
	}
	return outputPath, nil
}
