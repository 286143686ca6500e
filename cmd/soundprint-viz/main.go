// Command soundprint-viz renders a waveform's spectrogram as a PNG with the
// recognizer's selected peaks overlaid, for inspecting why a track was (or
// wasn't) identified.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"path/filepath"
	"time"

	"github.com/eligwz/spectrogram"

	"github.com/soundprint/soundprint/internal/audio"
	"github.com/soundprint/soundprint/pkg/soundprint"
)

func main() {
	inputPath := flag.String("in", "", "audio file to render")
	outputPath := flag.String("out", "", "PNG output path (default: <input>.png)")
	tempDir := flag.String("temp", "/tmp", "scratch directory for conversion")
	rate := flag.Int("rate", 11025, "target fingerprinting rate")
	height := flag.Int("height", 512, "image height in pixels (frequency bins)")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("usage: soundprint-viz -in <audio_file> [-out <png>]")
	}
	if *outputPath == "" {
		*outputPath = *inputPath + ".png"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	converted, err := audio.ConvertToMonoWAV(ctx, *inputPath, *tempDir, audio.ConvertConfig{TargetRate: *rate})
	if err != nil {
		log.Fatalf("converting %s: %v", *inputPath, err)
	}
	samples, sr, err := audio.ReadWAV(converted)
	if err != nil {
		log.Fatalf("reading %s: %v", converted, err)
	}

	engine, err := soundprint.New(soundprint.WithTargetRate(*rate))
	if err != nil {
		log.Fatalf("building engine: %v", err)
	}

	diag, err := engine.Analyze(samples, sr)
	if err != nil {
		log.Fatalf("analyzing %s: %v", *inputPath, err)
	}

	width := 2048
	img := spectrogram.NewImage128(image.Rect(0, 0, width, *height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		diag.Resampled,
		uint32(diag.ResampledHz),
		uint32(*height),
		false, // RECTANGLE: use a Hamming window
		false, // DFT: use FFT
		true,  // MAG: magnitude
		false, // LOG10: linear scale
	)

	overlayPeaks(img, diag, width, *height)

	if err := spectrogram.SavePng(img, *outputPath); err != nil {
		log.Fatalf("saving %s: %v", *outputPath, err)
	}

	fmt.Printf("wrote %s (%d peaks, %d fingerprints)\n", filepath.Clean(*outputPath), len(diag.Peaks), len(diag.Fingerprints))
}

// overlayPeaks marks every selected peak in red, scaling the recognizer's
// own (frame, bin) coordinates onto the rendered image's pixel grid.
func overlayPeaks(img draw.Image, diag soundprint.Diagnostics, width, height int) {
	if diag.Spectrogram == nil || diag.Spectrogram.Frames() == 0 || diag.Spectrogram.Bins() == 0 {
		return
	}
	frames := diag.Spectrogram.Frames()
	bins := diag.Spectrogram.Bins()
	red := color.RGBA{R: 255, G: 32, B: 32, A: 255}

	for _, p := range diag.Peaks {
		x := p.Frame * width / frames
		y := height - 1 - (p.Bin * height / bins)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				px, py := x+dx, y+dy
				if px >= 0 && px < width && py >= 0 && py < height {
					img.Set(px, py, red)
				}
			}
		}
	}
}
