// Package audio handles waveform ingestion: decoding WAV files, converting
// arbitrary containers to mono PCM via ffmpeg, and pulling audio down from
// YouTube. None of it is part of the core fingerprinting pipeline — the
// core only ever sees a decoded []float64 plus a sample rate.
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a WAV file into mono float64 samples in [-1, 1] and its
// sample rate. Multi-channel files are downmixed by averaging channels.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: reading duration of %s: %w", path, err)
	}
	totalSamples := int(duration.Seconds()*float64(decoder.SampleRate)) * int(decoder.NumChans)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: int(decoder.NumChans),
			SampleRate:  int(decoder.SampleRate),
		},
		Data:           make([]int, totalSamples),
		SourceBitDepth: int(decoder.BitDepth),
	}
	if _, err := decoder.PCMBuffer(buf); err != nil {
		return nil, 0, fmt.Errorf("audio: reading PCM data from %s: %w", path, err)
	}

	samples, err := toMonoFloat64(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: %s: %w", path, err)
	}
	return samples, int(decoder.SampleRate), nil
}

// toMonoFloat64 normalizes an audio.IntBuffer to [-1, 1] and averages
// channels down to mono.
func toMonoFloat64(buf *audio.IntBuffer) ([]float64, error) {
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	maxVal := float64(int(1) << (uint(buf.SourceBitDepth) - 1))
	if maxVal == 0 {
		maxVal = 1 << 15
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / maxVal
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}
