// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// Clip is a finalized recording: immutable interleaved float32 samples
// plus the format needed to place it on a timeline.
type Clip struct {
	ID         uuid.UUID
	SampleRate int
	Channels   int
	Samples    []float32
}

// NewClip wraps finalized samples in a Clip. The Clip takes ownership
// of the slice; callers must not mutate it afterwards.
func NewClip(sampleRate, channels int, samples []float32) *Clip {
	return &Clip{
		ID:         uuid.New(),
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// WriteWAV saves the clip to a PCM WAV file at the given bit depth
// (16, 24 or 32). Float samples are scaled to the integer full scale;
// values outside [-1, 1] wrap rather than clip, matching the engine's
// no-limiting policy.
func (c *Clip) WriteWAV(path string, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, c.SampleRate, bitDepth, c.Channels, 1)

	scale := float64(int64(1)<<(bitDepth-1)) - 1
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: c.Channels,
			SampleRate:  c.SampleRate,
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(c.Samples)),
	}
	for i, s := range c.Samples {
		buf.Data[i] = int(float64(s) * scale)
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}
