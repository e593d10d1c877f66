// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

func TestGenerateSineWave(t *testing.T) {
	samples := GenerateSineWave(1000, 48000, 4800)
	if len(samples) != 4800 {
		t.Fatalf("expected 4800 samples, got %d", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("expected sine to start at 0, got %f", samples[0])
	}
	if peak := MaxAbs(samples); peak < 0.99 || peak > 1.0 {
		t.Errorf("expected unit amplitude, got peak %f", peak)
	}
}

func TestGenerateRamp(t *testing.T) {
	samples := GenerateRamp(10, 4)
	want := []float32{10, 11, 12, 13}
	for i, v := range want {
		if samples[i] != v {
			t.Errorf("sample %d: expected %f, got %f", i, v, samples[i])
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		desc       string
		freq       float64
		sampleRate float64
		n          int
	}{
		{desc: "1 kHz at 48 kHz", freq: 1000, sampleRate: 48000, n: 4800},
		{desc: "440 Hz at 44.1 kHz", freq: 440, sampleRate: 44100, n: 8192},
		{desc: "1200 Hz click tone", freq: 1200, sampleRate: 48000, n: 1920},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			samples := GenerateSineWave(tt.freq, tt.sampleRate, tt.n)
			got := DominantFrequency(samples, tt.sampleRate)
			resolution := tt.sampleRate / float64(tt.n)
			if math.Abs(got-tt.freq) > resolution {
				t.Errorf("expected ~%.0f Hz, got %.1f Hz (resolution %.1f)",
					tt.freq, got, resolution)
			}
		})
	}
}

func TestDominantFrequencyEmpty(t *testing.T) {
	if got := DominantFrequency(nil, 48000); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
}
