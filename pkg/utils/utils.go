// SPDX-License-Identifier: MIT
//
// Package utils provides small signal helpers shared by tests across
// the audio packages.
package utils

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// GenerateSineWave produces n samples of a unit sine at the given
// frequency.
func GenerateSineWave(freq, sampleRate float64, n int) []float32 {
	out := make([]float32, n)
	step := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = float32(math.Sin(step * float64(i)))
	}
	return out
}

// GenerateRamp produces n samples counting up from start in unit steps.
// Handy for asserting exact sample routing.
func GenerateRamp(start float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = start + float32(i)
	}
	return out
}

// MaxAbs returns the largest absolute sample value.
func MaxAbs(samples []float32) float32 {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// DominantFrequency returns the frequency of the strongest FFT bin in
// the signal. Resolution is sampleRate/len(samples).
func DominantFrequency(samples []float32, sampleRate float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	seq := make([]float64, len(samples))
	for i, v := range samples {
		seq[i] = float64(v)
	}
	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	bestBin := 0
	bestMag := 0.0
	for i, c := range coeffs {
		mag := real(c)*real(c) + imag(c)*imag(c)
		if mag > bestMag {
			bestMag = mag
			bestBin = i
		}
	}
	return fft.Freq(bestBin) * sampleRate
}
