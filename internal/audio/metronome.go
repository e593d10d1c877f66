// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"

	"capture/internal/config"

	"gonum.org/v1/gonum/dsp/window"
)

// Click constants. The burst is short enough that it can never overlap
// the next beat even at the maximum tempo (40ms < 200ms per beat at
// 300 BPM).
const (
	clickSeconds      = 0.040
	downbeatClickFreq = 1200.0
	offbeatClickFreq  = 800.0
)

// Metronome synthesizes click audio as a pure function of sample
// position and configuration. It carries no playback state of its own;
// the BeatClock it is rendered against determines which beats sound.
//
// Click waveforms are precomputed at construction: envelope-shaped sine
// bursts (Hann window, so amplitude is zero at both burst edges and
// there is no discontinuity). The audio callback only adds table
// samples — no synthesis, no allocation.
//
// All configuration fields are atomics; setters are control-path,
// getters are safe on either path.
type Metronome struct {
	sampleRate float64
	downbeat   []float32 // 1200 Hz burst for beat 0 of the bar
	offbeat    []float32 // 800 Hz burst for the other beats

	enabled     atomic.Bool
	tempoBits   atomic.Uint64 // float64 BPM
	beatsPerBar atomic.Uint32
	beatUnit    atomic.Uint32
	volumeBits  atomic.Uint32 // float32 gain
}

// NewMetronome creates a metronome with precomputed click tables for
// the given sample rate, configured from cfg.
func NewMetronome(sampleRate float64, cfg config.MetronomeConfig) *Metronome {
	m := &Metronome{
		sampleRate: sampleRate,
		downbeat:   clickTable(sampleRate, downbeatClickFreq),
		offbeat:    clickTable(sampleRate, offbeatClickFreq),
	}
	m.enabled.Store(cfg.Enabled)
	m.SetTempo(cfg.TempoBPM)
	m.SetBeatsPerBar(cfg.BeatsPerBar)
	m.SetBeatUnit(cfg.BeatUnit)
	m.SetVolume(float32(cfg.Volume))
	return m
}

// clickTable builds one envelope-shaped sine burst.
func clickTable(sampleRate, freq float64) []float32 {
	n := int(math.Round(clickSeconds * sampleRate))
	if n < 2 {
		n = 2
	}
	env := make([]float64, n)
	for i := range env {
		env[i] = 1
	}
	window.Hann(env)

	table := make([]float32, n)
	for i := range table {
		t := float64(i) / sampleRate
		table[i] = float32(math.Sin(2*math.Pi*freq*t) * env[i])
	}
	return table
}

// SetEnabled toggles click audibility. The beat clock keeps advancing
// while disabled so re-enabling stays in sync.
func (m *Metronome) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Enabled reports whether clicks are audible.
func (m *Metronome) Enabled() bool {
	return m.enabled.Load()
}

// SetTempo sets the tempo in BPM, clamped to [MinTempoBPM, MaxTempoBPM].
// Effective from the next block's boundary computations.
func (m *Metronome) SetTempo(bpm float64) {
	if bpm < config.MinTempoBPM {
		bpm = config.MinTempoBPM
	}
	if bpm > config.MaxTempoBPM {
		bpm = config.MaxTempoBPM
	}
	m.tempoBits.Store(math.Float64bits(bpm))
}

// Tempo returns the current tempo in BPM.
func (m *Metronome) Tempo() float64 {
	return math.Float64frombits(m.tempoBits.Load())
}

// SetBeatsPerBar sets the time signature numerator. Values below 1 clamp to 1.
func (m *Metronome) SetBeatsPerBar(n int) {
	if n < 1 {
		n = 1
	}
	m.beatsPerBar.Store(uint32(n))
}

// BeatsPerBar returns the time signature numerator.
func (m *Metronome) BeatsPerBar() int {
	return int(m.beatsPerBar.Load())
}

// SetBeatUnit sets the time signature denominator. Values below 1 clamp to 1.
func (m *Metronome) SetBeatUnit(n int) {
	if n < 1 {
		n = 1
	}
	m.beatUnit.Store(uint32(n))
}

// BeatUnit returns the time signature denominator.
func (m *Metronome) BeatUnit() int {
	return int(m.beatUnit.Load())
}

// SetVolume sets the click gain, clamped to [0, 1].
func (m *Metronome) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.volumeBits.Store(math.Float32bits(v))
}

// Volume returns the click gain.
func (m *Metronome) Volume() float32 {
	return math.Float32frombits(m.volumeBits.Load())
}

// SamplesPerBeat returns the current beat length in samples.
func (m *Metronome) SamplesPerBeat() float64 {
	return 60.0 / m.Tempo() * m.sampleRate
}

// ClickLen returns the click burst length in samples.
func (m *Metronome) ClickLen() int {
	return len(m.downbeat)
}

// Render adds click audio for the block [start, start+frames) into out,
// which holds frames*channels interleaved samples. Disabled renders
// nothing. Audio callback safe: no allocation, no locks.
func (m *Metronome) Render(out []float32, channels int, start uint64, frames int) {
	if !m.enabled.Load() || frames == 0 {
		return
	}
	vol := m.Volume()
	if vol == 0 {
		return
	}
	spb := m.SamplesPerBeat()
	bpb := uint64(m.beatsPerBar.Load())
	end := start + uint64(frames)
	clickLen := uint64(len(m.downbeat))

	// First beat whose click could overlap this block. Step back one to
	// catch a burst tail that started in the previous block, then skip
	// forward past any that ended before the block.
	k := uint64(float64(start) / spb)
	if k > 0 {
		k--
	}
	for {
		b := uint64(math.Round(float64(k) * spb))
		if b >= end {
			return
		}
		if b+clickLen > start {
			click := m.offbeat
			if k%bpb == 0 {
				click = m.downbeat
			}
			from := b
			if from < start {
				from = start
			}
			to := b + clickLen
			if to > end {
				to = end
			}
			for p := from; p < to; p++ {
				s := click[p-b] * vol
				f := int(p-start) * channels
				for c := 0; c < channels; c++ {
					out[f+c] += s
				}
			}
		}
		k++
	}
}
