// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// BeatClock is the single source of truth for "which beat are we on",
// shared by the metronome and the recorder's count-in. It counts samples
// monotonically from session start and derives beat boundaries from the
// tempo.
//
// Beat boundary k falls on sample round(k * secondsPerBeat * sampleRate),
// computed from an accumulating beat index rather than a running modulo,
// so rounding error never accumulates over a long session.
//
// pos and beat are owned by the audio callback. The control path
// observes position through Pos() and requests repositioning through
// Seek/Reset; the callback applies pending requests at block start.
type BeatClock struct {
	sampleRate float64

	pos  uint64 // absolute sample position, callback-owned
	beat uint64 // index of the next boundary >= pos, callback-owned

	published atomic.Uint64 // pos mirror for control-path reads
	pending   atomic.Int64  // requested seek target, -1 when none
}

// NewBeatClock creates a clock at position 0.
func NewBeatClock(sampleRate float64) *BeatClock {
	c := &BeatClock{sampleRate: sampleRate}
	c.pending.Store(-1)
	return c
}

// Pos returns the clock's sample position as last published by the
// audio callback.
func (c *BeatClock) Pos() uint64 {
	return c.published.Load()
}

// Seek requests that the callback move the clock to the given sample
// position at the next block boundary. Control path.
func (c *BeatClock) Seek(sample uint64) {
	c.pending.Store(int64(sample))
}

// Reset requests a seek to position 0. Control path.
func (c *BeatClock) Reset() {
	c.Seek(0)
}

// ApplyPending applies a requested seek, if any, and realigns the beat
// index for the given beat length. Audio callback, block start only.
func (c *BeatClock) ApplyPending(samplesPerBeat float64) {
	p := c.pending.Swap(-1)
	if p < 0 {
		return
	}
	c.pos = uint64(p)
	c.published.Store(c.pos)
	c.realign(samplesPerBeat)
}

// realign sets beat to the first boundary index at or after pos.
func (c *BeatClock) realign(samplesPerBeat float64) {
	if samplesPerBeat <= 0 {
		c.beat = 0
		return
	}
	k := uint64(float64(c.pos) / samplesPerBeat)
	for c.Boundary(k, samplesPerBeat) < c.pos {
		k++
	}
	for k > 0 && c.Boundary(k-1, samplesPerBeat) >= c.pos {
		k--
	}
	c.beat = k
}

// Boundary returns the sample index of beat boundary k.
func (c *BeatClock) Boundary(k uint64, samplesPerBeat float64) uint64 {
	return uint64(math.Round(float64(k) * samplesPerBeat))
}

// NextBoundary returns the sample index of the next unprocessed beat
// boundary. Audio callback only.
func (c *BeatClock) NextBoundary(samplesPerBeat float64) uint64 {
	return c.Boundary(c.beat, samplesPerBeat)
}

// AdvanceBeat marks the next boundary as processed and returns its
// index. Audio callback only.
func (c *BeatClock) AdvanceBeat() uint64 {
	k := c.beat
	c.beat++
	return k
}

// Advance moves the clock forward by frames samples and publishes the
// new position. Audio callback, block end only.
func (c *BeatClock) Advance(frames uint64) {
	c.pos += frames
	c.published.Store(c.pos)
}
