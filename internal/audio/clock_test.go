// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestBeatClockBoundaryRounding(t *testing.T) {
	c := NewBeatClock(48000)

	// 120 BPM at 48 kHz: exactly 24000 samples per beat.
	spb := 24000.0
	for k := uint64(0); k < 16; k++ {
		if got := c.Boundary(k, spb); got != k*24000 {
			t.Errorf("boundary %d: expected %d, got %d", k, k*24000, got)
		}
	}
}

func TestBeatClockNoAccumulatedDrift(t *testing.T) {
	c := NewBeatClock(44100)

	// 130 BPM at 44.1 kHz: 20353.846... samples per beat, never an
	// integer. Each boundary must stay within half a sample of the
	// exact product even far into the session.
	spb := 60.0 / 130.0 * 44100
	for _, k := range []uint64{1, 97, 1000, 100000} {
		exact := float64(k) * spb
		got := float64(c.Boundary(k, spb))
		if math.Abs(got-exact) > 0.5 {
			t.Errorf("boundary %d: drifted %.3f samples from exact", k, got-exact)
		}
	}
}

func TestBeatClockAdvancePublishes(t *testing.T) {
	c := NewBeatClock(48000)

	c.Advance(512)
	c.Advance(512)
	if got := c.Pos(); got != 1024 {
		t.Errorf("expected position 1024, got %d", got)
	}
}

func TestBeatClockSeekAppliedAtBlockStart(t *testing.T) {
	c := NewBeatClock(48000)
	spb := 24000.0

	c.Advance(48000)
	c.Seek(12345)

	// Position is unchanged until the callback applies the seek.
	if got := c.Pos(); got != 48000 {
		t.Errorf("expected position 48000 before apply, got %d", got)
	}

	c.ApplyPending(spb)
	if got := c.Pos(); got != 12345 {
		t.Errorf("expected position 12345 after apply, got %d", got)
	}
	// The next boundary is the first at or after the new position.
	if got := c.NextBoundary(spb); got != 24000 {
		t.Errorf("expected next boundary 24000, got %d", got)
	}
}

func TestBeatClockResetRealignsToBoundaryZero(t *testing.T) {
	c := NewBeatClock(48000)
	spb := 24000.0

	c.Advance(100000)
	for c.NextBoundary(spb) < 100000 {
		c.AdvanceBeat()
	}

	c.Reset()
	c.ApplyPending(spb)
	if got := c.Pos(); got != 0 {
		t.Errorf("expected position 0, got %d", got)
	}
	if got := c.NextBoundary(spb); got != 0 {
		t.Errorf("expected next boundary 0 after reset, got %d", got)
	}
}

func TestBeatClockSeekOntoBoundary(t *testing.T) {
	c := NewBeatClock(48000)
	spb := 24000.0

	// Landing exactly on a boundary keeps that boundary pending.
	c.Seek(48000)
	c.ApplyPending(spb)
	if got := c.NextBoundary(spb); got != 48000 {
		t.Errorf("expected next boundary 48000, got %d", got)
	}
	if got := c.AdvanceBeat(); got != 2 {
		t.Errorf("expected beat index 2, got %d", got)
	}
}

func TestBeatClockApplyPendingNoop(t *testing.T) {
	c := NewBeatClock(48000)
	spb := 24000.0

	c.Advance(1000)
	c.ApplyPending(spb)
	if got := c.Pos(); got != 1000 {
		t.Errorf("expected position 1000, got %d", got)
	}
}

func BenchmarkBeatClockBlock(b *testing.B) {
	c := NewBeatClock(48000)
	spb := 60.0 / 130.0 * 48000

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ApplyPending(spb)
		for c.NextBoundary(spb) < c.pos+512 {
			c.AdvanceBeat()
		}
		c.Advance(512)
	}
}
