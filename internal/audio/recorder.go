// SPDX-License-Identifier: MIT
package audio

import (
	"runtime"
	"sync/atomic"

	"capture/internal/config"
)

// State is the recorder's lifecycle tag.
type State int32

const (
	StateIdle State = iota
	StateCountingIn
	StateRecording
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountingIn:
		return "counting_in"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// MarshalText makes states render as names in JSON status snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Legal count-in lengths in bars. SetCountInBars snaps to the nearest;
// ties resolve to the smaller value.
var countInBarOptions = []uint32{0, 1, 2, 4}

// Recorder is the Idle → CountingIn → Recording state machine. The
// audio callback drives it through ProcessBlock; everything else is the
// control path.
//
// The take buffer is preallocated at construction and only written by
// the callback while the state is Recording. Its base array never
// moves, so control-path reads of the published length are safe. Takes
// longer than the preallocation stop growing and count truncated
// samples instead — the callback can never allocate.
//
// Stop observes a block-entry/exit sequence counter before finalizing,
// so ownership of the take transfers only once the callback is out of
// the Recording state.
type Recorder struct {
	sampleRate float64
	channels   int
	met        *Metronome
	clock      *BeatClock

	state       atomic.Int32
	countInBars atomic.Uint32
	totalBeats  atomic.Uint32 // beats in the current pre-roll
	remaining   atomic.Uint32
	countInBeat atomic.Uint32 // 1-indexed beat within the bar, 0 when not counting in
	countInProg atomic.Uint32 // pre-roll progress, fixed point 0..10000

	blockSeq atomic.Uint64 // odd while the callback is inside ProcessBlock

	buf       []float32     // take storage, fixed capacity
	takeLen   int           // callback-owned
	published atomic.Uint64 // takeLen mirror for control-path reads
	truncated atomic.Uint64 // samples dropped after the take buffer filled
}

// NewRecorder creates an idle recorder sharing the given metronome and
// beat clock. maxTakeSeconds bounds the take buffer preallocation.
func NewRecorder(sampleRate float64, channels, maxTakeSeconds int, met *Metronome, clock *BeatClock) *Recorder {
	if maxTakeSeconds < 1 {
		maxTakeSeconds = config.DefaultMaxTakeSeconds
	}
	r := &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		met:        met,
		clock:      clock,
		buf:        make([]float32, int(sampleRate)*channels*maxTakeSeconds),
	}
	r.SetCountInBars(config.DefaultCountInBars)
	return r
}

// State returns the current lifecycle tag.
func (r *Recorder) State() State {
	return State(r.state.Load())
}

// RemainingBeats returns the count-in beats left, 0 outside CountingIn.
func (r *Recorder) RemainingBeats() uint32 {
	return r.remaining.Load()
}

// CountInBeat returns the 1-indexed beat within the bar while counting
// in, 0 otherwise. Intended for UI beat indicators.
func (r *Recorder) CountInBeat() uint32 {
	return r.countInBeat.Load()
}

// CountInProgress returns pre-roll progress in [0, 1].
func (r *Recorder) CountInProgress() float32 {
	return float32(r.countInProg.Load()) / 10000
}

// SetCountInBars sets the pre-roll length, snapped to the nearest legal
// value in {0, 1, 2, 4}. Effective from the next recording session.
func (r *Recorder) SetCountInBars(bars int) {
	if bars < 0 {
		bars = 0
	}
	best := countInBarOptions[0]
	bestDist := -1
	for _, opt := range countInBarOptions {
		dist := bars - int(opt)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = opt
			bestDist = dist
		}
	}
	r.countInBars.Store(best)
}

// CountInBars returns the configured pre-roll length in bars.
func (r *Recorder) CountInBars() int {
	return int(r.countInBars.Load())
}

// RecordedDuration returns the current take length in seconds. Valid in
// any state; 0 while Idle or CountingIn.
func (r *Recorder) RecordedDuration() float64 {
	return float64(r.published.Load()) / (r.sampleRate * float64(r.channels))
}

// TruncatedSamples returns the number of samples dropped because the
// take outgrew its preallocated buffer.
func (r *Recorder) TruncatedSamples() uint64 {
	return r.truncated.Load()
}

// Start begins a recording session. With a zero count-in the state goes
// directly to Recording; otherwise to CountingIn with
// bars × beatsPerBar remaining beats. The beat clock is reset so the
// pre-roll starts on a downbeat. Calling Start while a session is
// already running is a no-op.
func (r *Recorder) Start() {
	if r.State() != StateIdle {
		return
	}

	// The callback never touches the take while Idle, and the state
	// store below orders these writes before it can see Recording.
	r.takeLen = 0
	r.published.Store(0)
	r.truncated.Store(0)
	r.clock.Reset()

	total := r.countInBars.Load() * uint32(r.met.BeatsPerBar())
	r.totalBeats.Store(total)
	r.countInBeat.Store(0)
	r.countInProg.Store(0)
	r.remaining.Store(total)

	if total == 0 {
		r.state.Store(int32(StateRecording))
	} else {
		r.state.Store(int32(StateCountingIn))
	}
}

// Stop ends the session and returns the finalized clip, or nil when
// nothing was recorded. Stopping while Idle is a no-op returning nil.
// Atomic at block granularity: the method waits until the callback has
// observably left the block it may be inside before taking ownership of
// the take buffer.
func (r *Recorder) Stop() *Clip {
	if r.State() == StateIdle {
		return nil
	}
	r.state.Store(int32(StateIdle))

	for r.blockSeq.Load()&1 == 1 {
		runtime.Gosched()
	}

	r.remaining.Store(0)
	r.countInBeat.Store(0)
	r.countInProg.Store(0)

	if r.takeLen == 0 {
		return nil
	}
	samples := make([]float32, r.takeLen)
	copy(samples, r.buf[:r.takeLen])
	return NewClip(int(r.sampleRate), r.channels, samples)
}

// ProcessBlock advances the session by one block. input holds the
// interleaved samples drained from the ring buffer for this block
// (possibly fewer than frames×channels — missing data is a gap, not an
// error). out, when non-nil, receives metronome clicks mixed on top of
// whatever it already holds; the take never receives click audio.
//
// Audio callback only. No allocation, no locks, no logging.
func (r *Recorder) ProcessBlock(input, out []float32, frames int) {
	r.blockSeq.Add(1)
	defer r.blockSeq.Add(1)

	st := State(r.state.Load())
	if st == StateIdle || frames == 0 {
		return
	}

	spb := r.met.SamplesPerBeat()
	r.clock.ApplyPending(spb)
	start := r.clock.pos
	end := start + uint64(frames)

	if out != nil {
		r.met.Render(out, r.channels, start, frames)
	}

	recordFrom := 0
	if st == StateCountingIn {
		recordFrom = -1
		bpb := uint64(r.met.BeatsPerBar())

		// A block can cross zero or several boundaries depending on
		// block size and tempo.
		for r.clock.NextBoundary(spb) < end {
			b := r.clock.NextBoundary(spb)
			k := r.clock.AdvanceBeat()
			if k == 0 {
				// Boundary 0 starts the first pre-roll beat; no beat
				// has completed yet.
				r.countInBeat.Store(1)
				continue
			}
			rem := r.remaining.Load()
			if rem > 0 {
				rem--
				r.remaining.Store(rem)
			}
			if rem == 0 {
				// Pre-roll complete. Recording begins at this
				// boundary, which may fall anywhere in the block
				// including its first frame.
				st = StateRecording
				r.state.Store(int32(StateRecording))
				recordFrom = 0
				if b > start {
					recordFrom = int(b - start)
				}
				r.countInBeat.Store(0)
				r.countInProg.Store(0)
				break
			}
			r.countInBeat.Store(uint32(k%bpb) + 1)
		}

		if st == StateCountingIn {
			den := float64(r.totalBeats.Load()) * spb
			if den > 0 {
				p := float64(end) / den
				if p > 1 {
					p = 1
				}
				r.countInProg.Store(uint32(p * 10000))
			}
		}
	}

	// Consume any boundaries left in the block so the beat index stays
	// aligned with the clock position.
	for r.clock.NextBoundary(spb) < end {
		r.clock.AdvanceBeat()
	}

	if st == StateRecording && recordFrom >= 0 && len(input) > 0 {
		seg := input
		if off := recordFrom * r.channels; off > 0 {
			if off >= len(seg) {
				seg = nil
			} else {
				seg = seg[off:]
			}
		}
		if len(seg) > 0 {
			n := copy(r.buf[r.takeLen:], seg)
			r.takeLen += n
			if n < len(seg) {
				r.truncated.Add(uint64(len(seg) - n))
			}
			r.published.Store(uint64(r.takeLen))
		}
	}

	r.clock.Advance(uint64(frames))
}

// Waveform returns up to numPeaks peak amplitudes of the in-progress
// take, downsampled for UI display. Control path; reads only the
// published portion of the take.
func (r *Recorder) Waveform(numPeaks int) []float32 {
	n := int(r.published.Load())
	if n == 0 || numPeaks <= 0 {
		return nil
	}
	frames := n / r.channels
	framesPerPeak := frames / numPeaks
	if framesPerPeak < 1 {
		framesPerPeak = 1
	}

	peaks := make([]float32, 0, numPeaks)
	for i := 0; i < numPeaks; i++ {
		startF := i * framesPerPeak
		if startF >= frames {
			break
		}
		endF := startF + framesPerPeak
		if endF > frames {
			endF = frames
		}
		var peak float32
		for f := startF; f < endF; f++ {
			for c := 0; c < r.channels; c++ {
				v := r.buf[f*r.channels+c]
				if v < 0 {
					v = -v
				}
				if v > peak {
					peak = v
				}
			}
		}
		peaks = append(peaks, peak)
	}
	return peaks
}
