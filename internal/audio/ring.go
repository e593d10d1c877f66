// SPDX-License-Identifier: MIT
package audio

import (
	"sync/atomic"

	"capture/pkg/bitint"
)

// RingBuffer is a lock-free single-producer/single-consumer queue of
// interleaved float32 samples. The input callback is the only producer
// and the output callback is the only consumer.
//
// Push never blocks: on overflow the oldest unread samples are
// overwritten and counted. PopAvailable never blocks and never
// allocates. Data loss under sustained overflow is a counted condition,
// not an error.
//
// Capacity is rounded up to a power of 2 so cursor positions can be
// masked instead of taken modulo. Cursors increase monotonically;
// wrap-around of uint64 is not a practical concern at audio rates.
type RingBuffer struct {
	buf  []float32
	mask uint64

	writePos  atomic.Uint64 // producer-advanced
	readPos   atomic.Uint64 // consumer-advanced, producer CAS on overflow
	overflows atomic.Uint64 // total samples dropped
}

// NewRingBuffer creates a ring buffer holding at least capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	n := bitint.NextPowerOfTwo(capacity)
	return &RingBuffer{
		buf:  make([]float32, n),
		mask: uint64(n - 1),
	}
}

// Capacity returns the buffer's sample capacity.
func (r *RingBuffer) Capacity() int {
	return len(r.buf)
}

// Len returns the number of unread samples. Lock-free snapshot; the
// value may be stale by the time the caller acts on it.
func (r *RingBuffer) Len() int {
	w := r.writePos.Load()
	rd := r.readPos.Load()
	n := w - rd
	if n > uint64(len(r.buf)) {
		n = uint64(len(r.buf))
	}
	return int(n)
}

// Overflows returns the total number of samples dropped to overflow.
func (r *RingBuffer) Overflows() uint64 {
	return r.overflows.Load()
}

// Push appends samples, overwriting the oldest unread data when full.
// Producer side only. Never blocks, never allocates.
func (r *RingBuffer) Push(samples []float32) {
	if len(samples) == 0 {
		return
	}
	cap64 := uint64(len(r.buf))
	w := r.writePos.Load()

	// Oversized input: only the newest capacity samples can survive.
	if uint64(len(samples)) > cap64 {
		dropped := uint64(len(samples)) - cap64
		r.overflows.Add(dropped)
		samples = samples[dropped:]
	}

	for i := range samples {
		r.buf[(w+uint64(i))&r.mask] = samples[i]
	}
	newW := w + uint64(len(samples))
	r.writePos.Store(newW)

	// Reclaim overwritten space. CAS so a concurrent consumer advance
	// is never pushed backwards.
	for {
		rd := r.readPos.Load()
		if newW-rd <= cap64 {
			return
		}
		target := newW - cap64
		if r.readPos.CompareAndSwap(rd, target) {
			r.overflows.Add(target - rd)
			return
		}
	}
}

// PopAvailable copies up to len(dst) unread samples into dst and returns
// the number copied, which may be zero. Consumer side only. Never
// blocks, never allocates.
func (r *RingBuffer) PopAvailable(dst []float32) int {
	if len(dst) == 0 {
		return 0
	}
	for {
		rd := r.readPos.Load()
		w := r.writePos.Load()
		avail := w - rd
		if avail == 0 {
			return 0
		}
		if avail > uint64(len(r.buf)) {
			avail = uint64(len(r.buf))
			rd = w - avail
		}
		n := uint64(len(dst))
		if n > avail {
			n = avail
		}
		for i := uint64(0); i < n; i++ {
			dst[i] = r.buf[(rd+i)&r.mask]
		}
		// A producer overflow may have reclaimed this region mid-copy;
		// the CAS detects it and the copy is retried on fresher data.
		if r.readPos.CompareAndSwap(rd, rd+n) {
			return int(n)
		}
	}
}

// Clear discards all unread samples. Consumer side only.
func (r *RingBuffer) Clear() {
	r.readPos.Store(r.writePos.Load())
}
