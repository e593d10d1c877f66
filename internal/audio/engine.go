// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"capture/internal/config"
	"capture/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PlaybackSource fills output blocks with session playback audio
// (existing clips, backing tracks). PullBlock runs on the audio
// callback and must not allocate or block.
type PlaybackSource interface {
	PullBlock(out []float32)
}

// ClipSink receives finalized takes together with the session position
// in seconds where recording started.
type ClipSink interface {
	AddClip(clip *Clip, positionSeconds float64)
}

// Status is a control-path snapshot of the engine, shaped for transport
// payloads.
type Status struct {
	State            State   `json:"state"`
	RemainingBeats   uint32  `json:"remainingBeats"`
	CountInBeat      uint32  `json:"countInBeat"`
	CountInProgress  float32 `json:"countInProgress"`
	TempoBPM         float64 `json:"tempoBpm"`
	MetronomeEnabled bool    `json:"metronomeEnabled"`
	RecordedSeconds  float64 `json:"recordedSeconds"`
	PeakLeft         float32 `json:"peakLeft"`
	PeakRight        float32 `json:"peakRight"`
	Overflows        uint64  `json:"overflows"`
}

// Engine is the audio graph. Its process callback runs once per output
// block: playback fill, input drain, recorder advance, then optional
// input monitoring on top. All graph work happens on the output stream
// callback; the capture stream only feeds the ring buffer.
type Engine struct {
	cfg   *config.Config
	input *InputManager
	met   *Metronome
	clock *BeatClock
	rec   *Recorder

	scratch []float32 // drained input for the current block, callback-owned

	monitor     atomic.Bool
	monitorBits atomic.Uint32 // monitor gain, math.Float32bits
	source      atomic.Pointer[PlaybackSource]

	mu           sync.Mutex // output stream lifecycle and sink handoff
	stream       *portaudio.Stream
	sink         ClipSink
	startSeconds float64 // session position of the pending take
}

// NewEngine builds the graph from configuration. No devices are
// resolved and no streams are opened; the graph is fully operable
// against Process for tests.
func NewEngine(cfg *config.Config) *Engine {
	met := NewMetronome(cfg.Audio.SampleRate, cfg.Metronome)
	clock := NewBeatClock(cfg.Audio.SampleRate)
	rec := NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels,
		cfg.Recording.MaxTakeSeconds, met, clock)
	rec.SetCountInBars(cfg.Recording.CountInBars)

	e := &Engine{
		cfg:     cfg,
		input:   NewInputManager(cfg.Audio),
		met:     met,
		clock:   clock,
		rec:     rec,
		scratch: make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.Channels),
	}
	e.monitor.Store(cfg.Recording.Monitor)
	e.monitorBits.Store(math.Float32bits(float32(cfg.Recording.MonitorGain)))
	return e
}

// SetPlaybackSource wires the playback fill. Safe to call while the
// output stream is running; the next block picks the new source up.
func (e *Engine) SetPlaybackSource(src PlaybackSource) {
	e.source.Store(&src)
}

// SetClipSink wires the destination for finalized takes.
func (e *Engine) SetClipSink(sink ClipSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// Process advances the graph by one output block. This is the output
// stream callback; it is exported only through the stream.
func (e *Engine) Process(out []float32) {
	for i := range out {
		out[i] = 0
	}
	if src := e.source.Load(); src != nil {
		(*src).PullBlock(out)
	}

	frames := len(out) / e.cfg.Audio.Channels
	want := frames * e.cfg.Audio.Channels
	if want > len(e.scratch) {
		want = len(e.scratch)
	}
	n := e.input.Drain(e.scratch[:want])

	e.rec.ProcessBlock(e.scratch[:n], out, frames)

	if e.monitor.Load() && n > 0 {
		gain := math.Float32frombits(e.monitorBits.Load())
		for i := 0; i < n && i < len(out); i++ {
			out[i] += e.scratch[i] * gain
		}
	}
}

// Start opens the default output stream and begins processing.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream != nil {
		return nil
	}
	stream, err := portaudio.OpenDefaultStream(
		0, e.cfg.Audio.Channels, e.cfg.Audio.SampleRate,
		e.cfg.Audio.FramesPerBuffer, e.Process)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	e.stream = stream
	log.Infof("engine started: %.0f Hz, %d ch, %d frames",
		e.cfg.Audio.SampleRate, e.cfg.Audio.Channels, e.cfg.Audio.FramesPerBuffer)
	return nil
}

// Close stops recording and tears down both streams.
func (e *Engine) Close() error {
	e.StopRecording()
	err := e.input.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		if serr := e.stream.Stop(); serr != nil {
			log.Warnf("output stream stop: %v", serr)
		}
		if cerr := e.stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
		e.stream = nil
	}
	return err
}

// ListInputDevices returns the capture-capable devices on the host.
func (e *Engine) ListInputDevices() ([]Device, error) {
	devices, err := HostDevices()
	if err != nil {
		return nil, err
	}
	inputs := devices[:0]
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// SelectInputDevice pins the capture device by ID, restarting the
// stream if one is running.
func (e *Engine) SelectInputDevice(deviceID int) error {
	return e.input.SelectDevice(deviceID)
}

// StartInput starts the capture stream (idempotent).
func (e *Engine) StartInput() error {
	return e.input.Start()
}

// StopInput stops the capture stream.
func (e *Engine) StopInput() error {
	return e.input.Stop()
}

// InputStarted reports whether capture is running.
func (e *Engine) InputStarted() bool {
	return e.input.Started()
}

// StartRecording begins a session. Recording never implicitly starts a
// device: with no running capture stream it fails with
// ErrNoInputAvailable and the recorder stays Idle. Calling while a
// session is already counting in or recording is a no-op; the active
// take keeps its buffered input and its session position.
func (e *Engine) StartRecording() error {
	if e.rec.State() != StateIdle {
		return nil
	}
	if !e.input.Started() {
		return ErrNoInputAvailable
	}

	e.mu.Lock()
	bars := float64(e.rec.CountInBars())
	e.startSeconds = bars * float64(e.met.BeatsPerBar()) * 60.0 / e.met.Tempo()
	e.mu.Unlock()

	// Stale ring audio predates the session.
	e.input.Clear()
	e.rec.Start()
	log.Infof("recording session started: count-in %d bars at %.1f BPM",
		e.rec.CountInBars(), e.met.Tempo())
	return nil
}

// StopRecording ends the session and returns the take, nil when nothing
// was captured. The take is also handed to the clip sink, positioned
// where the count-in ended.
func (e *Engine) StopRecording() *Clip {
	clip := e.rec.Stop()
	if clip == nil {
		return nil
	}
	log.Infof("take finished: %.2fs, %d frames", clip.Duration(), clip.Frames())

	e.mu.Lock()
	sink, pos := e.sink, e.startSeconds
	e.mu.Unlock()
	if sink != nil {
		sink.AddClip(clip, pos)
	}
	return clip
}

// RecordingState returns the recorder's lifecycle tag.
func (e *Engine) RecordingState() State {
	return e.rec.State()
}

// RecordedDuration returns the current take length in seconds.
func (e *Engine) RecordedDuration() float64 {
	return e.rec.RecordedDuration()
}

// Waveform returns a downsampled peak view of the in-progress take.
func (e *Engine) Waveform(numPeaks int) []float32 {
	return e.rec.Waveform(numPeaks)
}

// ResetClock realigns the session clock to sample 0 at the next block,
// for external transport stop.
func (e *Engine) ResetClock() {
	e.clock.Reset()
}

// SeekClock moves the session clock to the given sample position at the
// next block, so clicks stay aligned across external transport seeks
// and loops.
func (e *Engine) SeekClock(sample uint64) {
	e.clock.Seek(sample)
}

// SetCountInBars sets the pre-roll length (snapped to 0, 1, 2 or 4).
func (e *Engine) SetCountInBars(bars int) {
	e.rec.SetCountInBars(bars)
}

// CountInBars returns the configured pre-roll length.
func (e *Engine) CountInBars() int {
	return e.rec.CountInBars()
}

// SetTempo updates the tempo in BPM, clamped to the supported range.
// Takes effect at the next block boundary.
func (e *Engine) SetTempo(bpm float64) {
	e.met.SetTempo(bpm)
}

// Tempo returns the current tempo in BPM.
func (e *Engine) Tempo() float64 {
	return e.met.Tempo()
}

// SetMetronomeEnabled toggles click rendering.
func (e *Engine) SetMetronomeEnabled(enabled bool) {
	e.met.SetEnabled(enabled)
}

// MetronomeEnabled reports whether clicks are rendered.
func (e *Engine) MetronomeEnabled() bool {
	return e.met.Enabled()
}

// SetMonitor toggles live input monitoring on the output.
func (e *Engine) SetMonitor(enabled bool) {
	e.monitor.Store(enabled)
}

// Monitor reports whether input monitoring is on.
func (e *Engine) Monitor() bool {
	return e.monitor.Load()
}

// Status returns a snapshot for transports and UIs.
func (e *Engine) Status() Status {
	pl, pr := e.input.Peaks()
	return Status{
		State:            e.rec.State(),
		RemainingBeats:   e.rec.RemainingBeats(),
		CountInBeat:      e.rec.CountInBeat(),
		CountInProgress:  e.rec.CountInProgress(),
		TempoBPM:         e.met.Tempo(),
		MetronomeEnabled: e.met.Enabled(),
		RecordedSeconds:  e.rec.RecordedDuration(),
		PeakLeft:         pl,
		PeakRight:        pr,
		Overflows:        e.input.Overflows(),
	}
}
