// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"capture/internal/config"
	"capture/internal/log"

	"github.com/gordonklaus/portaudio"
)

// InputManager owns the capture device and its stream. Captured samples
// land in an SPSC ring buffer the audio graph drains once per block; a
// stalled consumer overwrites the oldest audio rather than blocking the
// device callback.
//
// The ring and its capacity are fixed at construction, so selecting or
// restarting devices never invalidates the consumer side.
type InputManager struct {
	cfg  config.AudioConfig
	ring *RingBuffer

	mu      sync.Mutex // guards device/stream lifecycle, never the callback
	device  *portaudio.DeviceInfo
	stream  *portaudio.Stream
	started atomic.Bool

	peakL atomic.Uint32 // math.Float32bits, last block
	peakR atomic.Uint32
}

var paLibOpenStreamFunc = portaudio.OpenStream

// NewInputManager creates a manager with a ring buffer sized for
// BufferSeconds of interleaved audio. No device is resolved yet.
func NewInputManager(cfg config.AudioConfig) *InputManager {
	frames := int(cfg.BufferSeconds * cfg.SampleRate)
	if frames < cfg.FramesPerBuffer {
		frames = cfg.FramesPerBuffer
	}
	return &InputManager{
		cfg:  cfg,
		ring: NewRingBuffer(frames * cfg.Channels),
	}
}

// SelectDevice resolves and pins the capture device. Pass
// config.MinDeviceID to use the system default input. If a stream is
// running on a different device it is restarted on the new one;
// reselecting the current device is a no-op.
func (m *InputManager) SelectDevice(deviceID int) error {
	device, err := InputDevice(deviceID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.device.Name == device.Name && m.stream != nil {
		return nil
	}

	restart := m.started.Load()
	if restart {
		if err := m.stopLocked(); err != nil {
			return err
		}
	}
	m.device = device
	log.Infof("input device selected: %s", device.Name)
	if restart {
		return m.startLocked()
	}
	return nil
}

// Start opens and starts the capture stream. Resolves the default
// device if none was selected. Idempotent while running.
func (m *InputManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started.Load() {
		return nil
	}
	if m.device == nil {
		device, err := InputDevice(config.MinDeviceID)
		if err != nil {
			return err
		}
		m.device = device
	}
	return m.startLocked()
}

func (m *InputManager) startLocked() error {
	latency := m.device.DefaultHighInputLatency
	if m.cfg.LowLatency {
		latency = m.device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   m.device,
			Channels: m.cfg.Channels,
			Latency:  latency,
		},
		SampleRate:      m.cfg.SampleRate,
		FramesPerBuffer: m.cfg.FramesPerBuffer,
	}

	stream, err := paLibOpenStreamFunc(params, m.onInput)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamOpen, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", ErrStreamOpen, err)
	}

	m.stream = stream
	m.started.Store(true)
	log.Infof("input stream started: %s @ %.0f Hz, %d ch, %d frames",
		m.device.Name, m.cfg.SampleRate, m.cfg.Channels, m.cfg.FramesPerBuffer)
	return nil
}

// Stop stops and closes the capture stream. Always succeeds; stopping
// an idle manager is a no-op. Buffered audio stays in the ring.
func (m *InputManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *InputManager) stopLocked() error {
	if !m.started.Load() {
		return nil
	}
	m.started.Store(false)
	if err := m.stream.Stop(); err != nil {
		log.Warnf("input stream stop: %v", err)
	}
	if err := m.stream.Close(); err != nil {
		log.Warnf("input stream close: %v", err)
	}
	m.stream = nil
	m.peakL.Store(0)
	m.peakR.Store(0)
	return nil
}

// Started reports whether the capture stream is running.
func (m *InputManager) Started() bool {
	return m.started.Load()
}

// onInput is the device callback. Peak tracking and a ring push only.
func (m *InputManager) onInput(in []float32) {
	if !m.started.Load() || len(in) == 0 {
		return
	}

	var pl, pr float32
	ch := m.cfg.Channels
	for i := 0; i < len(in); i += ch {
		v := in[i]
		if v < 0 {
			v = -v
		}
		if v > pl {
			pl = v
		}
		if ch > 1 {
			v = in[i+1]
			if v < 0 {
				v = -v
			}
			if v > pr {
				pr = v
			}
		}
	}
	if ch == 1 {
		pr = pl
	}
	m.peakL.Store(math.Float32bits(pl))
	m.peakR.Store(math.Float32bits(pr))

	m.ring.Push(in)
}

// Drain copies up to len(dst) buffered samples into dst and returns the
// count. Single consumer: the audio graph's process callback.
func (m *InputManager) Drain(dst []float32) int {
	return m.ring.PopAvailable(dst)
}

// Clear discards all buffered samples.
func (m *InputManager) Clear() {
	m.ring.Clear()
}

// Overflows returns the total samples overwritten because the consumer
// fell behind.
func (m *InputManager) Overflows() uint64 {
	return m.ring.Overflows()
}

// Peaks returns the per-channel peak amplitude of the most recent
// device block. Mono input mirrors the left value.
func (m *InputManager) Peaks() (left, right float32) {
	return math.Float32frombits(m.peakL.Load()), math.Float32frombits(m.peakR.Load())
}
