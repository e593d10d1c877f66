// SPDX-License-Identifier: MIT
//
// Package config holds the runtime configuration for the capture engine.
// Defaults live here; values can be overlaid from a YAML file, environment
// variables, and command line flags, in that order.
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the capture engine.
const (
	// Default values for the audio engine configuration
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 48000       // Matches the timeline engine's rate
	DefaultChannels        = 2           // Interleaved stereo
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultBufferSeconds   = 10.0        // Input ring buffer length

	// Tempo and metronome defaults
	DefaultTempoBPM        = 120.0
	DefaultBeatsPerBar     = 4
	DefaultBeatUnit        = 4
	DefaultMetronomeOn     = true
	DefaultClickVolume     = 0.3
	DefaultCountInBars     = 1

	// Recording defaults
	DefaultMonitor        = false // Input is captured, not mixed to output
	DefaultMonitorGain    = 1.0
	DefaultMaxTakeSeconds = 120 // Take buffer is preallocated; longer takes truncate
	DefaultBitDepth       = 24  // WAV export bit depth

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer

	// Tempo limits; setters clamp rather than fail
	MinTempoBPM = 20.0
	MaxTempoBPM = 300.0
)

// Config is the root configuration structure, loadable from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Enable debug mode (verbose logging)
	LogLevel string `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error")

	// Set by the CLI layer, never from file.
	Command   string `yaml:"-"` // One-off command to execute (e.g. "list")
	RunEngine bool   `yaml:"-"` // Run the live engine after parsing

	Audio     AudioConfig     `yaml:"audio"`     // Device and stream settings
	Metronome MetronomeConfig `yaml:"metronome"` // Tempo and click settings
	Recording RecordingConfig `yaml:"recording"` // Take and count-in settings
	Transport TransportConfig `yaml:"transport"` // Status publishing settings
}

// AudioConfig holds device and stream settings.
type AudioConfig struct {
	DeviceID        int     `yaml:"device_id"`         // Input device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz
	Channels        int     `yaml:"channels"`          // Interleaved channel count (1=mono, 2=stereo)
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per processing block
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device
	BufferSeconds   float64 `yaml:"buffer_seconds"`    // Input ring buffer length in seconds
}

// MetronomeConfig holds tempo and click settings.
type MetronomeConfig struct {
	Enabled     bool    `yaml:"enabled"`       // Click audible during count-in and recording
	TempoBPM    float64 `yaml:"tempo_bpm"`     // Tempo, clamped to [MinTempoBPM, MaxTempoBPM]
	BeatsPerBar int     `yaml:"beats_per_bar"` // Time signature numerator
	BeatUnit    int     `yaml:"beat_unit"`     // Time signature denominator
	Volume      float64 `yaml:"volume"`        // Click gain, clamped to [0, 1]
}

// RecordingConfig holds take and count-in settings.
type RecordingConfig struct {
	CountInBars    int     `yaml:"count_in_bars"`    // Pre-roll bars, snapped to {0,1,2,4}
	Record         bool    `yaml:"record"`           // Start a recording on launch
	Monitor        bool    `yaml:"monitor"`          // Mix drained input into the output
	MonitorGain    float64 `yaml:"monitor_gain"`     // Monitor mix gain
	MaxTakeSeconds int     `yaml:"max_take_seconds"` // Take buffer preallocation size
	OutputFile     string  `yaml:"output_file"`      // WAV export path ("" disables export)
	BitDepth       int     `yaml:"bit_depth"`        // WAV export bit depth (16 or 24)
}

// TransportConfig holds settings for publishing engine status to UIs.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Broadcast JSON status snapshots
	WebSocketAddr    string        `yaml:"websocket_addr"`    // Listen address for the WebSocket server
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send binary status packets over UDP
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets
	SendInterval     time.Duration `yaml:"send_interval"`     // Interval between status sends
}

// NewConfig creates a Config with default values. This is the base
// configuration before file, env, and flag overlays.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:        DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			BufferSeconds:   DefaultBufferSeconds,
		},
		Metronome: MetronomeConfig{
			Enabled:     DefaultMetronomeOn,
			TempoBPM:    DefaultTempoBPM,
			BeatsPerBar: DefaultBeatsPerBar,
			BeatUnit:    DefaultBeatUnit,
			Volume:      DefaultClickVolume,
		},
		Recording: RecordingConfig{
			CountInBars:    DefaultCountInBars,
			Record:         false,
			Monitor:        DefaultMonitor,
			MonitorGain:    DefaultMonitorGain,
			MaxTakeSeconds: DefaultMaxTakeSeconds,
			OutputFile:     "",
			BitDepth:       DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			SendInterval:     33 * time.Millisecond, // ~30Hz
		},
	}
}
