// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"capture/internal/config"
	"capture/pkg/build"

	"github.com/spf13/cobra"
)

// ParseArgs builds the runtime configuration: file and environment
// overlays first, then command line flags on top.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	options, err := config.LoadConfig(configPathFromArgs(os.Args[1:]))
	if err != nil {
		return nil, err
	}

	var configPath string

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.RunEngine = true
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.RunEngine = false
		},
	}
	rootCmd.AddCommand(listCmd)

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&options.Audio.DeviceID, "device", "d", options.Audio.DeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.Channels, "channels", "c", options.Audio.Channels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.FramesPerBuffer, "frames-per-buffer", "b", options.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Use low latency mode for real-time processing")

	// Tempo and metronome configuration
	rootCmd.PersistentFlags().Float64VarP(&options.Metronome.TempoBPM, "tempo", "t", options.Metronome.TempoBPM,
		"Session tempo in beats per minute")
	rootCmd.PersistentFlags().BoolVarP(&options.Metronome.Enabled, "metronome", "m", options.Metronome.Enabled,
		"Play the metronome click during count-in and recording")
	rootCmd.PersistentFlags().Float64Var(&options.Metronome.Volume, "click-volume", options.Metronome.Volume,
		"Metronome click volume (0.0 to 1.0)")

	// Recording configuration
	rootCmd.PersistentFlags().IntVarP(&options.Recording.CountInBars, "count-in", "i", options.Recording.CountInBars,
		"Count-in length in bars before recording starts (0, 1, 2 or 4)")
	rootCmd.PersistentFlags().BoolVarP(&options.Recording.Record, "record", "r", options.Recording.Record,
		"Start a recording session immediately")
	rootCmd.PersistentFlags().BoolVar(&options.Recording.Monitor, "monitor", options.Recording.Monitor,
		"Mix the captured input into the output for live monitoring")
	rootCmd.PersistentFlags().StringVarP(&options.Recording.OutputFile, "output", "o", options.Recording.OutputFile,
		"Output file name. Default is take-MM-DD-YYYY-HHMMSS.wav")

	// Debug configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Debug, "verbose", "v", options.Debug,
		"Show verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	if options.Recording.OutputFile == "" {
		options.Recording.OutputFile = "take-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// configPathFromArgs pre-scans the arguments for --config so the file
// overlay can be applied before flag defaults are bound.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
