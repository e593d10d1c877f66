// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"capture/cmd"
	"capture/internal/audio"
	"capture/internal/config"
	"capture/internal/log"
	"capture/internal/transport"
	"capture/internal/transport/udp"
	"capture/pkg/build"
)

// main wires the capture engine together. The flow has three phases:
//
// 1. Startup (cold path): build info, runtime tuning, PortAudio init,
// configuration, one-off commands.
//
// 2. Concurrent (hot path): output stream processing, input capture,
// recording sessions, status transports.
//
// 3. Shutdown (cold path): finalize the take, export, tear down.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	// One thread for the audio streams, one for control and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
	}

	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	if !cfg.RunEngine {
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	engine := audio.NewEngine(cfg)

	if err := engine.SelectInputDevice(cfg.Audio.DeviceID); err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.StartInput(); err != nil {
		return err
	}

	publisher, err := startTransports(cfg, engine)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Stop()
	}

	if cfg.Recording.Record {
		if err := engine.StartRecording(); err != nil {
			return err
		}
	}

	fmt.Printf("%s running. '%s --help' for usage information.\n",
		build.GetBuildFlags().Name, build.GetBuildFlags().Name)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	if clip := engine.StopRecording(); clip != nil && cfg.Recording.OutputFile != "" {
		if err := clip.WriteWAV(cfg.Recording.OutputFile, cfg.Recording.BitDepth); err != nil {
			return err
		}
		fmt.Printf("\nTake saved to: %s (%.2fs)\n", cfg.Recording.OutputFile, clip.Duration())
	}
	return nil
}

// startTransports brings up the configured status publishers. Returns
// nil when no transport is enabled.
func startTransports(cfg *config.Config, engine *audio.Engine) (*transport.Publisher, error) {
	var transports []transport.Transport

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err != nil {
			return nil, err
		}
		transports = append(transports, ws)
	}
	if cfg.Transport.UDPEnabled {
		pub, err := udp.NewPublisher(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		transports = append(transports, pub)
	}
	if len(transports) == 0 {
		return nil, nil
	}

	publisher := transport.NewPublisher(
		func() any { return engine.Status() },
		cfg.Transport.SendInterval,
		transports...)
	publisher.Start()
	return publisher, nil
}
