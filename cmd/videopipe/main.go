// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// videopipe feeds synthetic or stdin-supplied raw frames through a sink
// subprocess, playing the host-pipeline role for manual testing.
//
// Usage:
//
//	videopipe -cmd 'ffmpeg -f rawvideo -pix_fmt rgb24 -s 320x240 -r 25 -i - -y out.mp4'
//	videopipe -config videopipe.yaml
//	videopipe -cmd 'cat > out.raw' -stdin < frames.raw
//
// Exit codes:
//   - 0: all frames delivered and the subprocess exited cleanly
//   - 1: run fault (spawn failure, broken pipe, unexpected exit)
//   - 2: usage or configuration error
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/config"
	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/log"
	"github.com/rafaelcaricio/gst-subprocess-pipe/sink"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cmdLine    string
		configPath string
		frameSize  int
		frameRate  float64
		frames     int
		fromStdin  bool
	)

	flag.StringVar(&cmdLine, "cmd", "", "shell command to pipe frames into")
	flag.StringVar(&configPath, "config", "", "path to YAML configuration file")
	flag.IntVar(&frameSize, "frame-size", 320*240*3, "frame payload size in bytes")
	flag.Float64Var(&frameRate, "frame-rate", 25.0, "frames per second")
	flag.IntVar(&frames, "frames", 250, "number of frames to deliver")
	flag.BoolVar(&fromStdin, "stdin", false, "read frame payloads from stdin instead of generating a test pattern")
	flag.Parse()

	log.Configure(log.Config{Service: "videopipe"})
	logger := log.WithComponent("main")

	opts := sink.DefaultOptions()
	if configPath != "" {
		file, err := config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			return 2
		}
		if file.Command != "" {
			opts.Command = file.Command
		}
		if file.WaitForExit > 0 {
			opts.WaitForExit = file.WaitForExit.Std()
		}
		if file.TeardownTimeout > 0 {
			opts.TeardownTimeout = file.TeardownTimeout.Std()
		}
		if file.WriteTimeout > 0 {
			opts.WriteTimeout = file.WriteTimeout.Std()
		}
		if file.StderrLines > 0 {
			opts.StderrLines = file.StderrLines
		}
		if file.FrameSize > 0 {
			frameSize = file.FrameSize
		}
		if file.FrameRate > 0 {
			frameRate = file.FrameRate
		}
		if file.Frames > 0 {
			frames = file.Frames
		}
	}
	if cmdLine != "" {
		opts.Command = cmdLine
	}
	if opts.Command == "" {
		fmt.Fprintln(os.Stderr, "Error: -cmd or a config file with cmd is required")
		return 2
	}
	if frameRate <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -frame-rate must be positive")
		return 2
	}

	s := sink.New(opts)
	if err := s.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start sink")
		return exitCodeFor(err)
	}

	frameDur := time.Duration(float64(time.Second) / frameRate)
	payload := make([]byte, frameSize)

	delivered := 0
	var runErr error
	for i := 0; i < frames; i++ {
		if fromStdin {
			if _, err := io.ReadFull(os.Stdin, payload); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					break
				}
				logger.Error().Err(err).Msg("failed to read frame from stdin")
				runErr = err
				break
			}
		} else {
			fillTestPattern(payload, i)
		}

		err := s.Render(sink.Frame{
			Data:     payload,
			PTS:      time.Duration(i) * frameDur,
			Duration: frameDur,
		})
		if err != nil {
			if errors.Is(err, sink.ErrStopping) {
				break
			}
			logger.Error().Err(err).Msg("frame delivery failed")
			runErr = err
			break
		}
		delivered++
	}

	if err := s.Stop(); err != nil {
		logger.Error().Err(err).Msg("stop failed")
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info().
		Int(log.FieldFrames, delivered).
		Msg("run finished")

	if runErr != nil {
		return exitCodeFor(runErr)
	}
	return 0
}

// fillTestPattern writes a per-frame gradient so consecutive frames are
// distinguishable in the subprocess's output.
func fillTestPattern(buf []byte, frame int) {
	for i := range buf {
		buf[i] = byte(i + frame)
	}
}

func exitCodeFor(err error) int {
	if errors.Is(err, sink.ErrNoCommand) {
		return 2
	}
	return 1
}
