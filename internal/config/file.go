// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "100ms" parse. Plain
// integers are read as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(ns)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// File is the optional YAML configuration consumed by cmd/videopipe.
type File struct {
	// Command is the shell command the sink pipes frames into.
	Command string `yaml:"cmd"`

	// WaitForExit is the pause between closing stdin and sending SIGHUP.
	WaitForExit Duration `yaml:"wait_for_exit"`

	// TeardownTimeout bounds the wait for the subprocess to exit.
	TeardownTimeout Duration `yaml:"teardown_timeout"`

	// WriteTimeout bounds a single frame write; zero blocks indefinitely.
	WriteTimeout Duration `yaml:"write_timeout"`

	// StderrLines is the capacity of the captured stderr ring.
	StderrLines int `yaml:"stderr_lines"`

	// Frame generation settings for the demo feeder.
	FrameSize int     `yaml:"frame_size"`
	FrameRate float64 `yaml:"frame_rate"`
	Frames    int     `yaml:"frames"`
}

// LoadFile parses a YAML config file. Unknown keys are rejected so typos
// surface at startup instead of being silently ignored.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &f, nil
}
