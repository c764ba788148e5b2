// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

// Package config provides environment and file based configuration for the
// videopipe tooling.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/log"
	"github.com/rs/zerolog"
)

// ParseString reads a string from an environment variable or returns the
// default value. The source (environment or default) is logged.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		logValue(logger, key, value, "environment")
		return value
	}
	logValue(logger, key, defaultValue, "default")
	return defaultValue
}

// ParseDuration reads a time.Duration from an environment variable.
// Invalid values fall back to the default with a warning.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", value).Err(err).
				Msg("invalid duration, using default")
			return defaultValue
		}
		logValue(logger, key, parsed.String(), "environment")
		return parsed
	}
	logValue(logger, key, defaultValue.String(), "default")
	return defaultValue
}

// ParseInt reads an integer from an environment variable.
// Invalid values fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", value).Err(err).
				Msg("invalid integer, using default")
			return defaultValue
		}
		logValue(logger, key, value, "environment")
		return parsed
	}
	logValue(logger, key, strconv.Itoa(defaultValue), "default")
	return defaultValue
}

// ParseBool reads a boolean from an environment variable.
// Invalid values fall back to the default with a warning.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", value).Err(err).
				Msg("invalid boolean, using default")
			return defaultValue
		}
		logValue(logger, key, value, "environment")
		return parsed
	}
	logValue(logger, key, strconv.FormatBool(defaultValue), "default")
	return defaultValue
}

func logValue(logger zerolog.Logger, key, value, source string) {
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", source).
		Msg("config value resolved")
}
