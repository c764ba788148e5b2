// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"strings"
	"sync"
)

// LineRing is a thread-safe bounded ring of recently captured output lines.
// The drain goroutine appends; readers take snapshots for logging and
// fault reports.
type LineRing struct {
	mu    sync.RWMutex
	lines []string
	head  int
	count int
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 64
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Append adds one line, evicting the oldest when full.
func (r *LineRing) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// Write implements io.Writer for line-oriented input; embedded newlines
// split the payload into separate entries.
func (r *LineRing) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line == "" {
			continue
		}
		r.Append(line)
	}
	return len(p), nil
}

// LastN returns up to n of the most recent lines in append order.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	start := r.head - n
	if start < 0 {
		start += len(r.lines)
	}
	for i := 0; i < n; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// Len returns the number of buffered lines.
func (r *LineRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Reset discards all buffered lines.
func (r *LineRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
	for i := range r.lines {
		r.lines[i] = ""
	}
}
