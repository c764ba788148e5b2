// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"sync"
	"time"

	"github.com/rafaelcaricio/gst-subprocess-pipe/internal/metrics"
)

// pacer gates frame release against wall clock time. The first frame
// anchors the clock and is released immediately; later frames wait until
// their timestamp is due. Frames arriving late are released at once and
// never dropped.
type pacer struct {
	mu         sync.Mutex
	anchored   bool
	anchorPTS  time.Duration
	anchorWall time.Time
	stopCh     chan struct{}
	stopped    bool
}

func newPacer() *pacer {
	return &pacer{stopCh: make(chan struct{})}
}

// reset re-arms the pacer for a new run.
func (p *pacer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anchored = false
	if p.stopped {
		p.stopCh = make(chan struct{})
		p.stopped = false
	}
}

// wait blocks until the frame with the given timestamp is due, or until
// stop cancels the wait. This is the only expected suspension point on
// the data path besides pipe backpressure.
func (p *pacer) wait(pts time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopping
	}
	if !p.anchored {
		p.anchored = true
		p.anchorPTS = pts
		p.anchorWall = time.Now()
		p.mu.Unlock()
		return nil
	}
	due := p.anchorWall.Add(pts - p.anchorPTS)
	stopCh := p.stopCh
	p.mu.Unlock()

	d := time.Until(due)
	if d <= 0 {
		// Producer is behind; trade synchrony for completeness.
		return nil
	}
	metrics.PaceWaitSeconds.Observe(d.Seconds())

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-stopCh:
		return ErrStopping
	}
}

// stop cancels any pending wait and rejects further releases until the
// next reset. Idempotent.
func (p *pacer) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
}
