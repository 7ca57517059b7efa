// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package rolesync

import (
	"context"
	"net/http"
	"sync"
	"time"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
	"github.com/rolelink-dev/rolelink/pkg/health"
)

// DefaultHealthCooldown is how long a write failure keeps the pipeline
// reported as degraded.
const DefaultHealthCooldown = 30 * time.Second

// HealthSink tracks write health from sync results and forwards every
// result to the next sink. Only failures on Discord's side count: transport
// errors, 5xx and 429 answers. A 4xx for one user's stale grant does not.
type HealthSink struct {
	next ResultSink

	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	written      int64
	failureCount int64
	nowFunc      func() time.Time
}

var (
	_ ResultSink      = (*HealthSink)(nil)
	_ health.Reporter = (*HealthSink)(nil)
)

// NewHealthSink wraps next, which may be nil.
func NewHealthSink(next ResultSink, cooldown time.Duration) (*HealthSink, error) {
	if cooldown <= 0 {
		return nil, rlerr.Errorf(rlerr.CodeConfigValidateInvalidValue,
			"health cooldown must be positive, got %s", cooldown)
	}
	return &HealthSink{
		next:     next,
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// Record implements ResultSink.
func (h *HealthSink) Record(ctx context.Context, r Result) {
	switch {
	case r.Outcome == OutcomeWritten:
		h.mu.Lock()
		h.healthy = true
		h.written++
		h.mu.Unlock()
	case upstreamFailure(r):
		h.mu.Lock()
		h.healthy = false
		h.failedAt = h.nowFunc()
		h.failureCount++
		h.mu.Unlock()
	}

	if h.next != nil {
		h.next.Record(ctx, r)
	}
}

func upstreamFailure(r Result) bool {
	switch r.Outcome {
	case OutcomeWriteError:
		return true
	case OutcomeWriteRejected:
		return r.Status >= http.StatusInternalServerError || r.Status == http.StatusTooManyRequests
	}
	return false
}

// available reports whether writes are healthy or the cooldown elapsed.
// The caller must hold h.mu.
func (h *HealthSink) available() bool {
	if h.healthy {
		return true
	}
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// HealthMetrics returns a snapshot safe to serialize.
func (h *HealthSink) HealthMetrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		Written:      h.written,
		FailureCount: h.failureCount,
		Available:    h.available(),
	}
	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}
	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}

// SetNowFunc overrides the time source.
func (h *HealthSink) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}
