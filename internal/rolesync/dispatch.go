// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package rolesync

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	rlerr "github.com/rolelink-dev/rolelink/pkg/errors"
)

// Dispatcher runs each membership update as its own task with a deadline.
// Errors and panics are logged, never returned to the event source.
type Dispatcher struct {
	syncer  *Syncer
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher. A non-positive timeout disables the
// per-event deadline.
func NewDispatcher(s *Syncer, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{syncer: s, timeout: timeout, logger: logger}
}

// Dispatch starts processing u in a new goroutine and returns immediately.
// The task is cancelled when ctx ends or its deadline passes. Updates
// arriving after Close are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, u MemberUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Debug("dispatcher closed, dropping member update",
			"guild_id", u.GuildID, "user_id", u.UserID)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, u)
	}()
}

// Wait blocks until every dispatched task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting updates and waits for in-flight tasks. It is safe
// to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, u MemberUpdate) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in member update handler",
				"guild_id", u.GuildID,
				"user_id", u.UserID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.syncer.Sync(ctx, u); err != nil {
		level := slog.LevelError
		if rlerr.IsTimeout(err) {
			level = slog.LevelWarn
		}
		d.logger.Log(ctx, level, "member update not processed",
			"guild_id", u.GuildID,
			"user_id", u.UserID,
			"code", string(rlerr.CodeOf(err)),
			"error", err,
		)
	}
}
