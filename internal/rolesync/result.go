// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package rolesync

import (
	"context"
	"log/slog"
)

// Outcome classifies what happened to one mapped role transition, or to
// the unlinked-user notification of an event.
type Outcome string

const (
	OutcomeWritten       Outcome = "written"
	OutcomeWriteRejected Outcome = "write_rejected"
	OutcomeWriteError    Outcome = "write_error"
	OutcomeNoCredential  Outcome = "no_credential"
	OutcomeLookupFailed  Outcome = "lookup_failed"
	OutcomeNotified      Outcome = "notified"
	OutcomeNotifyFailed  Outcome = "notify_failed"
)

// Result is reported to the ResultSink once per mapped transition, and
// once for the notification attempt of an event.
type Result struct {
	GuildID     string
	UserID      string
	RoleID      string
	MetadataKey string
	Value       string
	Outcome     Outcome
	// Status and Body carry a rejected write's HTTP response.
	Status int
	Body   string
	Err    error
}

// ResultSink receives sync outcomes. Implementations must not block.
type ResultSink interface {
	Record(ctx context.Context, r Result)
}

// LogSink writes results to a slog.Logger.
type LogSink struct {
	Logger *slog.Logger
}

// Record implements ResultSink.
func (s LogSink) Record(ctx context.Context, r Result) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"guild_id", r.GuildID,
		"user_id", r.UserID,
		"outcome", string(r.Outcome),
	}
	if r.RoleID != "" {
		attrs = append(attrs, "role_id", r.RoleID, "metadata_key", r.MetadataKey, "value", r.Value)
	}

	switch r.Outcome {
	case OutcomeWritten:
		logger.InfoContext(ctx, "role connection updated", attrs...)
	case OutcomeNoCredential:
		logger.InfoContext(ctx, "user has not connected", attrs...)
	case OutcomeNotified:
		logger.DebugContext(ctx, "connect prompt sent", attrs...)
	case OutcomeWriteRejected:
		logger.WarnContext(ctx, "role connection update rejected", append(attrs, "status", r.Status, "body", r.Body)...)
	case OutcomeNotifyFailed:
		logger.DebugContext(ctx, "connect prompt not delivered", append(attrs, "error", r.Err)...)
	default:
		logger.ErrorContext(ctx, "role sync failed", append(attrs, "error", r.Err)...)
	}
}
