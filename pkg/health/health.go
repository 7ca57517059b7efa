// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

// Package health holds the serializable health snapshot shared by the sync
// pipeline and the HTTP health endpoint.
package health

import "time"

// Metrics is a point-in-time view of role-connection write health.
type Metrics struct {
	Written       int64      `json:"written" doc:"Successful metadata writes since start"`
	FailureCount  int64      `json:"failure_count" doc:"Failed metadata writes since start"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available" doc:"False while a recent write failure is in cooldown"`
}

// Reporter provides health snapshots.
type Reporter interface {
	HealthMetrics() Metrics
}
