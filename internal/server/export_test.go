// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolelink Contributors

package server

import "time"

// StateCookieName exposes the OAuth state cookie name to tests.
const StateCookieName = stateCookieName

// SetClock replaces the clock used to stamp stored credentials.
func (s *Services) SetClock(now func() time.Time) {
	s.now = now
}

// VisitorCount runs one cleanup pass at now on a limiter built from cfg
// after seeding it with ips, and returns the number of tracked visitors.
func VisitorCount(cfg RateLimitConfig, seen map[string]time.Time, now time.Time) int {
	v := newVisitors(cfg)
	for ip, at := range seen {
		v.allow(ip, at)
	}
	v.cleanup(now)
	return v.size()
}
