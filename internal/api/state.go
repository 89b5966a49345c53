// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package api

import (
	"sync"

	"github.com/ampwatch/ampwatch/internal/report"
)

// State holds the latest published cycle report. The monitor loop writes a
// new report at cycle end; API handlers read concurrently.
type State struct {
	mu     sync.RWMutex
	latest *report.CycleReport
}

// NewState creates an empty state.
func NewState() *State {
	return &State{}
}

// SetReport publishes a new report, replacing the previous one.
func (s *State) SetReport(rep *report.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = rep
}

// Report returns the latest published report, or nil before the first cycle
// completes.
func (s *State) Report() *report.CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
