// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ampwatch/ampwatch/internal/logging"
)

type healthResponse struct {
	Status      string     `json:"status"`
	LastCycleID string     `json:"last_cycle_id,omitempty"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode API response")
	}
}

// handleHealth reports liveness. The process is healthy even before the
// first cycle completes; the response just omits the cycle fields.
func (router *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if rep := router.state.Report(); rep != nil {
		resp.LastCycleID = rep.CycleID
		resp.LastCycleAt = &rep.GeneratedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport returns the full latest cycle report.
func (router *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	rep := router.state.Report()
	if rep == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cycle has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleActors returns the flagged actors from the latest cycle.
func (router *Router) handleActors(w http.ResponseWriter, r *http.Request) {
	rep := router.state.Report()
	if rep == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cycle has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id": rep.CycleID,
		"actors":   rep.Actors,
	})
}

// handleClusters returns the cluster summaries from the latest cycle.
func (router *Router) handleClusters(w http.ResponseWriter, r *http.Request) {
	rep := router.state.Report()
	if rep == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cycle has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id": rep.CycleID,
		"clusters": rep.Clusters,
	})
}
