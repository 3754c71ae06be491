// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/internal/logger"
	"github.com/guardian-coverdrop/coverdrop-core/internal/metrics"
)

// Server is the health-check HTTP server: /health, /health/live,
// /health/ready, /metrics.
type Server struct {
	checker  *Checker
	logger   logger.Logger
	port     int
	server   *http.Server
	readyKey string
}

// NewServer creates a new health check server. readyKey names the
// registered check that gates readiness (typically "hierarchy", since
// nothing useful happens before the first hierarchy fetch succeeds).
func NewServer(checker *Checker, log logger.Logger, port int, readyKey string) *Server {
	return &Server{checker: checker, logger: log, port: port, readyKey: readyKey}
}

// Start launches the HTTP server in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("starting health check server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health check server error: " + err.Error())
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.checker.GetSystemHealth(r.Context())

	switch status.Status {
	case StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	results := s.checker.CheckAll(r.Context())

	readyResult, registered := results[s.readyKey]
	ready := !registered || (readyResult != nil && readyResult.Status == StatusHealthy)

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if registered {
		response["gate"] = s.readyKey
		response["gate_status"] = readyResult.Status
	}

	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	collector := metrics.GetGlobalCollector()
	snapshot := collector.GetSnapshot()

	response := map[string]interface{}{
		"timestamp": snapshot.Timestamp.UTC().Format(time.RFC3339),
		"uptime":    snapshot.Uptime.String(),
		"counters": map[string]int64{
			"envelopes_processed":  snapshot.EnvelopesProcessed,
			"envelope_failures":    snapshot.EnvelopeFailures,
			"hierarchy_rebuilds":   snapshot.HierarchyRebuilds,
			"hierarchy_rejections": snapshot.HierarchyRejections,
			"key_rotations":        snapshot.KeyRotations,
			"backups_created":      snapshot.BackupsCreated,
			"restores_completed":   snapshot.RestoresCompleted,
		},
		"timings": map[string]interface{}{
			"avg_envelope_time_us":           snapshot.AvgEnvelopeTime,
			"avg_hierarchy_rebuild_time_us":  snapshot.AvgHierarchyRebuildTime,
			"p95_envelope_time_us":           snapshot.P95EnvelopeTime,
			"p95_hierarchy_rebuild_time_us":  snapshot.P95HierarchyRebuildTime,
		},
		"rates": map[string]float64{
			"envelope_failure_rate": snapshot.EnvelopeFailureRate(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// StartHealthServer is a convenience constructor used by cmd entry
// points that don't need to customize the checker registry themselves.
func StartHealthServer(port int, readyKey string) (*Server, error) {
	checker := NewHealthChecker(5 * time.Second)
	log := logger.NewLogger(os.Stdout, logger.InfoLevel)

	server := NewServer(checker, log, port, readyKey)
	if err := server.Start(); err != nil {
		return nil, err
	}
	return server, nil
}
