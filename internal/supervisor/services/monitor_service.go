// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package services

import (
	"context"
	"errors"
	"time"

	"github.com/ampwatch/ampwatch/internal/actorpool"
	"github.com/ampwatch/ampwatch/internal/coordination"
	"github.com/ampwatch/ampwatch/internal/logging"
	"github.com/ampwatch/ampwatch/internal/metrics"
	"github.com/ampwatch/ampwatch/internal/report"
)

// CycleRunner matches the coordination engine's RunCycle method. The
// interface keeps this package testable without a full engine.
type CycleRunner interface {
	RunCycle(ctx context.Context, events []coordination.Event) (*coordination.Result, error)
	Strategy() coordination.GroupStrategy
}

// ReportPublisher receives the report produced by each cycle. Satisfied by
// *api.State.
type ReportPublisher interface {
	SetReport(rep *report.CycleReport)
}

// MonitorConfig configures the periodic monitor loop.
type MonitorConfig struct {
	// Interval between cycle starts. Default: 5m.
	Interval time.Duration

	// CycleTimeout bounds one full cycle including external lookups.
	// Default: Interval.
	CycleTimeout time.Duration

	// Lookback widens the first cycle's fetch window so a restart does not
	// drop the events that arrived while the process was down. Default:
	// Interval.
	Lookback time.Duration
}

// MonitorService drives the detection loop: on each tick it fetches the
// event batch for the elapsed window, runs one engine cycle, publishes the
// report, notifies sinks and appends newly flagged actors to the pool.
//
// Cycles never overlap. A cycle that fails is logged and skipped; the next
// tick starts fresh. Only context cancellation ends the service.
type MonitorService struct {
	supplier  coordination.EventSupplier
	engine    CycleRunner
	pool      actorpool.Store
	publisher ReportPublisher
	notifiers []report.Notifier
	cfg       MonitorConfig
	name      string
}

// NewMonitorService creates the monitor loop service.
func NewMonitorService(
	supplier coordination.EventSupplier,
	engine CycleRunner,
	pool actorpool.Store,
	publisher ReportPublisher,
	notifiers []report.Notifier,
	cfg MonitorConfig,
) *MonitorService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = cfg.Interval
	}
	return &MonitorService{
		supplier:  supplier,
		engine:    engine,
		pool:      pool,
		publisher: publisher,
		notifiers: notifiers,
		cfg:       cfg,
		name:      "monitor-loop",
	}
}

// Serve implements suture.Service. The first cycle runs immediately;
// subsequent cycles run on the ticker.
func (m *MonitorService) Serve(ctx context.Context) error {
	since := time.Now().UTC().Add(-m.cfg.Lookback)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	since = m.runOnce(ctx, since)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			since = m.runOnce(ctx, since)
		}
	}
}

// runOnce executes one cycle and returns the next fetch window's start.
// The window advances even on failure so a poisoned batch cannot wedge the
// loop fetching the same range forever.
func (m *MonitorService) runOnce(ctx context.Context, since time.Time) time.Time {
	until := time.Now().UTC()

	cycleCtx, cancel := context.WithTimeout(ctx, m.cfg.CycleTimeout)
	defer cancel()
	cycleCtx = logging.ContextWithCycleID(cycleCtx, logging.GenerateCycleID())
	logger := logging.LoggerFromContext(cycleCtx)

	strategy := string(m.engine.Strategy().Type())
	start := time.Now()

	batch, err := m.supplier.FetchBatch(cycleCtx, since, until)
	if err != nil {
		if errors.Is(err, coordination.ErrInsufficientInput) {
			logger.Warn().Err(err).Msg("supplier delivered no batch, skipping cycle")
		} else {
			logger.Error().Err(err).Msg("batch fetch failed, skipping cycle")
		}
		metrics.RecordCycle(strategy, time.Since(start), 0, err)
		return until
	}

	result, err := m.engine.RunCycle(cycleCtx, batch)
	metrics.RecordCycle(strategy, time.Since(start), len(batch), err)
	if err != nil {
		logger.Error().Err(err).Msg("detection cycle failed")
		return until
	}
	metrics.RecordPipelineStages(result.GroupCount, result.WindowCount, len(result.Actors))

	rep := report.FromResult(result)
	m.publisher.SetReport(rep)
	m.notify(cycleCtx, rep)
	m.recordActors(cycleCtx, result)

	logger.Info().
		Int("batch_size", result.BatchSize).
		Int("actors_flagged", len(result.Actors)).
		Int("clusters", rep.ClusterCount).
		Dur("elapsed", time.Since(start)).
		Msg("cycle complete")

	return until
}

// notify fans the report out to all enabled notifiers. Delivery failures
// are logged, never fatal.
func (m *MonitorService) notify(ctx context.Context, rep *report.CycleReport) {
	for _, n := range m.notifiers {
		if !n.Enabled() {
			continue
		}
		err := n.Send(ctx, rep)
		metrics.RecordNotification(n.Name(), err)
		if err != nil {
			logger := logging.LoggerFromContext(ctx)
			logger.Warn().
				Err(err).
				Str("notifier", n.Name()).
				Msg("report notification failed")
		}
	}
}

// recordActors appends newly flagged actors to the pool and refreshes the
// pool size gauge.
func (m *MonitorService) recordActors(ctx context.Context, result *coordination.Result) {
	logger := logging.LoggerFromContext(ctx)

	added, err := m.pool.Append(ctx, result.ActorIDs())
	if err != nil {
		logger.Warn().Err(err).Msg("actor pool append failed")
		return
	}
	if added > 0 {
		logger.Info().Int("new_actors", added).Msg("actor pool grew")
	}

	known, err := m.pool.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("actor pool load failed")
		return
	}
	metrics.SetActorPoolSize(len(known))
}

// String implements fmt.Stringer for supervisor logging.
func (m *MonitorService) String() string {
	return m.name
}
