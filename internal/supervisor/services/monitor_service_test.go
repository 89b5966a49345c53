// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ampwatch/ampwatch/internal/actorpool"
	"github.com/ampwatch/ampwatch/internal/coordination"
	"github.com/ampwatch/ampwatch/internal/report"
)

type stubStrategy struct{}

func (stubStrategy) Type() coordination.StrategyType { return coordination.StrategyExactURL }

func (stubStrategy) Group(context.Context, []coordination.Event) ([]coordination.ContentGroup, error) {
	return nil, nil
}

type stubSupplier struct {
	mu      sync.Mutex
	events  []coordination.Event
	err     error
	windows [][2]time.Time
}

func (s *stubSupplier) FetchBatch(_ context.Context, since, until time.Time) ([]coordination.Event, error) {
	s.mu.Lock()
	s.windows = append(s.windows, [2]time.Time{since, until})
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type stubRunner struct {
	mu     sync.Mutex
	result *coordination.Result
	err    error
	calls  int
}

func (r *stubRunner) RunCycle(_ context.Context, events []coordination.Event) (*coordination.Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	res := r.result
	if res == nil {
		res = &coordination.Result{CycleID: "stub", Actors: []coordination.ActorStat{}}
	}
	res.BatchSize = len(events)
	return res, nil
}

func (r *stubRunner) Strategy() coordination.GroupStrategy { return stubStrategy{} }

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubPublisher struct {
	mu      sync.Mutex
	reports []*report.CycleReport
}

func (p *stubPublisher) SetReport(rep *report.CycleReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, rep)
}

func (p *stubPublisher) published() []*report.CycleReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reports
}

type stubNotifier struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    int
}

func (n *stubNotifier) Name() string  { return "stub" }
func (n *stubNotifier) Enabled() bool { return n.enabled }

func (n *stubNotifier) Send(context.Context, *report.CycleReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return n.err
}

func (n *stubNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}

func testService(supplier *stubSupplier, runner *stubRunner, notifiers ...report.Notifier) (*MonitorService, *stubPublisher, *actorpool.MemoryStore) {
	publisher := &stubPublisher{}
	pool := actorpool.NewMemoryStore()
	svc := NewMonitorService(supplier, runner, pool, publisher, notifiers, MonitorConfig{
		Interval: time.Hour,
	})
	return svc, publisher, pool
}

func TestRunOnceHappyPath(t *testing.T) {
	supplier := &stubSupplier{
		events: []coordination.Event{
			{ActorID: "actor1", ContentKey: "https://example.com/a"},
			{ActorID: "actor2", ContentKey: "https://example.com/a"},
		},
	}
	runner := &stubRunner{
		result: &coordination.Result{
			CycleID: "cycle-1",
			Actors: []coordination.ActorStat{
				{ActorID: "actor1"},
				{ActorID: "actor2"},
			},
		},
	}
	notifier := &stubNotifier{enabled: true}
	svc, publisher, pool := testService(supplier, runner, notifier)

	since := time.Now().UTC().Add(-time.Minute)
	until := svc.runOnce(context.Background(), since)

	if until.Before(since) {
		t.Errorf("returned window start %v precedes %v", until, since)
	}
	if runner.callCount() != 1 {
		t.Errorf("engine ran %d times, want 1", runner.callCount())
	}

	reports := publisher.published()
	if len(reports) != 1 {
		t.Fatalf("published %d reports, want 1", len(reports))
	}
	if reports[0].CycleID != "cycle-1" || reports[0].ActorCount != 2 {
		t.Errorf("report = %+v", reports[0])
	}
	if notifier.sentCount() != 1 {
		t.Errorf("notifier sent %d times, want 1", notifier.sentCount())
	}

	members := pool.Members()
	if len(members) != 2 {
		t.Fatalf("pool has %d members, want 2", len(members))
	}
	if members[0].ActorID != "actor1" || members[1].ActorID != "actor2" {
		t.Errorf("pool members = %+v", members)
	}
}

func TestRunOnceSupplierNoBatchSkipsCycle(t *testing.T) {
	supplier := &stubSupplier{err: coordination.ErrInsufficientInput}
	runner := &stubRunner{}
	svc, publisher, _ := testService(supplier, runner)

	since := time.Now().UTC().Add(-time.Minute)
	until := svc.runOnce(context.Background(), since)

	if runner.callCount() != 0 {
		t.Error("engine must not run when the supplier delivers no batch")
	}
	if len(publisher.published()) != 0 {
		t.Error("no report must be published for a skipped cycle")
	}
	// The window still advances so the next cycle fetches a fresh range.
	if !until.After(since) {
		t.Errorf("window did not advance: since=%v until=%v", since, until)
	}
}

func TestRunOnceSupplierErrorSkipsCycle(t *testing.T) {
	supplier := &stubSupplier{err: errors.New("collector unreachable")}
	runner := &stubRunner{}
	svc, publisher, _ := testService(supplier, runner)

	svc.runOnce(context.Background(), time.Now().UTC().Add(-time.Minute))

	if runner.callCount() != 0 {
		t.Error("engine must not run on fetch failure")
	}
	if len(publisher.published()) != 0 {
		t.Error("no report must be published on fetch failure")
	}
}

func TestRunOnceEngineFailureSkipsPublish(t *testing.T) {
	supplier := &stubSupplier{events: []coordination.Event{{ActorID: "a", ContentKey: "k"}}}
	runner := &stubRunner{err: errors.New("pipeline exploded")}
	svc, publisher, pool := testService(supplier, runner)

	since := time.Now().UTC().Add(-time.Minute)
	until := svc.runOnce(context.Background(), since)

	if len(publisher.published()) != 0 {
		t.Error("failed cycle must not publish a report")
	}
	if len(pool.Members()) != 0 {
		t.Error("failed cycle must not touch the actor pool")
	}
	if !until.After(since) {
		t.Error("window must advance even on engine failure")
	}
}

func TestRunOnceDisabledNotifierSkipped(t *testing.T) {
	supplier := &stubSupplier{events: []coordination.Event{}}
	runner := &stubRunner{}
	disabled := &stubNotifier{enabled: false}
	enabled := &stubNotifier{enabled: true}
	svc, _, _ := testService(supplier, runner, disabled, enabled)

	svc.runOnce(context.Background(), time.Now().UTC().Add(-time.Minute))

	if disabled.sentCount() != 0 {
		t.Error("disabled notifier must not be invoked")
	}
	if enabled.sentCount() != 1 {
		t.Errorf("enabled notifier sent %d times, want 1", enabled.sentCount())
	}
}

func TestRunOnceNotifierFailureNotFatal(t *testing.T) {
	supplier := &stubSupplier{events: []coordination.Event{}}
	runner := &stubRunner{
		result: &coordination.Result{
			CycleID: "cycle-1",
			Actors:  []coordination.ActorStat{{ActorID: "actor1"}},
		},
	}
	failing := &stubNotifier{enabled: true, err: errors.New("webhook down")}
	svc, publisher, pool := testService(supplier, runner, failing)

	svc.runOnce(context.Background(), time.Now().UTC().Add(-time.Minute))

	// The cycle completes despite the delivery failure.
	if len(publisher.published()) != 1 {
		t.Error("report must be published despite notifier failure")
	}
	if len(pool.Members()) != 1 {
		t.Error("actor pool must be updated despite notifier failure")
	}
}

func TestRunOnceFetchWindowsAreContiguous(t *testing.T) {
	supplier := &stubSupplier{events: []coordination.Event{}}
	runner := &stubRunner{}
	svc, _, _ := testService(supplier, runner)

	since := time.Now().UTC().Add(-time.Minute)
	mid := svc.runOnce(context.Background(), since)
	svc.runOnce(context.Background(), mid)

	if len(supplier.windows) != 2 {
		t.Fatalf("supplier saw %d fetches, want 2", len(supplier.windows))
	}
	if !supplier.windows[0][0].Equal(since) {
		t.Errorf("first window starts at %v, want %v", supplier.windows[0][0], since)
	}
	// The second fetch starts exactly where the first ended.
	if !supplier.windows[1][0].Equal(supplier.windows[0][1]) {
		t.Errorf("windows not contiguous: first ends %v, second starts %v",
			supplier.windows[0][1], supplier.windows[1][0])
	}
}

func TestMonitorServiceServe(t *testing.T) {
	supplier := &stubSupplier{events: []coordination.Event{}}
	runner := &stubRunner{}
	svc, publisher, _ := testService(supplier, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// The first cycle runs immediately, before any tick.
	deadline := time.After(2 * time.Second)
	for runner.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}

	if len(publisher.published()) != 1 {
		t.Errorf("published %d reports, want 1", len(publisher.published()))
	}
}

func TestMonitorServiceString(t *testing.T) {
	svc, _, _ := testService(&stubSupplier{}, &stubRunner{})
	if svc.String() != "monitor-loop" {
		t.Errorf("String() = %q", svc.String())
	}
}
