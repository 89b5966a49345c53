// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ampwatch/ampwatch/internal/coordination"
)

func TestFetchBatchDecodesEvents(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"since": r.URL.Query().Get("since"),
			"until": r.URL.Query().Get("until"),
		}
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events": [
			{"actor_id": "actor1", "actor_handle": "@one", "content_key": "https://example.com/a", "timestamp": "2026-08-01T12:00:00Z", "post_ref": "p1"},
			{"actor_id": "actor2", "content_key": "https://example.com/a", "timestamp": "2026-08-01T12:00:05Z", "post_ref": "p2"}
		]}`))
	}))
	defer server.Close()

	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	until := since.Add(5 * time.Minute)

	supplier := NewHTTPSupplier(server.URL, map[string]string{"Authorization": "Bearer tok"}, time.Second)
	events, err := supplier.FetchBatch(context.Background(), since, until)
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ActorID != "actor1" || events[0].ActorHandle != "@one" {
		t.Errorf("first event = %+v", events[0])
	}
	if !events[1].Timestamp.Equal(since.Add(5 * time.Second)) {
		t.Errorf("second event timestamp = %v", events[1].Timestamp)
	}

	if gotQuery["since"] != "1785585600" {
		t.Errorf("since param = %q, want Unix seconds of %v", gotQuery["since"], since)
	}
	if gotQuery["until"] != "1785585900" {
		t.Errorf("until param = %q, want Unix seconds of %v", gotQuery["until"], until)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}

func TestFetchBatchNoContentIsEmptyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	supplier := NewHTTPSupplier(server.URL, nil, time.Second)
	events, err := supplier.FetchBatch(context.Background(), time.Now().Add(-time.Minute), time.Now())
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}
	if events == nil {
		t.Fatal("204 must yield an empty batch, not a nil one")
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestFetchBatchEmptyArrayIsEmptyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer server.Close()

	supplier := NewHTTPSupplier(server.URL, nil, time.Second)
	events, err := supplier.FetchBatch(context.Background(), time.Now().Add(-time.Minute), time.Now())
	if err != nil {
		t.Fatalf("FetchBatch() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestFetchBatchMissingEventsFieldIsInsufficientInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "null events", body: `{"events": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			supplier := NewHTTPSupplier(server.URL, nil, time.Second)
			_, err := supplier.FetchBatch(context.Background(), time.Now().Add(-time.Minute), time.Now())
			if !errors.Is(err, coordination.ErrInsufficientInput) {
				t.Errorf("FetchBatch() error = %v, want ErrInsufficientInput", err)
			}
		})
	}
}

func TestFetchBatchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collector on fire", http.StatusBadGateway)
	}))
	defer server.Close()

	supplier := NewHTTPSupplier(server.URL, nil, time.Second)
	if _, err := supplier.FetchBatch(context.Background(), time.Now().Add(-time.Minute), time.Now()); err == nil {
		t.Error("FetchBatch() expected error for status 502")
	}
}

func TestFetchBatchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": [truncated`))
	}))
	defer server.Close()

	supplier := NewHTTPSupplier(server.URL, nil, time.Second)
	if _, err := supplier.FetchBatch(context.Background(), time.Now().Add(-time.Minute), time.Now()); err == nil {
		t.Error("FetchBatch() expected error for malformed JSON")
	}
}

func TestFetchBatchContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": []}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	supplier := NewHTTPSupplier(server.URL, nil, time.Second)
	if _, err := supplier.FetchBatch(ctx, time.Now().Add(-time.Minute), time.Now()); err == nil {
		t.Error("FetchBatch() expected error for canceled context")
	}
}
