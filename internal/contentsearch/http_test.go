// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package contentsearch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestHTTPSearcherSearch(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"events": [
			{"actor_id": "actor2", "content_key": "shared text", "timestamp": "2026-08-01T12:00:02Z", "post_ref": "remote1"}
		]}`))
	}))
	defer server.Close()

	searcher := NewHTTPSearcher(server.URL, map[string]string{"X-Api-Key": "secret"}, time.Second)
	events, err := searcher.Search(context.Background(), "shared text")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(events) != 1 || events[0].ActorID != "actor2" {
		t.Errorf("Search() = %+v", events)
	}

	var req searchRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request decode error = %v", err)
	}
	if req.ContentKey != "shared text" {
		t.Errorf("request content_key = %q", req.ContentKey)
	}
}

func TestHTTPSearcherNotFoundMeansNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	searcher := NewHTTPSearcher(server.URL, nil, time.Second)
	events, err := searcher.Search(context.Background(), "k")
	if err != nil {
		t.Fatalf("Search() error = %v, want nil for 404", err)
	}
	if events != nil {
		t.Errorf("Search() = %+v, want nil", events)
	}
}

func TestHTTPSearcherStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{name: "bad request is permanent", status: http.StatusBadRequest, permanent: true},
		{name: "unauthorized is permanent", status: http.StatusUnauthorized, permanent: true},
		{name: "rate limited is transient", status: http.StatusTooManyRequests, permanent: false},
		{name: "server error is transient", status: http.StatusInternalServerError, permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			searcher := NewHTTPSearcher(server.URL, nil, time.Second)
			_, err := searcher.Search(context.Background(), "k")
			if err == nil {
				t.Fatalf("Search() expected error for status %d", tt.status)
			}
			if errors.Is(err, ErrPermanent) != tt.permanent {
				t.Errorf("errors.Is(err, ErrPermanent) = %v, want %v (err = %v)",
					!tt.permanent, tt.permanent, err)
			}
		})
	}
}

func TestHTTPSearcherMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events": [truncated`))
	}))
	defer server.Close()

	searcher := NewHTTPSearcher(server.URL, nil, time.Second)
	if _, err := searcher.Search(context.Background(), "k"); err == nil {
		t.Error("Search() expected error for malformed JSON")
	}
}
