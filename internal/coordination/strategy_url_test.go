// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"testing"
	"time"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "tracking params stripped",
			raw:  "https://example.com/article?utm_source=twitter&utm_campaign=x&id=42",
			want: "https://example.com/article?id=42",
			ok:   true,
		},
		{
			name: "fbclid stripped",
			raw:  "https://example.com/article?fbclid=IwAR123",
			want: "https://example.com/article",
			ok:   true,
		},
		{
			name: "www prefix removed",
			raw:  "https://www.example.com/article",
			want: "https://example.com/article",
			ok:   true,
		},
		{
			name: "scheme normalized to https",
			raw:  "http://example.com/article",
			want: "https://example.com/article",
			ok:   true,
		},
		{
			name: "trailing slash removed",
			raw:  "https://example.com/article/",
			want: "https://example.com/article",
			ok:   true,
		},
		{
			name: "query params sorted",
			raw:  "https://example.com/a?b=2&a=1",
			want: "https://example.com/a?a=1&b=2",
			ok:   true,
		},
		{
			name: "mobile facebook aliased",
			raw:  "https://m.facebook.com/story.php?story_fbid=10",
			want: "https://facebook.com/story.php?story_fbid=10",
			ok:   true,
		},
		{
			name: "x.com aliased to twitter",
			raw:  "https://x.com/user/status/123",
			want: "https://twitter.com/user/status/123",
			ok:   true,
		},
		{
			name: "youtu.be resolves to watch URL",
			raw:  "https://youtu.be/dQw4w9WgXcQ",
			want: "https://youtube.com/watch?v=dQw4w9WgXcQ",
			ok:   true,
		},
		{
			name: "youtube watch link with si param matches short form",
			raw:  "https://www.youtube.com/watch?si=abc&v=dQw4w9WgXcQ",
			want: "https://youtube.com/watch?v=dQw4w9WgXcQ",
			ok:   true,
		},
		{
			name: "bare domain excluded",
			raw:  "https://facebook.com/",
			ok:   false,
		},
		{
			name: "login page excluded",
			raw:  "https://example.com/login?next=/article",
			ok:   false,
		},
		{
			name: "twitter share intent excluded",
			raw:  "https://twitter.com/intent/tweet?text=hello",
			ok:   false,
		},
		{
			name: "facebook sharer excluded",
			raw:  "https://www.facebook.com/sharer/sharer.php?u=https%3A%2F%2Fexample.com",
			ok:   false,
		},
		{
			name: "whatsapp share excluded",
			raw:  "https://wa.me/?text=check+this+out",
			ok:   false,
		},
		{
			name: "facebook redirector excluded",
			raw:  "https://l.facebook.com/l.php?u=https%3A%2F%2Fexample.com",
			ok:   false,
		},
		{
			name: "non-http scheme rejected",
			raw:  "ftp://example.com/file",
			ok:   false,
		},
		{
			name: "malformed rejected",
			raw:  "http://%zz",
			ok:   false,
		},
		{
			name: "empty rejected",
			raw:  "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalizeURL(tt.raw)
			if ok != tt.ok {
				t.Fatalf("CanonicalizeURL(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExactURLStrategyGroupsEquivalentForms(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{ActorID: "actor1", ContentKey: "https://www.example.com/article?utm_source=a", Timestamp: ts, PostRef: "p1"},
		{ActorID: "actor2", ContentKey: "http://example.com/article/", Timestamp: ts, PostRef: "p2"},
		{ActorID: "actor3", ContentKey: "https://example.com/other", Timestamp: ts, PostRef: "p3"},
	}

	s := NewExactURLStrategy(DefaultConfig())
	groups, err := s.Group(context.Background(), events)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Key != "https://example.com/article" {
		t.Errorf("group key = %q, want canonical form", g.Key)
	}
	if g.DistinctActors() != 2 {
		t.Errorf("DistinctActors() = %d, want 2", g.DistinctActors())
	}
	// Member events carry the canonical key, not the raw URL.
	for _, ev := range g.Events {
		if ev.ContentKey != g.Key {
			t.Errorf("event content key = %q, want %q", ev.ContentKey, g.Key)
		}
	}
}

func TestExactURLStrategySingleActorGroupDropped(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{ActorID: "actor1", ContentKey: "https://example.com/article", Timestamp: ts, PostRef: "p1"},
		{ActorID: "actor1", ContentKey: "https://example.com/article", Timestamp: ts.Add(time.Second), PostRef: "p2"},
	}

	s := NewExactURLStrategy(DefaultConfig())
	groups, err := s.Group(context.Background(), events)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("got %d groups, want 0: one actor resharing is not coordination", len(groups))
	}
}

func TestExactURLStrategyUninformativeURLsExcluded(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{ActorID: "actor1", ContentKey: "https://facebook.com/", Timestamp: ts},
		{ActorID: "actor2", ContentKey: "https://facebook.com/", Timestamp: ts},
		{ActorID: "actor3", ContentKey: "", Timestamp: ts},
	}

	s := NewExactURLStrategy(DefaultConfig())
	groups, err := s.Group(context.Background(), events)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("got %d groups, want 0: bare domains carry no shared content", len(groups))
	}
}
