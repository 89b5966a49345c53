// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package contentsearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ampwatch/ampwatch/internal/coordination"
)

// HTTPSearcher queries a content-search service over HTTP. The service
// accepts a JSON body {"content_key": "..."} on POST and responds with a
// JSON array of events. It is the transport-level inner searcher normally
// wrapped by Client.
type HTTPSearcher struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPSearcher creates an HTTP-backed searcher for the given endpoint.
func NewHTTPSearcher(endpoint string, headers map[string]string, timeout time.Duration) *HTTPSearcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &HTTPSearcher{
		endpoint: endpoint,
		headers:  h,
		client:   &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	ContentKey string `json:"content_key"`
}

type searchResponse struct {
	Events []coordination.Event `json:"events"`
}

// Search implements coordination.Searcher.
func (s *HTTPSearcher) Search(ctx context.Context, contentKey string) ([]coordination.Event, error) {
	body, err := json.Marshal(searchRequest{ContentKey: contentKey})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode.
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// Client errors other than rate limiting will not heal on retry.
		return nil, fmt.Errorf("search returned status %d: %w", resp.StatusCode, ErrPermanent)
	default:
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Events, nil
}
