// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package ingest fetches the per-cycle event batch from the upstream
// collection service. The batch is the raw observation stream for one
// monitoring interval; the engine does all interpretation.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/ampwatch/ampwatch/internal/coordination"
)

// maxResponseBytes bounds a single batch response body.
const maxResponseBytes = 64 << 20

// HTTPSupplier implements coordination.EventSupplier against an HTTP
// collection endpoint. Each FetchBatch issues one GET with the window
// bounds as query parameters and decodes the returned event array.
type HTTPSupplier struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPSupplier creates a supplier for the given endpoint.
func NewHTTPSupplier(endpoint string, headers map[string]string, timeout time.Duration) *HTTPSupplier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &HTTPSupplier{
		endpoint: endpoint,
		headers:  h,
		client:   &http.Client{Timeout: timeout},
	}
}

type batchResponse struct {
	Events []coordination.Event `json:"events"`
}

// FetchBatch implements coordination.EventSupplier. The since/until bounds
// are passed as Unix-second query parameters; a 204 or an empty array both
// yield an empty batch.
func (s *HTTPSupplier) FetchBatch(ctx context.Context, since, until time.Time) ([]coordination.Event, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ingest endpoint: %w", err)
	}
	q := u.Query()
	q.Set("since", strconv.FormatInt(since.Unix(), 10))
	q.Set("until", strconv.FormatInt(until.Unix(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create batch request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return []coordination.Event{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read batch response: %w", err)
	}

	var parsed batchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	if parsed.Events == nil {
		// A delivered-but-empty batch is {"events": []}; a missing or null
		// events field means the collector produced no batch at all.
		return nil, fmt.Errorf("%w: response carried no events field", coordination.ErrInsufficientInput)
	}
	return parsed.Events, nil
}
