// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridges

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMashup/services/mashup/cache"
	"github.com/AleutianAI/AleutianMashup/services/mashup/composer"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
)

// HTTPClient is the transport seam of the REST bridge.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RestConfig holds the tunables of the REST bridge.
type RestConfig struct {
	// Timeout bounds each upstream request.
	Timeout time.Duration

	// CacheTTL is how long a response stays valid for its address.
	CacheTTL time.Duration

	// Client overrides the HTTP client, mainly for tests. When nil a
	// client with the configured timeout is used.
	Client HTTPClient

	// Cache stores responses per composed address. When nil no
	// response caching happens.
	Cache cache.Store

	// Logger receives per-request diagnostics.
	Logger *slog.Logger
}

// DefaultRestConfig returns the production defaults: 3 second timeout,
// 30 minute response cache.
func DefaultRestConfig() RestConfig {
	return RestConfig{
		Timeout:  3 * time.Second,
		CacheTTL: 30 * time.Minute,
	}
}

// RestBridge executes rest- and query-protocol operations over HTTP.
// Identical addresses within the cache TTL are served from the response
// cache without touching the upstream.
type RestBridge struct {
	client   HTTPClient
	cache    cache.Store
	cacheTTL time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRestBridge builds the HTTP bridge from a config.
func NewRestBridge(cfg RestConfig) *RestBridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RestBridge{
		client:   client,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// ExecuteQuery implements Bridge. The address is composed from the
// descriptor and the decorated context, fetched (or served from the
// response cache) and decoded as JSON; the pagination status is read
// off the decoded payload.
func (b *RestBridge) ExecuteQuery(ctx context.Context, descriptor *datatypes.ServiceDescriptor, decorated *datatypes.DecoratedCDT, page string) (*Response, error) {
	address, err := composer.ComposeAddress(descriptor, decorated, page)
	if err != nil {
		return nil, fmt.Errorf("compose address for %q: %w", descriptor.Name, err)
	}

	payload, err := b.fetch(ctx, descriptor, address)
	if err != nil {
		return nil, err
	}

	response := &Response{Payload: payload}
	b.attachPaginationStatus(descriptor, page, payload, response)
	return response, nil
}

func (b *RestBridge) fetch(ctx context.Context, descriptor *datatypes.ServiceDescriptor, address string) (any, error) {
	cacheKey := "bridge:" + address
	if b.cache != nil {
		cached, found, err := b.cache.Get(ctx, cacheKey)
		if err != nil {
			b.logger.Warn("response cache read failed", "address", address, "error", err)
		} else if found {
			var payload any
			if err := json.Unmarshal([]byte(cached), &payload); err == nil {
				return payload, nil
			}
			b.logger.Warn("discarding undecodable cached response", "address", address)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", descriptor.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	for _, h := range descriptor.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		recordQuery(descriptor.Service.Name, start, false)
		return nil, fmt.Errorf("query %q: %w", descriptor.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordQuery(descriptor.Service.Name, start, false)
		return nil, fmt.Errorf("read response of %q: %w", descriptor.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		recordQuery(descriptor.Service.Name, start, false)
		return nil, fmt.Errorf("query %q: upstream status %d", descriptor.Name, resp.StatusCode)
	}
	recordQuery(descriptor.Service.Name, start, true)

	b.logger.Debug("upstream query",
		"operation", descriptor.Name,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response of %q: %w", descriptor.Name, err)
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, cacheKey, string(body), b.cacheTTL); err != nil {
			b.logger.Warn("response cache write failed", "address", address, "error", err)
		}
	}
	return payload, nil
}

// recordQuery feeds the upstream counters. A cached response never
// reaches this point, so the metrics count real network exchanges only.
func recordQuery(service string, start time.Time, success bool) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordUpstreamQuery(service, time.Since(start).Seconds(), success)
	}
}

// attachPaginationStatus derives whether the operation has another page
// and the value requesting it.
func (b *RestBridge) attachPaginationStatus(descriptor *datatypes.ServiceDescriptor, page string, payload any, response *Response) {
	p := descriptor.Pagination
	if p == nil {
		return
	}

	switch p.Type {
	case datatypes.PaginationNumber:
		current := 1
		if page != "" {
			n, err := strconv.Atoi(page)
			if err != nil {
				b.logger.Warn("non-numeric page value", "operation", descriptor.Name, "page", page)
				return
			}
			current = n
		}
		pageCount, ok := numberAt(payload, p.PageCountAttribute)
		if !ok {
			return
		}
		if current+1 <= pageCount {
			response.HasNextPage = true
			response.NextPage = strconv.Itoa(current + 1)
		}

	case datatypes.PaginationToken:
		token, ok := stringAt(payload, p.TokenAttribute)
		if ok && token != "" {
			response.HasNextPage = true
			response.NextPage = token
		}
	}
}

// attributeAt walks a dotted path through a decoded JSON payload.
func attributeAt(payload any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	current := payload
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func numberAt(payload any, path string) (int, bool) {
	value, ok := attributeAt(payload, path)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringAt(payload any, path string) (string, bool) {
	value, ok := attributeAt(payload, path)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
