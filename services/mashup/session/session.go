// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session serves result pages out of cached query sessions.
// A session is keyed by the content hash of the raw context, shared by
// every user submitting the same context, and grows as deeper pages
// pull more data from the upstreams that still have some.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianMashup/services/mashup/cache"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
	"github.com/AleutianAI/AleutianMashup/services/mashup/queryhandler"
)

// ErrInvalidCursor is returned for an unparsable pagination cursor.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// PrimarySelector picks the ranked primary operations for a context.
type PrimarySelector interface {
	SelectServices(ctx context.Context, decorated *datatypes.DecoratedCDT) ([]datatypes.RankedOperation, error)
}

// QueryExecutor dispatches operations and returns parsed results.
type QueryExecutor interface {
	Execute(ctx context.Context, ranked []datatypes.RankedOperation, decorated *datatypes.DecoratedCDT, pages map[string]string) (*queryhandler.Result, error)
}

// Deduplicator merges duplicate items across services and pages.
type Deduplicator interface {
	Deduplicate(items []datatypes.Item) []datatypes.Item
	Merge(existing, incoming []datatypes.Item) []datatypes.Item
}

// Config tunes the session manager.
type Config struct {
	// TTL is the session lifetime in the cache.
	TTL time.Duration

	// DefaultPageSize is used when a request does not say how many
	// items it wants.
	DefaultPageSize int
}

// DefaultConfig returns the production session settings.
func DefaultConfig() Config {
	return Config{TTL: 30 * time.Minute, DefaultPageSize: 10}
}

// Page is one served slice of a session.
type Page struct {
	Items        []datatypes.Item `json:"items"`
	NextCursor   string           `json:"nextCursor,omitempty"`
	HasMore      bool             `json:"hasMore"`
	ConnectionID string           `json:"connectionId"`
}

// Manager coordinates session lookup, pipeline execution and per-user
// pagination bookkeeping.
type Manager struct {
	store      cache.Store
	selector   PrimarySelector
	executor   QueryExecutor
	aggregator Deduplicator
	cfg        Config
	logger     *slog.Logger
}

// NewManager builds a session manager. Zero config fields fall back to
// the defaults; a nil logger falls back to slog.Default().
func NewManager(store cache.Store, selector PrimarySelector, executor QueryExecutor, aggregator Deduplicator, cfg Config, logger *slog.Logger) *Manager {
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaults.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		selector:   selector,
		executor:   executor,
		aggregator: aggregator,
		cfg:        cfg,
		logger:     logger,
	}
}

func sessionKey(contextHash string) string {
	return "session:" + contextHash
}

// Load returns the cached session for a context hash, or nil when none
// exists.
func (m *Manager) Load(ctx context.Context, contextHash string) (*datatypes.Session, error) {
	raw, found, err := m.store.Get(ctx, sessionKey(contextHash))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, nil
	}
	var session datatypes.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		m.logger.Warn("discarding undecodable session", "contextHash", contextHash)
		return nil, nil
	}
	return &session, nil
}

// Save persists a session under its context hash, refreshing the TTL.
func (m *Manager) Save(ctx context.Context, contextHash string, session *datatypes.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, sessionKey(contextHash), string(raw), m.cfg.TTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// FetchPage serves one page of results for a decorated context. The
// first request of a session runs the full pipeline; later requests
// serve from the cached results, re-querying only the upstreams that
// still have pages when the cached slice runs short. A replayed cursor
// returns the same page again without advancing anything.
func (m *Manager) FetchPage(ctx context.Context, userID, contextHash string, decorated *datatypes.DecoratedCDT, connectionID string, args datatypes.PageArgs) (*Page, error) {
	first := args.First
	if first <= 0 {
		first = m.cfg.DefaultPageSize
	}
	startIndex := 0
	if args.After != "" {
		n, err := strconv.Atoi(args.After)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCursor, args.After)
		}
		startIndex = n
	}

	session, err := m.Load(ctx, contextHash)
	if err != nil {
		return nil, err
	}

	recordLookup(lookupOutcome(session))

	switch {
	case session == nil || len(session.Services) == 0 && len(session.Results) == 0:
		// Fresh context (or a decoration stub): run the pipeline.
		populated, err := m.populate(ctx, decorated, connectionID, session)
		if err != nil {
			return nil, err
		}
		session = populated

	case startIndex+first > len(session.Results):
		// The cached slice runs short: pull the next page from every
		// upstream that still has one and fold it in.
		if err := m.extend(ctx, session); err != nil {
			return nil, err
		}
	}

	page := m.slice(session, userID, startIndex, first, args.After)
	if err := m.Save(ctx, contextHash, session); err != nil {
		return nil, err
	}
	return page, nil
}

// populate runs selection, dispatch and deduplication for a context
// that has no populated session yet.
func (m *Manager) populate(ctx context.Context, decorated *datatypes.DecoratedCDT, connectionID string, stub *datatypes.Session) (*datatypes.Session, error) {
	ranked, err := m.selector.SelectServices(ctx, decorated)
	if err != nil {
		return nil, err
	}
	result, err := m.executor.Execute(ctx, ranked, decorated, nil)
	if err != nil {
		return nil, err
	}

	deduped := m.aggregator.Deduplicate(result.Items)
	recordItems("parsed", len(result.Items))
	recordItems("aggregated", len(deduped))

	session := &datatypes.Session{
		DecoratedCDT: *decorated,
		ConnectionID: connectionID,
		Services:     result.Statuses,
		Results:      deduped,
	}
	if stub != nil {
		session.ConnectionID = stub.ConnectionID
		session.Users = stub.Users
	}
	if session.ConnectionID == "" {
		session.ConnectionID = connectionID
	}
	return session, nil
}

// extend re-queries the services whose pagination is still open and
// merges the fresh items onto the cached results. Exhausted upstreams
// leave the session as is.
func (m *Manager) extend(ctx context.Context, session *datatypes.Session) error {
	var ranked []datatypes.RankedOperation
	pages := make(map[string]string)
	for _, status := range session.Services {
		if !status.HasNextPage {
			continue
		}
		ranked = append(ranked, datatypes.RankedOperation{OperationID: status.OperationID, Rank: status.Rank})
		pages[status.OperationID] = status.NextPage
	}
	if len(ranked) == 0 {
		return nil
	}

	result, err := m.executor.Execute(ctx, ranked, &session.DecoratedCDT, pages)
	if err != nil {
		return err
	}

	before := len(session.Results)
	session.Results = m.aggregator.Merge(session.Results, result.Items)
	recordItems("parsed", len(result.Items))
	recordItems("aggregated", len(session.Results)-before)

	byID := make(map[string]datatypes.ServiceStatus, len(result.Statuses))
	for _, status := range result.Statuses {
		byID[status.OperationID] = status
	}
	for i, status := range session.Services {
		if fresh, ok := byID[status.OperationID]; ok {
			session.Services[i] = fresh
		}
	}
	return nil
}

// lookupOutcome classifies a loaded session for the cache counters.
func lookupOutcome(session *datatypes.Session) string {
	switch {
	case session == nil:
		return "miss"
	case len(session.Services) == 0 && len(session.Results) == 0:
		return "stub"
	default:
		return "hit"
	}
}

func recordLookup(outcome string) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordSessionLookup(outcome)
	}
}

func recordItems(stage string, count int) {
	if count > 0 && observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordItems(stage, count)
	}
}

// slice cuts the requested window out of the session results and
// advances the user's pagination bookkeeping.
func (m *Manager) slice(session *datatypes.Session, userID string, startIndex, first int, cursor string) *Page {
	end := startIndex + first
	if end > len(session.Results) {
		end = len(session.Results)
	}
	var items []datatypes.Item
	if startIndex < len(session.Results) {
		items = session.Results[startIndex:end]
	}

	servicesOpen := false
	for _, status := range session.Services {
		if status.HasNextPage {
			servicesOpen = true
			break
		}
	}

	seen := startIndex + len(items)
	user := userState(session, userID)
	if seen > user.ItemsSeen {
		user.ItemsSeen = seen
	}
	user.LastCursor = cursor

	return &Page{
		Items:        items,
		NextCursor:   strconv.Itoa(seen),
		HasMore:      seen < len(session.Results) || servicesOpen,
		ConnectionID: session.ConnectionID,
	}
}

// userState finds or creates the pagination record of one user.
func userState(session *datatypes.Session, userID string) *datatypes.UserPagination {
	for i := range session.Users {
		if session.Users[i].UserID == userID {
			return &session.Users[i]
		}
	}
	session.Users = append(session.Users, datatypes.UserPagination{UserID: userID})
	return &session.Users[len(session.Users)-1]
}
