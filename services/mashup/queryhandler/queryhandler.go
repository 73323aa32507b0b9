// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package queryhandler dispatches the selected primary operations to
// their bridges, parses the payloads and concatenates the results in
// selection order.
package queryhandler

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMashup/services/mashup/bridges"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/parser"
)

// DescriptorStore loads operation descriptors. *provider.MongoStore
// satisfies it.
type DescriptorStore interface {
	GetOperationsByIDs(ctx context.Context, ids []string) ([]datatypes.ServiceDescriptor, error)
}

// Handler fans queries out and folds results back in order.
type Handler struct {
	store    DescriptorStore
	registry *bridges.Registry
	parser   *parser.Parser
	logger   *slog.Logger
}

// New builds a Handler. A nil logger falls back to slog.Default().
func New(store DescriptorStore, registry *bridges.Registry, p *parser.Parser, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, registry: registry, parser: p, logger: logger}
}

// Result is the outcome of one dispatch round: the parsed items in
// selection order and the pagination status of every queried operation.
type Result struct {
	Items    []datatypes.Item
	Statuses []datatypes.ServiceStatus
}

// Execute queries the ranked operations concurrently. Pages carries the
// per-operation pagination value of this round; missing entries mean
// the first page. One failing operation never fails the round: its
// contribution is empty, its pagination marked exhausted, and the
// failure logged.
func (h *Handler) Execute(ctx context.Context, ranked []datatypes.RankedOperation, decorated *datatypes.DecoratedCDT, pages map[string]string) (*Result, error) {
	if len(ranked) == 0 {
		return &Result{}, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, op := range ranked {
		ids = append(ids, op.OperationID)
	}
	descriptors, err := h.store.GetOperationsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*datatypes.ServiceDescriptor, len(descriptors))
	for i := range descriptors {
		if err := descriptors[i].Validate(); err != nil {
			h.logger.Warn("stored descriptor is invalid, skipping",
				"operation", descriptors[i].ID, "error", err)
			continue
		}
		byID[descriptors[i].ID] = &descriptors[i]
	}

	type slot struct {
		items  []datatypes.Item
		status datatypes.ServiceStatus
	}
	slots := make([]*slot, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	for i, op := range ranked {
		descriptor, ok := byID[op.OperationID]
		if !ok {
			h.logger.Warn("ranked operation has no descriptor", "operation", op.OperationID)
			continue
		}
		descriptor.Rank = op.Rank

		i, op, descriptor := i, op, descriptor
		slots[i] = &slot{status: datatypes.ServiceStatus{OperationID: op.OperationID, Rank: op.Rank}}
		g.Go(func() error {
			items, status := h.executeOne(gctx, descriptor, decorated, pages[op.OperationID])
			slots[i].items = items
			slots[i].status.HasNextPage = status.HasNextPage
			slots[i].status.NextPage = status.NextPage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, s := range slots {
		if s == nil {
			continue
		}
		result.Items = append(result.Items, s.items...)
		result.Statuses = append(result.Statuses, s.status)
	}
	return result, nil
}

// executeOne runs a single operation end to end. Failures degrade to an
// empty contribution.
func (h *Handler) executeOne(ctx context.Context, descriptor *datatypes.ServiceDescriptor, decorated *datatypes.DecoratedCDT, page string) ([]datatypes.Item, bridges.Response) {
	bridge, err := h.registry.Resolve(descriptor)
	if err != nil {
		h.logger.Error("no bridge for operation",
			"operation", descriptor.Name, "error", err)
		return nil, bridges.Response{}
	}

	response, err := bridge.ExecuteQuery(ctx, descriptor, decorated, page)
	if err != nil {
		h.logger.Error("operation query failed",
			"operation", descriptor.Name, "service", descriptor.Service.Name, "error", err)
		return nil, bridges.Response{}
	}

	items, err := h.parser.Parse(descriptor, response.Payload)
	if err != nil {
		h.logger.Error("operation response unparsable",
			"operation", descriptor.Name, "service", descriptor.Service.Name, "error", err)
		return nil, bridges.Response{}
	}
	return items, *response
}
