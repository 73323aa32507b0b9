// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/AleutianAI/AleutianMashup/services/mashup/composer"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/provider"
)

// SupportStore is the association and descriptor access the support
// selector needs. *provider.MongoStore satisfies it.
type SupportStore interface {
	FilterSupportAssociations(ctx context.Context, cdtID, category string, nodes []datatypes.ContextNode) ([]datatypes.SupportAssociation, error)
	SearchSupportByLocation(ctx context.Context, cdtID, category string, latitude, longitude float64) ([]datatypes.SupportAssociation, error)
	GetConstraintCounts(ctx context.Context, cdtID, category string, operationIDs []string) ([]datatypes.SupportConstraint, error)
	GetOperationByID(ctx context.Context, id string) (*datatypes.ServiceDescriptor, error)
}

// Support selects the auxiliary services of the requested categories
// and composes their single-shot URLs.
type Support struct {
	store  SupportStore
	logger *slog.Logger
}

// NewSupport builds a support selector. A nil logger falls back to
// slog.Default().
func NewSupport(store SupportStore, logger *slog.Logger) *Support {
	if logger == nil {
		logger = slog.Default()
	}
	return &Support{store: store, logger: logger}
}

// SelectServices resolves every requested support category. A category
// without a qualifying operation contributes nothing; it is not an
// error.
func (s *Support) SelectServices(ctx context.Context, decorated *datatypes.DecoratedCDT) ([]datatypes.SupportLink, error) {
	var links []datatypes.SupportLink
	for _, category := range decorated.SupportServiceCategories {
		categoryLinks, err := s.selectCategory(ctx, decorated, category)
		if err != nil {
			return nil, err
		}
		links = append(links, categoryLinks...)
	}
	return links, nil
}

func (s *Support) selectCategory(ctx context.Context, decorated *datatypes.DecoratedCDT, category string) ([]datatypes.SupportLink, error) {
	assocs, err := s.store.FilterSupportAssociations(ctx, decorated.ID, category, scalarNodes(decorated))
	if err != nil {
		return nil, err
	}
	geoAssocs, err := s.searchSpecific(ctx, decorated, category)
	if err != nil {
		return nil, err
	}

	// Count the distinct constraint dimensions each operation
	// satisfies; geographic matches count under the position dimension.
	satisfied := make(map[string]map[string]bool)
	var order []string
	note := func(operationID, dimension string) {
		if satisfied[operationID] == nil {
			satisfied[operationID] = make(map[string]bool)
			order = append(order, operationID)
		}
		satisfied[operationID][dimension] = true
	}
	for _, a := range assocs {
		note(a.OperationID, a.Dimension)
	}
	for _, a := range geoAssocs {
		note(a.OperationID, PositionNode)
	}
	if len(order) == 0 {
		return nil, nil
	}

	constraints, err := s.store.GetConstraintCounts(ctx, decorated.ID, category, order)
	if err != nil {
		return nil, err
	}
	required := make(map[string]int, len(constraints))
	for _, c := range constraints {
		required[c.OperationID] = c.ConstraintCount
	}

	chosen := chooseOperations(order, satisfied, required)
	if len(chosen) == 0 {
		return nil, nil
	}
	return s.composeLinks(ctx, decorated, category, chosen)
}

func (s *Support) searchSpecific(ctx context.Context, decorated *datatypes.DecoratedCDT, category string) ([]datatypes.SupportAssociation, error) {
	var all []datatypes.SupportAssociation
	for _, node := range decorated.SpecificNodes {
		switch node.Name {
		case PositionNode:
			latitude, longitude, err := position(node)
			if err != nil {
				s.logger.Warn("skipping specific node", "node", node.Name, "error", err)
				continue
			}
			assocs, err := s.store.SearchSupportByLocation(ctx, decorated.ID, category, latitude, longitude)
			if err != nil {
				return nil, err
			}
			all = append(all, assocs...)
		default:
			s.logger.Warn("no specific search for node", "node", node.Name)
		}
	}
	return all, nil
}

// chooseOperations applies the constraint policy: operations satisfying
// exactly their required count are strict matches, and among them only
// the highest counts survive. Without strict matches the policy relaxes
// to operations exceeding their requirement, best counts first.
func chooseOperations(order []string, satisfied map[string]map[string]bool, required map[string]int) []string {
	var strict, relaxed []string
	maxStrict := 0
	for _, id := range order {
		count := len(satisfied[id])
		need, known := required[id]
		if !known {
			continue
		}
		switch {
		case count == need:
			strict = append(strict, id)
			if count > maxStrict {
				maxStrict = count
			}
		case count > need:
			relaxed = append(relaxed, id)
		}
	}

	if len(strict) > 0 {
		var chosen []string
		for _, id := range strict {
			if len(satisfied[id]) == maxStrict {
				chosen = append(chosen, id)
			}
		}
		return chosen
	}

	sort.SliceStable(relaxed, func(i, j int) bool {
		return len(satisfied[relaxed[i]]) > len(satisfied[relaxed[j]])
	})
	return relaxed
}

// composeLinks resolves each chosen operation's descriptor and builds
// its single-shot URL. A missing descriptor or a composition failure
// skips the operation.
func (s *Support) composeLinks(ctx context.Context, decorated *datatypes.DecoratedCDT, category string, ids []string) ([]datatypes.SupportLink, error) {
	var links []datatypes.SupportLink
	for _, id := range ids {
		descriptor, err := s.store.GetOperationByID(ctx, id)
		if err != nil {
			if errors.Is(err, provider.ErrNotFound) {
				s.logger.Warn("support operation has no descriptor", "operation", id)
				continue
			}
			return nil, err
		}
		url, err := composer.ComposeAddress(descriptor, decorated, "")
		if err != nil {
			s.logger.Warn("support link composition failed",
				"operation", descriptor.Name, "error", err)
			continue
		}
		links = append(links, datatypes.SupportLink{
			Category:  category,
			Service:   descriptor.Service.Name,
			URL:       url,
			StoreLink: descriptor.StoreLink,
		})
	}
	return links, nil
}
