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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

// ErrNoFilterNodesSelected is returned when the decorated context has
// no filter dimensions: without them no operation can qualify.
var ErrNoFilterNodesSelected = errors.New("no filter nodes selected")

// PrimaryStore is the association access the primary selector needs.
// *provider.MongoStore satisfies it.
type PrimaryStore interface {
	FilterPrimaryAssociations(ctx context.Context, cdtID string, nodes []datatypes.ContextNode) ([]datatypes.PrimaryAssociation, error)
	SearchPrimaryByLocation(ctx context.Context, cdtID string, latitude, longitude float64) ([]datatypes.PrimaryAssociation, error)
}

// PrimaryConfig tunes the scoring of the primary selector.
type PrimaryConfig struct {
	// FilterWeight scores associations matched through filter nodes.
	FilterWeight float64

	// RankingWeight scores associations matched through ranking nodes
	// or specific searches.
	RankingWeight float64

	// TopN is how many operations the selection keeps.
	TopN int
}

// DefaultPrimaryConfig returns the production weights.
func DefaultPrimaryConfig() PrimaryConfig {
	return PrimaryConfig{FilterWeight: 1, RankingWeight: 4, TopN: 3}
}

// Primary selects and ranks the primary operations for a decorated
// context.
type Primary struct {
	store  PrimaryStore
	cfg    PrimaryConfig
	logger *slog.Logger
}

// NewPrimary builds a primary selector. Zero config fields fall back to
// the defaults; a nil logger falls back to slog.Default().
func NewPrimary(store PrimaryStore, cfg PrimaryConfig, logger *slog.Logger) *Primary {
	defaults := DefaultPrimaryConfig()
	if cfg.FilterWeight <= 0 {
		cfg.FilterWeight = defaults.FilterWeight
	}
	if cfg.RankingWeight <= 0 {
		cfg.RankingWeight = defaults.RankingWeight
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaults.TopN
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Primary{store: store, cfg: cfg, logger: logger}
}

// SelectServices runs the three association queries concurrently and
// folds them into the top-N ranked operations. Only operations matched
// by at least one filter node qualify; ranking and specific matches
// boost qualified operations but never introduce new ones.
func (p *Primary) SelectServices(ctx context.Context, decorated *datatypes.DecoratedCDT) ([]datatypes.RankedOperation, error) {
	if len(decorated.FilterNodes) == 0 {
		return nil, ErrNoFilterNodesSelected
	}

	var filterAssocs, rankingAssocs, specificAssocs []datatypes.PrimaryAssociation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		filterAssocs, err = p.store.FilterPrimaryAssociations(gctx, decorated.ID, decorated.FilterNodes)
		return err
	})
	g.Go(func() error {
		if len(decorated.RankingNodes) == 0 {
			return nil
		}
		var err error
		rankingAssocs, err = p.store.FilterPrimaryAssociations(gctx, decorated.ID, decorated.RankingNodes)
		return err
	})
	g.Go(func() error {
		var err error
		specificAssocs, err = p.searchSpecific(gctx, decorated)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return p.rank(filterAssocs, rankingAssocs, specificAssocs), nil
}

// searchSpecific dispatches each specific node to its search. Position
// results get a synthetic 1-based ranking in distance order, so nearer
// associations score like better-ranked ones.
func (p *Primary) searchSpecific(ctx context.Context, decorated *datatypes.DecoratedCDT) ([]datatypes.PrimaryAssociation, error) {
	var all []datatypes.PrimaryAssociation
	for _, node := range decorated.SpecificNodes {
		switch node.Name {
		case PositionNode:
			latitude, longitude, err := position(node)
			if err != nil {
				p.logger.Warn("skipping specific node", "node", node.Name, "error", err)
				continue
			}
			assocs, err := p.store.SearchPrimaryByLocation(ctx, decorated.ID, latitude, longitude)
			if err != nil {
				return nil, err
			}
			for i := range assocs {
				assocs[i].Ranking = i + 1
			}
			all = append(all, assocs...)
		default:
			p.logger.Warn("no specific search for node", "node", node.Name)
		}
	}
	return all, nil
}

// rank aggregates association scores and keeps the top-N operations.
// Ties keep first-encountered order.
func (p *Primary) rank(filter, ranking, specific []datatypes.PrimaryAssociation) []datatypes.RankedOperation {
	scores := make(map[string]float64)
	var order []string

	for _, a := range filter {
		if _, seen := scores[a.OperationID]; !seen {
			order = append(order, a.OperationID)
		}
		scores[a.OperationID] += contribution(p.cfg.FilterWeight, a.Ranking)
	}

	boosts := make([]datatypes.PrimaryAssociation, 0, len(ranking)+len(specific))
	boosts = append(boosts, ranking...)
	boosts = append(boosts, specific...)
	for _, a := range boosts {
		if _, qualified := scores[a.OperationID]; !qualified {
			continue
		}
		scores[a.OperationID] += contribution(p.cfg.RankingWeight, a.Ranking)
	}

	ranked := make([]datatypes.RankedOperation, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, datatypes.RankedOperation{OperationID: id, Rank: scores[id]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank > ranked[j].Rank
	})
	if len(ranked) > p.cfg.TopN {
		ranked = ranked[:p.cfg.TopN]
	}
	return ranked
}

// contribution is weight/ranking with a floor of 1 on the ranking, so a
// malformed zero or negative ranking never inflates a score.
func contribution(weight float64, ranking int) float64 {
	if ranking < 1 {
		ranking = 1
	}
	return weight / float64(ranking)
}
