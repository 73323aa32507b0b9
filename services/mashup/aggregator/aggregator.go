// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregator deduplicates items coming from different upstream
// services. Candidate duplicates are clustered by the phonetic code of
// their title, then confirmed by string similarity over the attributes
// both items carry.
package aggregator

import (
	"log/slog"

	"github.com/adrg/strutil/metrics"
	"github.com/antzucaro/matchr"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

// DefaultThreshold is the minimum mean similarity for two items to be
// considered the same entity.
const DefaultThreshold = 0.85

// Aggregator merges duplicate items. Safe for concurrent use.
type Aggregator struct {
	threshold float64
	dice      *metrics.SorensenDice
	logger    *slog.Logger
}

// New returns an Aggregator. A non-positive threshold falls back to
// DefaultThreshold; a nil logger falls back to slog.Default().
func New(threshold float64, logger *slog.Logger) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		threshold: threshold,
		dice:      metrics.NewSorensenDice(),
		logger:    logger,
	}
}

// Deduplicate merges duplicates in place of the higher-ranked occurrence
// and preserves first-encountered order otherwise. Items without a title
// never merge. The operation is idempotent: running it on its own output
// returns the same items.
func (a *Aggregator) Deduplicate(items []datatypes.Item) []datatypes.Item {
	survivors := make([]datatypes.Item, 0, len(items))
	clusters := make(map[string][]int)

	for _, item := range items {
		title := item.Title()
		if title == "" {
			survivors = append(survivors, item.Clone())
			continue
		}

		key := matchr.Soundex(title)
		merged := false
		for _, idx := range clusters[key] {
			if a.similarity(survivors[idx], item) < a.threshold {
				continue
			}
			survivors[idx] = mergeItems(survivors[idx], item)
			merged = true
			break
		}
		if !merged {
			clusters[key] = append(clusters[key], len(survivors))
			survivors = append(survivors, item.Clone())
		}
	}
	return survivors
}

// Merge deduplicates the concatenation of two already-parsed result
// sets. Used when a later page is folded onto cached session results.
func (a *Aggregator) Merge(existing, incoming []datatypes.Item) []datatypes.Item {
	combined := make([]datatypes.Item, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, incoming...)
	return a.Deduplicate(combined)
}

// similarity is the mean Sorensen-Dice coefficient over the string
// attributes both items carry.
func (a *Aggregator) similarity(x, y datatypes.Item) float64 {
	var sum float64
	var count int
	for name, xv := range x.Attributes {
		xs, ok := xv.(string)
		if !ok {
			continue
		}
		ys, ok := y.Attributes[name].(string)
		if !ok {
			continue
		}
		sum += a.dice.Compare(xs, ys)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// mergeItems folds two duplicates into one. The higher-ranked item is
// the target and keeps its attribute values; on a tie the survivor (the
// first encountered) wins. Attributes only the source carries are
// adopted, and the service name lists are unioned.
func mergeItems(survivor, incoming datatypes.Item) datatypes.Item {
	target, source := survivor, incoming
	if incoming.Meta.Rank > survivor.Meta.Rank {
		target, source = incoming, survivor
	}

	merged := target.Clone()
	for name, value := range source.Attributes {
		if _, exists := merged.Attributes[name]; !exists {
			merged.Attributes[name] = value
		}
	}
	for _, name := range source.Meta.Names {
		if !containsString(merged.Meta.Names, name) {
			merged.Meta.Names = append(merged.Meta.Names, name)
		}
	}
	return merged
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
