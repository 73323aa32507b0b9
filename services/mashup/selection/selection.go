// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selection picks the services answering a decorated context:
// the ranked primary operations that produce result items and the
// support links offered alongside them.
package selection

import (
	"fmt"
	"strconv"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

// PositionNode is the composite dimension handled by the geographic
// specific search. Other composite dimensions are ignored with a log
// line; extending the dispatch tables is how new ones get supported.
const PositionNode = "Position"

// position extracts the coordinates of a specific node.
func position(node datatypes.ContextNode) (latitude, longitude float64, err error) {
	latitude, err = strconv.ParseFloat(node.Field("Latitude"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", node.Name, err)
	}
	longitude, err = strconv.ParseFloat(node.Field("Longitude"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", node.Name, err)
	}
	return latitude, longitude, nil
}

// scalarNodes merges the filter and ranking views for constraint
// matching, where the category split is irrelevant.
func scalarNodes(decorated *datatypes.DecoratedCDT) []datatypes.ContextNode {
	nodes := make([]datatypes.ContextNode, 0, len(decorated.FilterNodes)+len(decorated.RankingNodes))
	nodes = append(nodes, decorated.FilterNodes...)
	nodes = append(nodes, decorated.RankingNodes...)
	return nodes
}
