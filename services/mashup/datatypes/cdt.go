// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the mashup service:
// the context decision tree (CDT), raw and decorated contexts, service
// descriptors, service associations, result items and cached sessions.
package datatypes

import "strings"

// Node categories inside a CDT. A node may belong to several categories,
// pipe-joined in the stored document (e.g. "ranking|parameter").
const (
	CategoryFilter    = "filter"
	CategoryRanking   = "ranking"
	CategoryParameter = "parameter"
)

// Field is a leaf of a composite parameter (e.g. Latitude inside Position).
type Field struct {
	Name  string `bson:"name" json:"name"`
	Type  string `bson:"type,omitempty" json:"type,omitempty"`
	Value string `bson:"value,omitempty" json:"value,omitempty"`
}

// Parameter is a sub-dimension nested under a CDT node. A parameter that
// declares Fields is a composite ("specific") dimension and is never
// flattened into a scalar node.
type Parameter struct {
	Name   string  `bson:"name" json:"name"`
	Type   string  `bson:"type,omitempty" json:"type,omitempty"`
	Fields []Field `bson:"fields,omitempty" json:"fields,omitempty"`
}

// Node is one dimension of the decision tree. Parents lists the sibling
// values whose selection implies this node's relevance, which makes the
// schema a DAG of dimension dependencies rather than a strict tree.
type Node struct {
	Name       string      `bson:"name" json:"name"`
	Category   string      `bson:"for" json:"for"`
	Values     []string    `bson:"values,omitempty" json:"values,omitempty"`
	Parameters []Parameter `bson:"parameters,omitempty" json:"parameters,omitempty"`
	Parents    []string    `bson:"parents,omitempty" json:"parents,omitempty"`
}

// HasCategory reports whether the node carries the given category tag.
func (n Node) HasCategory(category string) bool {
	for _, c := range strings.Split(n.Category, "|") {
		if c == category {
			return true
		}
	}
	return false
}

// DefaultValue is a fallback value for a dimension, stored with the CDT.
type DefaultValue struct {
	Dimension string `bson:"dimension" json:"dimension"`
	Value     string `bson:"value" json:"value"`
}

// CDT is a stored context decision tree. UserIDs lists the users the
// schema belongs to; the global CDT has none.
type CDT struct {
	ID            string         `bson:"_id,omitempty" json:"id"`
	UserIDs       []string       `bson:"_userId,omitempty" json:"userIds,omitempty"`
	Nodes         []Node         `bson:"context" json:"context"`
	DefaultValues []DefaultValue `bson:"defaultValues,omitempty" json:"defaultValues,omitempty"`
}
