// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ContextParameter is a nested parameter value submitted inside a raw
// context item. Composite values carry Fields instead of a scalar Value.
type ContextParameter struct {
	Name   string  `json:"name" binding:"required"`
	Value  string  `json:"value,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// ContextItem is one dimension selection in a raw user context. A
// dimension may appear without a Value when it only carries parameters.
type ContextItem struct {
	Dimension  string             `json:"dimension" binding:"required"`
	Value      string             `json:"value,omitempty"`
	Parameters []ContextParameter `json:"parameters,omitempty"`
}

// RawContext is the context submitted by a caller, before decoration.
type RawContext struct {
	CdtID   string        `json:"idCdt" binding:"required"`
	Items   []ContextItem `json:"context" binding:"required"`
	Support []string      `json:"support,omitempty"`
}

// ContextNode is a flattened node of a decorated context. Scalar nodes
// carry Value; specific (composite) nodes carry Fields.
type ContextNode struct {
	Name   string  `json:"name"`
	Value  string  `json:"value,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// IsSpecific reports whether the node is a composite value.
func (n ContextNode) IsSpecific() bool {
	return len(n.Fields) > 0
}

// Field returns the value of the named field, or "" when absent.
func (n ContextNode) Field(name string) string {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// DecoratedCDT is the raw context resolved against the CDT schema into
// categorized node lists. It is immutable once produced and cached under
// the content hash of the raw context it was derived from.
type DecoratedCDT struct {
	ID                       string        `json:"id"`
	FilterNodes              []ContextNode `json:"filterNodes,omitempty"`
	RankingNodes             []ContextNode `json:"rankingNodes,omitempty"`
	SpecificNodes            []ContextNode `json:"specificNodes,omitempty"`
	ParameterNodes           []ContextNode `json:"parameterNodes,omitempty"`
	SupportServiceCategories []string      `json:"supportServiceCategories,omitempty"`
}
