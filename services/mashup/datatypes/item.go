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

// ItemMeta records which services produced an item and the rank of the
// operation that contributed it. Names grows when duplicates from
// different services are merged into one item.
type ItemMeta struct {
	Names []string `json:"name"`
	Rank  float64  `json:"rank"`
}

// Item is one normalized result. Attributes holds the values copied from
// the upstream payload under their semantic term names; the shape is
// dynamic because every upstream maps a different field set.
type Item struct {
	Attributes map[string]any `json:"attributes"`
	Meta       ItemMeta       `json:"meta"`
}

// Title returns the item's title attribute when it is a string.
func (i Item) Title() string {
	if s, ok := i.Attributes["title"].(string); ok {
		return s
	}
	return ""
}

// StringAttribute returns the named attribute when it is a string.
func (i Item) StringAttribute(name string) (string, bool) {
	s, ok := i.Attributes[name].(string)
	return s, ok
}

// Clone returns a deep copy of the item's attribute map and meta.
func (i Item) Clone() Item {
	attrs := make(map[string]any, len(i.Attributes))
	for k, v := range i.Attributes {
		attrs[k] = v
	}
	names := make([]string, len(i.Meta.Names))
	copy(names, i.Meta.Names)
	return Item{
		Attributes: attrs,
		Meta:       ItemMeta{Names: names, Rank: i.Meta.Rank},
	}
}
