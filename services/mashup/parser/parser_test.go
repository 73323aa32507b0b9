// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

func eventDescriptor() *datatypes.ServiceDescriptor {
	return &datatypes.ServiceDescriptor{
		Name:    "eventSearch",
		Type:    datatypes.OperationPrimary,
		Service: datatypes.ServiceInfo{Name: "eventful", Protocol: datatypes.ProtocolQuery},
		Rank:    2.5,
		ResponseMapping: &datatypes.ResponseMapping{
			List: "events.event",
			Items: []datatypes.ItemMapping{
				{TermName: "title", Path: "title"},
				{TermName: "address", Path: "venue.address"},
				{TermName: "latitude", Path: "venue.latitude"},
			},
		},
	}
}

func eventPayload() map[string]any {
	return map[string]any{
		"events": map[string]any{
			"event": []any{
				map[string]any{
					"title": "Jazz Night",
					"venue": map[string]any{
						"address":  "Via Roma 1",
						"latitude": 45.46,
					},
				},
				map[string]any{
					"title": "Open Mic",
					"venue": map[string]any{
						"address": "",
					},
				},
			},
		},
	}
}

func TestParseMapsDottedPaths(t *testing.T) {
	p := New(nil)

	items, err := p.Parse(eventDescriptor(), eventPayload())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Jazz Night", first.Attributes["title"])
	assert.Equal(t, "Via Roma 1", first.Attributes["address"])
	assert.Equal(t, 45.46, first.Attributes["latitude"])
	assert.Equal(t, []string{"eventful"}, first.Meta.Names)
	assert.Equal(t, 2.5, first.Meta.Rank)

	// Empty strings and unresolved paths are dropped, not stored.
	second := items[1]
	assert.Equal(t, "Open Mic", second.Attributes["title"])
	assert.NotContains(t, second.Attributes, "address")
	assert.NotContains(t, second.Attributes, "latitude")
}

func TestParseNullAttributeDropped(t *testing.T) {
	p := New(nil)
	payload := map[string]any{
		"events": map[string]any{
			"event": []any{
				map[string]any{"title": nil, "venue": map[string]any{"address": "x"}},
			},
		},
	}

	items, err := p.Parse(eventDescriptor(), payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].Attributes, "title")
}

func TestParseEmptyItemsDropped(t *testing.T) {
	p := New(nil)
	payload := map[string]any{
		"events": map[string]any{
			"event": []any{
				map[string]any{"unrelated": "x"},
				"not an object",
			},
		},
	}

	items, err := p.Parse(eventDescriptor(), payload)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseObjectListContributesValues(t *testing.T) {
	p := New(nil)
	d := eventDescriptor()
	d.ResponseMapping.List = "results"
	payload := map[string]any{
		"results": map[string]any{
			"a1": map[string]any{"title": "First"},
			"b2": map[string]any{"title": "Second"},
		},
	}

	items, err := p.Parse(d, payload)
	require.NoError(t, err)
	require.Len(t, items, 2)
	titles := []string{items[0].Attributes["title"].(string), items[1].Attributes["title"].(string)}
	assert.ElementsMatch(t, []string{"First", "Second"}, titles)
}

func TestParseScalarListYieldsNothing(t *testing.T) {
	p := New(nil)
	d := eventDescriptor()
	d.ResponseMapping.List = "count"

	items, err := p.Parse(d, map[string]any{"count": 42})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseRootList(t *testing.T) {
	p := New(nil)
	d := eventDescriptor()
	d.ResponseMapping.List = ""
	payload := []any{
		map[string]any{"title": "Root Level"},
	}

	items, err := p.Parse(d, payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Root Level", items[0].Attributes["title"])
}

func TestParsePostFunctions(t *testing.T) {
	p := New(nil)
	d := eventDescriptor()
	d.ResponseMapping.Functions = []datatypes.PostFunction{
		{OnAttribute: "title", Run: "uppercase"},
		{OnAttribute: "address", Run: "no-such-transform"},
		{OnAttribute: "missing", Run: "trim"},
	}

	items, err := p.Parse(d, eventPayload())
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "JAZZ NIGHT", items[0].Attributes["title"])
	assert.Equal(t, "Via Roma 1", items[0].Attributes["address"])
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Jazz Night At The Dome", titleCase("jazz night at the dome"))
	assert.Equal(t, "Via Roma 1", titleCase("via roma 1"))
	assert.Equal(t, "", titleCase(""))
}

func TestParseErrors(t *testing.T) {
	p := New(nil)

	_, err := p.Parse(nil, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingDescriptor)

	_, err = p.Parse(eventDescriptor(), nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	d := eventDescriptor()
	d.ResponseMapping = nil
	_, err = p.Parse(d, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingMapping)
}
