// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package queryhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMashup/services/mashup/bridges"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/parser"
)

type fakeDescriptorStore struct {
	descriptors map[string]datatypes.ServiceDescriptor
	err         error
}

func (f *fakeDescriptorStore) GetOperationsByIDs(_ context.Context, ids []string) ([]datatypes.ServiceDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []datatypes.ServiceDescriptor
	for _, id := range ids {
		if d, ok := f.descriptors[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// stubBridge returns canned payloads per operation id.
type stubBridge struct {
	payloads map[string]any
	pages    map[string]string
	failFor  map[string]bool
	gotPages map[string]string
}

func (s *stubBridge) ExecuteQuery(_ context.Context, descriptor *datatypes.ServiceDescriptor, _ *datatypes.DecoratedCDT, page string) (*bridges.Response, error) {
	if s.gotPages != nil {
		s.gotPages[descriptor.ID] = page
	}
	if s.failFor[descriptor.ID] {
		return nil, errors.New("upstream down")
	}
	resp := &bridges.Response{Payload: s.payloads[descriptor.ID]}
	if next, ok := s.pages[descriptor.ID]; ok {
		resp.HasNextPage = true
		resp.NextPage = next
	}
	return resp, nil
}

func descriptorFixture(id, service string) datatypes.ServiceDescriptor {
	return datatypes.ServiceDescriptor{
		ID:      id,
		Name:    id + "Op",
		Type:    datatypes.OperationPrimary,
		Service: datatypes.ServiceInfo{Name: service, Protocol: datatypes.ProtocolQuery},
		ResponseMapping: &datatypes.ResponseMapping{
			List:  "results",
			Items: []datatypes.ItemMapping{{TermName: "title", Path: "name"}},
		},
	}
}

func payloadWith(titles ...string) map[string]any {
	results := make([]any, 0, len(titles))
	for _, t := range titles {
		results = append(results, map[string]any{"name": t})
	}
	return map[string]any{"results": results}
}

func newHandler(t *testing.T, store DescriptorStore, bridge bridges.Bridge) *Handler {
	t.Helper()
	registry := bridges.NewRegistry()
	require.NoError(t, registry.Register(bridges.RestBridgeName, bridge))
	return New(store, registry, parser.New(nil), nil)
}

func TestExecuteConcatenatesInSelectionOrder(t *testing.T) {
	store := &fakeDescriptorStore{descriptors: map[string]datatypes.ServiceDescriptor{
		"op1": descriptorFixture("op1", "eventful"),
		"op2": descriptorFixture("op2", "places"),
	}}
	bridge := &stubBridge{payloads: map[string]any{
		"op1": payloadWith("A", "B"),
		"op2": payloadWith("C"),
	}}
	h := newHandler(t, store, bridge)

	result, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "op1", Rank: 5},
		{OperationID: "op2", Rank: 2},
	}, &datatypes.DecoratedCDT{}, nil)
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "A", result.Items[0].Attributes["title"])
	assert.Equal(t, "B", result.Items[1].Attributes["title"])
	assert.Equal(t, "C", result.Items[2].Attributes["title"])

	// Rank flows from the selection into item meta.
	assert.Equal(t, 5.0, result.Items[0].Meta.Rank)
	assert.Equal(t, []string{"eventful"}, result.Items[0].Meta.Names)
	assert.Equal(t, 2.0, result.Items[2].Meta.Rank)

	require.Len(t, result.Statuses, 2)
	assert.Equal(t, "op1", result.Statuses[0].OperationID)
	assert.Equal(t, "op2", result.Statuses[1].OperationID)
}

func TestExecuteFailingOperationDegrades(t *testing.T) {
	store := &fakeDescriptorStore{descriptors: map[string]datatypes.ServiceDescriptor{
		"op1": descriptorFixture("op1", "eventful"),
		"op2": descriptorFixture("op2", "places"),
	}}
	bridge := &stubBridge{
		payloads: map[string]any{"op2": payloadWith("C")},
		failFor:  map[string]bool{"op1": true},
	}
	h := newHandler(t, store, bridge)

	result, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "op1", Rank: 5},
		{OperationID: "op2", Rank: 2},
	}, &datatypes.DecoratedCDT{}, nil)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "C", result.Items[0].Attributes["title"])

	// The failed operation still reports a status, with pagination
	// exhausted.
	require.Len(t, result.Statuses, 2)
	assert.False(t, result.Statuses[0].HasNextPage)
}

func TestExecutePropagatesPaginationStatus(t *testing.T) {
	store := &fakeDescriptorStore{descriptors: map[string]datatypes.ServiceDescriptor{
		"op1": descriptorFixture("op1", "eventful"),
	}}
	bridge := &stubBridge{
		payloads: map[string]any{"op1": payloadWith("A")},
		pages:    map[string]string{"op1": "2"},
		gotPages: map[string]string{},
	}
	h := newHandler(t, store, bridge)

	result, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "op1", Rank: 1},
	}, &datatypes.DecoratedCDT{}, map[string]string{"op1": "1"})
	require.NoError(t, err)

	assert.Equal(t, "1", bridge.gotPages["op1"])
	require.Len(t, result.Statuses, 1)
	assert.True(t, result.Statuses[0].HasNextPage)
	assert.Equal(t, "2", result.Statuses[0].NextPage)
}

func TestExecuteMissingDescriptorSkipped(t *testing.T) {
	store := &fakeDescriptorStore{descriptors: map[string]datatypes.ServiceDescriptor{
		"op1": descriptorFixture("op1", "eventful"),
	}}
	bridge := &stubBridge{payloads: map[string]any{"op1": payloadWith("A")}}
	h := newHandler(t, store, bridge)

	result, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "ghost", Rank: 9},
		{OperationID: "op1", Rank: 1},
	}, &datatypes.DecoratedCDT{}, nil)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	require.Len(t, result.Statuses, 1)
	assert.Equal(t, "op1", result.Statuses[0].OperationID)
}

func TestExecuteInvalidDescriptorSkipped(t *testing.T) {
	broken := descriptorFixture("op2", "places")
	broken.Service.Protocol = "gopher"
	store := &fakeDescriptorStore{descriptors: map[string]datatypes.ServiceDescriptor{
		"op1": descriptorFixture("op1", "eventful"),
		"op2": broken,
	}}
	bridge := &stubBridge{payloads: map[string]any{
		"op1": payloadWith("A"),
		"op2": payloadWith("C"),
	}}
	h := newHandler(t, store, bridge)

	result, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "op1", Rank: 5},
		{OperationID: "op2", Rank: 2},
	}, &datatypes.DecoratedCDT{}, nil)
	require.NoError(t, err)

	// The descriptor with the unknown protocol never reaches a bridge.
	require.Len(t, result.Items, 1)
	assert.Equal(t, "A", result.Items[0].Attributes["title"])
	require.Len(t, result.Statuses, 1)
	assert.Equal(t, "op1", result.Statuses[0].OperationID)
}

func TestExecuteStoreError(t *testing.T) {
	store := &fakeDescriptorStore{err: errors.New("store down")}
	bridge := &stubBridge{}
	h := newHandler(t, store, bridge)

	_, err := h.Execute(context.Background(), []datatypes.RankedOperation{
		{OperationID: "op1", Rank: 1},
	}, &datatypes.DecoratedCDT{}, nil)
	assert.Error(t, err)
}

func TestExecuteEmptySelection(t *testing.T) {
	h := newHandler(t, &fakeDescriptorStore{}, &stubBridge{})

	result, err := h.Execute(context.Background(), nil, &datatypes.DecoratedCDT{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Empty(t, result.Statuses)
}
