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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/provider"
)

type fakeSupportStore struct {
	assocs      map[string][]datatypes.SupportAssociation
	geoAssocs   map[string][]datatypes.SupportAssociation
	constraints map[string][]datatypes.SupportConstraint
	descriptors map[string]datatypes.ServiceDescriptor
}

func (f *fakeSupportStore) FilterSupportAssociations(_ context.Context, _, category string, _ []datatypes.ContextNode) ([]datatypes.SupportAssociation, error) {
	return f.assocs[category], nil
}

func (f *fakeSupportStore) SearchSupportByLocation(_ context.Context, _, category string, _, _ float64) ([]datatypes.SupportAssociation, error) {
	return f.geoAssocs[category], nil
}

func (f *fakeSupportStore) GetConstraintCounts(_ context.Context, _, category string, _ []string) ([]datatypes.SupportConstraint, error) {
	return f.constraints[category], nil
}

func (f *fakeSupportStore) GetOperationByID(_ context.Context, id string) (*datatypes.ServiceDescriptor, error) {
	d, ok := f.descriptors[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return &d, nil
}

func supportAssoc(op, dimension string) datatypes.SupportAssociation {
	return datatypes.SupportAssociation{
		OperationID: op,
		CdtID:       "cdt1",
		Category:    "Transport",
		Dimension:   dimension,
	}
}

func constraint(op string, count int) datatypes.SupportConstraint {
	return datatypes.SupportConstraint{
		OperationID:     op,
		CdtID:           "cdt1",
		Category:        "Transport",
		ConstraintCount: count,
	}
}

func supportDescriptor(id, service string) datatypes.ServiceDescriptor {
	return datatypes.ServiceDescriptor{
		ID:      id,
		Name:    id + "Op",
		Type:    datatypes.OperationSupport,
		Service: datatypes.ServiceInfo{Name: service, Protocol: datatypes.ProtocolQuery, BasePath: "http://" + service},
		Path:    "/go",
		Parameters: []datatypes.OperationParameter{
			{Name: "t", MappingCDT: []string{"Transport"}},
		},
		StoreLink: "http://store/" + service,
	}
}

func supportDecorated(categories ...string) *datatypes.DecoratedCDT {
	return &datatypes.DecoratedCDT{
		ID:                       "cdt1",
		FilterNodes:              []datatypes.ContextNode{{Name: "InterestTopic", Value: "Restaurant"}},
		RankingNodes:             []datatypes.ContextNode{{Name: "Transport", Value: "PublicTransport"}},
		ParameterNodes:           []datatypes.ContextNode{{Name: "Transport", Value: "PublicTransport"}},
		SupportServiceCategories: categories,
	}
}

func TestSupportStrictMatchWins(t *testing.T) {
	store := &fakeSupportStore{
		assocs: map[string][]datatypes.SupportAssociation{
			"Transport": {
				supportAssoc("exact", "InterestTopic"),
				supportAssoc("exact", "Transport"),
				supportAssoc("partial", "InterestTopic"),
			},
		},
		constraints: map[string][]datatypes.SupportConstraint{
			"Transport": {constraint("exact", 2), constraint("partial", 2)},
		},
		descriptors: map[string]datatypes.ServiceDescriptor{
			"exact": supportDescriptor("exact", "atm"),
		},
	}
	s := NewSupport(store, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport"))
	require.NoError(t, err)

	require.Len(t, links, 1)
	assert.Equal(t, "Transport", links[0].Category)
	assert.Equal(t, "atm", links[0].Service)
	assert.Equal(t, "http://atm/go?t=PublicTransport", links[0].URL)
	assert.Equal(t, "http://store/atm", links[0].StoreLink)
}

func TestSupportStrictKeepsOnlyMaxCount(t *testing.T) {
	store := &fakeSupportStore{
		assocs: map[string][]datatypes.SupportAssociation{
			"Transport": {
				supportAssoc("small", "InterestTopic"),
				supportAssoc("big", "InterestTopic"),
				supportAssoc("big", "Transport"),
			},
		},
		constraints: map[string][]datatypes.SupportConstraint{
			"Transport": {constraint("small", 1), constraint("big", 2)},
		},
		descriptors: map[string]datatypes.ServiceDescriptor{
			"small": supportDescriptor("small", "s"),
			"big":   supportDescriptor("big", "b"),
		},
	}
	s := NewSupport(store, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport"))
	require.NoError(t, err)

	// Both are exact matches but only the operation satisfying the
	// most constraints survives.
	require.Len(t, links, 1)
	assert.Equal(t, "b", links[0].Service)
}

func TestSupportRelaxedFallback(t *testing.T) {
	store := &fakeSupportStore{
		assocs: map[string][]datatypes.SupportAssociation{
			"Transport": {
				supportAssoc("over1", "InterestTopic"),
				supportAssoc("over1", "Transport"),
				supportAssoc("over2", "InterestTopic"),
				supportAssoc("over2", "Transport"),
				supportAssoc("over2", "Festivity"),
			},
		},
		constraints: map[string][]datatypes.SupportConstraint{
			"Transport": {constraint("over1", 1), constraint("over2", 1)},
		},
		descriptors: map[string]datatypes.ServiceDescriptor{
			"over1": supportDescriptor("over1", "one"),
			"over2": supportDescriptor("over2", "two"),
		},
	}
	s := NewSupport(store, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport"))
	require.NoError(t, err)

	// No exact match; relaxed keeps every over-satisfying operation,
	// best counts first.
	require.Len(t, links, 2)
	assert.Equal(t, "two", links[0].Service)
	assert.Equal(t, "one", links[1].Service)
}

func TestSupportGeoCountsAsPositionConstraint(t *testing.T) {
	store := &fakeSupportStore{
		geoAssocs: map[string][]datatypes.SupportAssociation{
			"Transport": {supportAssoc("geo", "")},
		},
		constraints: map[string][]datatypes.SupportConstraint{
			"Transport": {constraint("geo", 1)},
		},
		descriptors: map[string]datatypes.ServiceDescriptor{
			"geo": supportDescriptor("geo", "maps"),
		},
	}
	s := NewSupport(store, nil)

	decorated := supportDecorated("Transport")
	decorated.SpecificNodes = []datatypes.ContextNode{{
		Name: "Position",
		Fields: []datatypes.Field{
			{Name: "Latitude", Value: "45.0"},
			{Name: "Longitude", Value: "9.0"},
		},
	}}

	links, err := s.SelectServices(context.Background(), decorated)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "maps", links[0].Service)
}

func TestSupportEmptyCategoryContributesNothing(t *testing.T) {
	s := NewSupport(&fakeSupportStore{}, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport", "Maps"))
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestSupportMissingDescriptorSkipped(t *testing.T) {
	store := &fakeSupportStore{
		assocs: map[string][]datatypes.SupportAssociation{
			"Transport": {
				supportAssoc("ghost", "InterestTopic"),
				supportAssoc("ghost", "Transport"),
				supportAssoc("real", "InterestTopic"),
				supportAssoc("real", "Transport"),
			},
		},
		constraints: map[string][]datatypes.SupportConstraint{
			"Transport": {constraint("ghost", 2), constraint("real", 2)},
		},
		descriptors: map[string]datatypes.ServiceDescriptor{
			"real": supportDescriptor("real", "atm"),
		},
	}
	s := NewSupport(store, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport"))
	require.NoError(t, err)

	// Both operations are chosen; the one without a stored descriptor
	// is dropped instead of failing the category.
	require.Len(t, links, 1)
	assert.Equal(t, "atm", links[0].Service)
}

func TestSupportUnknownConstraintSkipped(t *testing.T) {
	store := &fakeSupportStore{
		assocs: map[string][]datatypes.SupportAssociation{
			"Transport": {supportAssoc("noConstraint", "InterestTopic")},
		},
	}
	s := NewSupport(store, nil)

	links, err := s.SelectServices(context.Background(), supportDecorated("Transport"))
	require.NoError(t, err)
	assert.Empty(t, links)
}
