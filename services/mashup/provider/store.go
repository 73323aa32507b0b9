// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/AleutianAI/AleutianMashup/pkg/validation"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

// GetCdtByID loads the CDT schema with the given identifier.
func (s *MongoStore) GetCdtByID(ctx context.Context, id string) (*datatypes.CDT, error) {
	var cdt datatypes.CDT
	if err := findOne(ctx, s.db.Collection(collCDT), bson.M{"_id": idValue(id)}, &cdt); err != nil {
		return nil, fmt.Errorf("get CDT %q: %w", id, err)
	}
	return &cdt, nil
}

// GetCdtByUser loads the CDT owned by the given user, falling back to the
// global schema when the user has none.
func (s *MongoStore) GetCdtByUser(ctx context.Context, userID string) (*datatypes.CDT, error) {
	var cdt datatypes.CDT
	err := findOne(ctx, s.db.Collection(collCDT), bson.M{"_userId": idValue(userID)}, &cdt)
	if err == ErrNotFound {
		return s.GetGlobalCdt(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get CDT for user %q: %w", userID, err)
	}
	return &cdt, nil
}

// GetGlobalCdt loads the schema shared by users without a personal one.
// The global CDT is the document without a _userId field.
func (s *MongoStore) GetGlobalCdt(ctx context.Context) (*datatypes.CDT, error) {
	var cdt datatypes.CDT
	filter := bson.M{"_userId": bson.M{"$exists": false}}
	if err := findOne(ctx, s.db.Collection(collCDT), filter, &cdt); err != nil {
		return nil, fmt.Errorf("get global CDT: %w", err)
	}
	return &cdt, nil
}

// GetOperationByID loads a single service descriptor.
func (s *MongoStore) GetOperationByID(ctx context.Context, id string) (*datatypes.ServiceDescriptor, error) {
	var descriptor datatypes.ServiceDescriptor
	if err := findOne(ctx, s.db.Collection(collOperations), bson.M{"_id": idValue(id)}, &descriptor); err != nil {
		return nil, fmt.Errorf("get operation %q: %w", id, err)
	}
	return &descriptor, nil
}

// GetOperationsByIDs loads the descriptors for a batch of operation
// identifiers. Missing identifiers are silently absent from the result.
func (s *MongoStore) GetOperationsByIDs(ctx context.Context, ids []string) ([]datatypes.ServiceDescriptor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := s.db.Collection(collOperations).Find(ctx, bson.M{"_id": bson.M{"$in": idValues(ids)}})
	if err != nil {
		return nil, fmt.Errorf("find operations: %w", err)
	}
	var descriptors []datatypes.ServiceDescriptor
	if err := cursor.All(ctx, &descriptors); err != nil {
		return nil, fmt.Errorf("decode operations: %w", err)
	}
	return descriptors, nil
}

// dimensionFilter builds the $or clause matching any of the given
// scalar nodes. Dimension names are validated before they reach the
// query; invalid nodes are skipped.
func (s *MongoStore) dimensionFilter(nodes []datatypes.ContextNode) []bson.M {
	clauses := make([]bson.M, 0, len(nodes))
	for _, node := range nodes {
		if err := validation.ValidateDimension(node.Name); err != nil {
			s.logger.Warn("skipping node with invalid dimension name",
				"dimension", node.Name)
			continue
		}
		clauses = append(clauses, bson.M{"dimension": node.Name, "value": node.Value})
	}
	return clauses
}

// FilterPrimaryAssociations returns the primary associations of the CDT
// matching any of the given scalar nodes.
func (s *MongoStore) FilterPrimaryAssociations(ctx context.Context, cdtID string, nodes []datatypes.ContextNode) ([]datatypes.PrimaryAssociation, error) {
	clauses := s.dimensionFilter(nodes)
	if len(clauses) == 0 {
		return nil, nil
	}

	filter := bson.M{"_idCDT": idValue(cdtID), "$or": clauses}
	cursor, err := s.db.Collection(collPrimary).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find primary associations: %w", err)
	}
	var associations []datatypes.PrimaryAssociation
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("decode primary associations: %w", err)
	}
	return associations, nil
}

// SearchPrimaryByLocation returns the primary associations of the CDT
// nearest to the given point, ordered by distance. The loc field uses a
// legacy 2d index with [lng, lat] coordinates, so the radius is given in
// radians.
func (s *MongoStore) SearchPrimaryByLocation(ctx context.Context, cdtID string, latitude, longitude float64) ([]datatypes.PrimaryAssociation, error) {
	filter := bson.M{
		"_idCDT": idValue(cdtID),
		"loc": bson.M{
			"$near":        []float64{longitude, latitude},
			"$maxDistance": s.radiusKm / earthRadiusKm,
		},
	}
	cursor, err := s.db.Collection(collPrimary).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search primary associations by location: %w", err)
	}
	var associations []datatypes.PrimaryAssociation
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("decode primary associations: %w", err)
	}
	return associations, nil
}

// FilterSupportAssociations returns the support associations of the CDT
// in the given category matching any of the given scalar nodes.
func (s *MongoStore) FilterSupportAssociations(ctx context.Context, cdtID, category string, nodes []datatypes.ContextNode) ([]datatypes.SupportAssociation, error) {
	if err := validation.ValidateDimension(category); err != nil {
		return nil, fmt.Errorf("invalid support category: %w", err)
	}
	clauses := s.dimensionFilter(nodes)
	if len(clauses) == 0 {
		return nil, nil
	}

	filter := bson.M{"_idCDT": idValue(cdtID), "category": category, "$or": clauses}
	cursor, err := s.db.Collection(collSupport).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find support associations: %w", err)
	}
	var associations []datatypes.SupportAssociation
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("decode support associations: %w", err)
	}
	return associations, nil
}

// SearchSupportByLocation returns the support associations of the CDT in
// the given category nearest to the given point.
func (s *MongoStore) SearchSupportByLocation(ctx context.Context, cdtID, category string, latitude, longitude float64) ([]datatypes.SupportAssociation, error) {
	if err := validation.ValidateDimension(category); err != nil {
		return nil, fmt.Errorf("invalid support category: %w", err)
	}

	filter := bson.M{
		"_idCDT":   idValue(cdtID),
		"category": category,
		"loc": bson.M{
			"$near":        []float64{longitude, latitude},
			"$maxDistance": s.radiusKm / earthRadiusKm,
		},
	}
	cursor, err := s.db.Collection(collSupport).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search support associations by location: %w", err)
	}
	var associations []datatypes.SupportAssociation
	if err := cursor.All(ctx, &associations); err != nil {
		return nil, fmt.Errorf("decode support associations: %w", err)
	}
	return associations, nil
}

// GetConstraintCounts returns the constraint counts for the given
// operations in a support category.
func (s *MongoStore) GetConstraintCounts(ctx context.Context, cdtID, category string, operationIDs []string) ([]datatypes.SupportConstraint, error) {
	if len(operationIDs) == 0 {
		return nil, nil
	}
	if err := validation.ValidateDimension(category); err != nil {
		return nil, fmt.Errorf("invalid support category: %w", err)
	}

	filter := bson.M{
		"_idCDT":       idValue(cdtID),
		"category":     category,
		"_idOperation": bson.M{"$in": idValues(operationIDs)},
	}
	cursor, err := s.db.Collection(collConstraints).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find support constraints: %w", err)
	}
	var constraints []datatypes.SupportConstraint
	if err := cursor.All(ctx, &constraints); err != nil {
		return nil, fmt.Errorf("decode support constraints: %w", err)
	}
	return constraints, nil
}
