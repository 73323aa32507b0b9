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

// PrimaryAssociation links a primary operation to a CDT dimension/value
// pair, or to a geographic point for proximity search. Ranking is 1-based
// and never zero.
type PrimaryAssociation struct {
	OperationID string    `bson:"_idOperation" json:"operationId"`
	CdtID       string    `bson:"_idCDT" json:"cdtId"`
	Dimension   string    `bson:"dimension,omitempty" json:"dimension,omitempty"`
	Value       string    `bson:"value,omitempty" json:"value,omitempty"`
	Ranking     int       `bson:"ranking,omitempty" json:"ranking,omitempty"`
	Loc         []float64 `bson:"loc,omitempty" json:"loc,omitempty"` // [lng, lat]
}

// SupportAssociation links a support operation to a CDT dimension/value
// pair inside a category.
type SupportAssociation struct {
	OperationID string    `bson:"_idOperation" json:"operationId"`
	CdtID       string    `bson:"_idCDT" json:"cdtId"`
	Category    string    `bson:"category" json:"category"`
	Dimension   string    `bson:"dimension,omitempty" json:"dimension,omitempty"`
	Value       string    `bson:"value,omitempty" json:"value,omitempty"`
	Loc         []float64 `bson:"loc,omitempty" json:"loc,omitempty"` // [lng, lat]
}

// SupportConstraint records how many distinct dimension constraints a
// support operation must satisfy to be a strict match for a category.
type SupportConstraint struct {
	OperationID     string `bson:"_idOperation" json:"operationId"`
	CdtID           string `bson:"_idCDT" json:"cdtId"`
	Category        string `bson:"category" json:"category"`
	ConstraintCount int    `bson:"constraintCount" json:"constraintCount"`
}

// RankedOperation is one entry of the primary selector output: an
// operation identifier with its aggregated relevance score.
type RankedOperation struct {
	OperationID string  `json:"operationId"`
	Rank        float64 `json:"rank"`
}

// SupportLink is one entry of the support selector output: a composed,
// single-shot URL for an auxiliary service in a category.
type SupportLink struct {
	Category  string `json:"category"`
	Service   string `json:"service"`
	URL       string `json:"url"`
	StoreLink string `json:"storeLink,omitempty"`
}
