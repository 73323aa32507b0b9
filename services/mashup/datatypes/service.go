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

import "github.com/go-playground/validator/v10"

// Service protocols. Custom operations must name a registered bridge.
const (
	ProtocolRest    = "rest"
	ProtocolQuery   = "query"
	ProtocolAndroid = "android"
	ProtocolCustom  = "custom"
)

// Operation types.
const (
	OperationPrimary = "primary"
	OperationSupport = "support"
)

// Pagination strategies an upstream service can declare.
const (
	PaginationNumber = "number"
	PaginationToken  = "token"
)

// Collection formats for multi-valued parameters.
const (
	FormatCSV   = "csv"
	FormatSSV   = "ssv"
	FormatTSV   = "tsv"
	FormatPipes = "pipes"
)

// Translation is a literal from→to rewrite rule applied to a parameter
// value resolved from the decorated context.
type Translation struct {
	From string `bson:"from" json:"from" validate:"required"`
	To   string `bson:"to" json:"to" validate:"required"`
}

// OperationParameter declares how one request parameter is resolved:
// from the decorated context (MappingCDT, dotted names), as a deferred
// placeholder (MappingTerm) or from a literal default.
type OperationParameter struct {
	Name             string        `bson:"name" json:"name" validate:"required"`
	Description      string        `bson:"description,omitempty" json:"description,omitempty"`
	Required         bool          `bson:"required" json:"required"`
	Default          string        `bson:"default,omitempty" json:"default,omitempty"`
	CollectionFormat string        `bson:"collectionFormat,omitempty" json:"collectionFormat,omitempty" validate:"omitempty,oneof=csv ssv tsv pipes"`
	MappingCDT       []string      `bson:"mappingCDT,omitempty" json:"mappingCDT,omitempty"`
	MappingTerm      []string      `bson:"mappingTerm,omitempty" json:"mappingTerm,omitempty"`
	Translate        []Translation `bson:"translate,omitempty" json:"translate,omitempty" validate:"dive"`
}

// Header is a literal header attached to every request of an operation.
type Header struct {
	Name  string `bson:"name" json:"name" validate:"required"`
	Value string `bson:"value" json:"value" validate:"required"`
}

// ItemMapping copies the value at a dotted Path of an upstream item under
// the semantic TermName in the normalized item.
type ItemMapping struct {
	TermName string `bson:"termName" json:"termName" validate:"required"`
	Path     string `bson:"path" json:"path" validate:"required"`
}

// PostFunction applies a named transform to one attribute of every
// normalized item. Run selects a vetted transform from a closed registry;
// arbitrary expressions are deliberately not supported.
type PostFunction struct {
	OnAttribute string `bson:"onAttribute" json:"onAttribute" validate:"required"`
	Run         string `bson:"run" json:"run" validate:"required"`
}

// ResponseMapping locates the item array inside an upstream payload and
// maps its fields into semantic terms.
type ResponseMapping struct {
	List      string         `bson:"list,omitempty" json:"list,omitempty"`
	Items     []ItemMapping  `bson:"items" json:"items" validate:"required,dive"`
	Functions []PostFunction `bson:"functions,omitempty" json:"functions,omitempty" validate:"dive"`
}

// Pagination declares how an operation pages its results.
type Pagination struct {
	AttributeName      string `bson:"attributeName" json:"attributeName" validate:"required"`
	Type               string `bson:"type" json:"type" validate:"required,oneof=number token"`
	PageCountAttribute string `bson:"pageCountAttribute,omitempty" json:"pageCountAttribute,omitempty"`
	TokenAttribute     string `bson:"tokenAttribute,omitempty" json:"tokenAttribute,omitempty"`
}

// ServiceInfo describes the upstream service an operation belongs to.
type ServiceInfo struct {
	Name     string `bson:"name" json:"name" validate:"required"`
	Protocol string `bson:"protocol" json:"protocol" validate:"required,oneof=rest query android custom"`
	BasePath string `bson:"basePath,omitempty" json:"basePath,omitempty"`
}

// ServiceDescriptor is one queryable operation together with its service
// information, as loaded from the descriptor store.
type ServiceDescriptor struct {
	ID              string               `bson:"_id,omitempty" json:"id"`
	Name            string               `bson:"name" json:"name" validate:"required"`
	Type            string               `bson:"type" json:"type" validate:"required,oneof=primary support"`
	Service         ServiceInfo          `bson:"service" json:"service" validate:"required"`
	Path            string               `bson:"path,omitempty" json:"path,omitempty"`
	StoreLink       string               `bson:"storeLink,omitempty" json:"storeLink,omitempty"`
	BridgeName      string               `bson:"bridgeName,omitempty" json:"bridgeName,omitempty"`
	Parameters      []OperationParameter `bson:"parameters,omitempty" json:"parameters,omitempty" validate:"dive"`
	Headers         []Header             `bson:"headers,omitempty" json:"headers,omitempty" validate:"dive"`
	ResponseMapping *ResponseMapping     `bson:"responseMapping,omitempty" json:"responseMapping,omitempty"`
	Pagination      *Pagination          `bson:"pagination,omitempty" json:"pagination,omitempty"`

	// Rank is attached at query time by the query handler; it is not
	// part of the stored descriptor.
	Rank float64 `bson:"-" json:"-"`
}

var descriptorValidator = validator.New()

// Validate checks the structural invariants of a stored descriptor.
func (d *ServiceDescriptor) Validate() error {
	return descriptorValidator.Struct(d)
}
