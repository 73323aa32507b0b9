// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package decorator resolves a raw user context against its CDT schema
// into a decorated context: categorized node views that drive service
// selection and query composition.
package decorator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianMashup/pkg/validation"
	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/provider"
)

var (
	// ErrSchemaNotFound is returned when the referenced CDT does not
	// exist. Safe to surface to callers.
	ErrSchemaNotFound = errors.New("CDT schema not found")

	// ErrNoItemsSelected is returned when the raw context carries no
	// items, or when none of its items matches a schema node.
	ErrNoItemsSelected = errors.New("no context items selected")

	// ErrInvalidCategory is returned when a matched schema node carries
	// no recognized category. It indicates a corrupted schema.
	ErrInvalidCategory = errors.New("schema node has no valid category")
)

// SchemaStore loads CDT schemas. *provider.MongoStore satisfies it.
type SchemaStore interface {
	GetCdtByID(ctx context.Context, id string) (*datatypes.CDT, error)
}

// Decorator turns raw contexts into decorated ones.
type Decorator struct {
	schemas SchemaStore
	logger  *slog.Logger
}

// New returns a Decorator reading schemas from the given store. A nil
// logger falls back to slog.Default().
func New(schemas SchemaStore, logger *slog.Logger) *Decorator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decorator{schemas: schemas, logger: logger}
}

// mergedNode is one schema node matched by the raw context, carrying the
// selected value and the merged parameters.
type mergedNode struct {
	schema datatypes.Node
	value  string
	params []mergedParam
}

type mergedParam struct {
	name   string
	value  string
	fields []datatypes.Field
}

// Decorate resolves raw against its CDT schema. The returned views are
// independent slices; mutating one never affects another.
func (d *Decorator) Decorate(ctx context.Context, raw datatypes.RawContext) (*datatypes.DecoratedCDT, error) {
	if len(raw.Items) == 0 {
		return nil, ErrNoItemsSelected
	}
	if raw.CdtID == "" {
		return nil, fmt.Errorf("%w: missing CDT id", ErrSchemaNotFound)
	}
	if err := validation.ValidateCategories(raw.Support); err != nil {
		return nil, fmt.Errorf("invalid support categories: %w", err)
	}

	cdt, err := d.schemas.GetCdtByID(ctx, raw.CdtID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, raw.CdtID)
		}
		return nil, fmt.Errorf("load CDT %q: %w", raw.CdtID, err)
	}

	merged, err := d.merge(cdt, raw)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: no item matched schema %q", ErrNoItemsSelected, cdt.ID)
	}

	decorated := &datatypes.DecoratedCDT{
		ID:                       cdt.ID,
		FilterNodes:              expand(cdt, scalars(merged, datatypes.CategoryFilter), datatypes.CategoryFilter),
		RankingNodes:             expand(cdt, scalars(merged, datatypes.CategoryRanking), datatypes.CategoryRanking),
		SpecificNodes:            specifics(merged),
		SupportServiceCategories: append([]string(nil), raw.Support...),
	}
	decorated.ParameterNodes = parameters(merged, decorated.SpecificNodes)
	return decorated, nil
}

// merge walks the schema in declaration order and keeps the nodes the
// raw context selects. The first occurrence of a dimension, parameter or
// field name in the raw context wins; later duplicates are ignored.
func (d *Decorator) merge(cdt *datatypes.CDT, raw datatypes.RawContext) ([]mergedNode, error) {
	selected := make(map[string]datatypes.ContextItem, len(raw.Items))
	for _, item := range raw.Items {
		if err := validation.ValidateDimension(item.Dimension); err != nil {
			return nil, fmt.Errorf("invalid context item: %w", err)
		}
		if _, seen := selected[item.Dimension]; !seen {
			selected[item.Dimension] = item
		}
	}

	var merged []mergedNode
	for _, node := range cdt.Nodes {
		item, ok := selected[node.Name]
		if !ok {
			continue
		}
		if !hasKnownCategory(node) {
			return nil, fmt.Errorf("%w: node %q declares %q", ErrInvalidCategory, node.Name, node.Category)
		}
		if item.Value != "" && len(node.Values) > 0 && !contains(node.Values, item.Value) {
			d.logger.Warn("context value not declared by schema node, skipping",
				"dimension", node.Name, "value", item.Value)
			continue
		}
		merged = append(merged, mergedNode{
			schema: node,
			value:  item.Value,
			params: mergeParams(node.Parameters, item.Parameters),
		})
	}
	return merged, nil
}

// mergeParams keeps the submitted parameters the schema declares,
// first occurrence winning for both parameter and field names.
func mergeParams(declared []datatypes.Parameter, submitted []datatypes.ContextParameter) []mergedParam {
	byName := make(map[string]datatypes.ContextParameter, len(submitted))
	for _, p := range submitted {
		if _, seen := byName[p.Name]; !seen {
			byName[p.Name] = p
		}
	}

	var merged []mergedParam
	for _, schema := range declared {
		p, ok := byName[schema.Name]
		if !ok {
			continue
		}
		if len(schema.Fields) > 0 {
			fields := mergeFields(schema.Fields, p.Fields)
			if len(fields) > 0 {
				merged = append(merged, mergedParam{name: schema.Name, fields: fields})
			}
			continue
		}
		if p.Value != "" {
			merged = append(merged, mergedParam{name: schema.Name, value: p.Value})
		}
	}
	return merged
}

func mergeFields(declared, submitted []datatypes.Field) []datatypes.Field {
	byName := make(map[string]string, len(submitted))
	for _, f := range submitted {
		if _, seen := byName[f.Name]; !seen {
			byName[f.Name] = f.Value
		}
	}

	var fields []datatypes.Field
	for _, schema := range declared {
		if value, ok := byName[schema.Name]; ok && value != "" {
			fields = append(fields, datatypes.Field{Name: schema.Name, Type: schema.Type, Value: value})
		}
	}
	return fields
}

// scalars returns the flattened scalar nodes of a category.
func scalars(merged []mergedNode, category string) []datatypes.ContextNode {
	var nodes []datatypes.ContextNode
	for _, m := range merged {
		if m.schema.HasCategory(category) && m.value != "" {
			nodes = append(nodes, datatypes.ContextNode{Name: m.schema.Name, Value: m.value})
		}
	}
	return nodes
}

// expand adds the transitive descendants of the selected values: schema
// nodes of the same category whose parents list a value already present
// contribute every one of their declared values. Expansion iterates to a
// fixpoint so chains of dependent dimensions all surface.
func expand(cdt *datatypes.CDT, nodes []datatypes.ContextNode, category string) []datatypes.ContextNode {
	values := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		values[n.Value] = true
	}
	emitted := make(map[string]bool, len(cdt.Nodes))

	for {
		grown := false
		for _, node := range cdt.Nodes {
			if emitted[node.Name] || !node.HasCategory(category) || len(node.Parents) == 0 {
				continue
			}
			if !intersects(node.Parents, values) {
				continue
			}
			emitted[node.Name] = true
			grown = true
			for _, v := range node.Values {
				nodes = append(nodes, datatypes.ContextNode{Name: node.Name, Value: v})
				values[v] = true
			}
		}
		if !grown {
			return nodes
		}
	}
}

// specifics returns the composite parameters of ranking nodes, the only
// place the schema nests field groups.
func specifics(merged []mergedNode) []datatypes.ContextNode {
	var nodes []datatypes.ContextNode
	for _, m := range merged {
		if !m.schema.HasCategory(datatypes.CategoryRanking) {
			continue
		}
		for _, p := range m.params {
			if len(p.fields) > 0 {
				nodes = append(nodes, datatypes.ContextNode{Name: p.name, Fields: p.fields})
			}
		}
	}
	return nodes
}

// parameters returns the parameter view: scalar values and scalar
// parameters of parameter-category nodes (the latter under dotted
// names), plus every specific node.
func parameters(merged []mergedNode, specific []datatypes.ContextNode) []datatypes.ContextNode {
	var nodes []datatypes.ContextNode
	for _, m := range merged {
		if !m.schema.HasCategory(datatypes.CategoryParameter) {
			continue
		}
		if m.value != "" {
			nodes = append(nodes, datatypes.ContextNode{Name: m.schema.Name, Value: m.value})
		}
		for _, p := range m.params {
			if p.value != "" {
				nodes = append(nodes, datatypes.ContextNode{
					Name:  m.schema.Name + "." + p.name,
					Value: p.value,
				})
			}
		}
	}
	return append(nodes, specific...)
}

func hasKnownCategory(node datatypes.Node) bool {
	return node.HasCategory(datatypes.CategoryFilter) ||
		node.HasCategory(datatypes.CategoryRanking) ||
		node.HasCategory(datatypes.CategoryParameter)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func intersects(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}
