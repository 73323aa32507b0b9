// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser normalizes upstream payloads into items using the
// response mapping of a service descriptor.
package parser

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

var (
	// ErrEmptyResponse is returned for a nil upstream payload.
	ErrEmptyResponse = errors.New("empty upstream response")

	// ErrMissingDescriptor is returned when no descriptor is supplied.
	ErrMissingDescriptor = errors.New("missing service descriptor")

	// ErrMissingMapping is returned when the descriptor declares no
	// response mapping.
	ErrMissingMapping = errors.New("descriptor has no response mapping")
)

// transforms is the closed registry of attribute post-functions.
// Descriptors select transforms by name; arbitrary code is deliberately
// not supported.
var transforms = map[string]func(string) string{
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"trim":      strings.TrimSpace,
	"title":     titleCase,
}

// Parser normalizes payloads. The zero value is not usable; use New.
type Parser struct {
	logger *slog.Logger
}

// New returns a Parser. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse extracts the item list from an upstream payload and maps each
// entry into a normalized item carrying the descriptor's service name
// and rank. Attributes that resolve to null or the empty string are
// dropped; items left with no attributes are dropped entirely.
func (p *Parser) Parse(descriptor *datatypes.ServiceDescriptor, payload any) ([]datatypes.Item, error) {
	if descriptor == nil {
		return nil, ErrMissingDescriptor
	}
	if payload == nil {
		return nil, ErrEmptyResponse
	}
	mapping := descriptor.ResponseMapping
	if mapping == nil || len(mapping.Items) == 0 {
		return nil, ErrMissingMapping
	}

	items := make([]datatypes.Item, 0)
	for _, raw := range itemList(payload, mapping.List) {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		attrs := make(map[string]any, len(mapping.Items))
		for _, m := range mapping.Items {
			value, ok := resolvePath(entry, m.Path)
			if !ok || value == nil {
				continue
			}
			if s, isString := value.(string); isString && s == "" {
				continue
			}
			attrs[m.TermName] = value
		}
		if len(attrs) == 0 {
			continue
		}

		item := datatypes.Item{
			Attributes: attrs,
			Meta: datatypes.ItemMeta{
				Names: []string{descriptor.Service.Name},
				Rank:  descriptor.Rank,
			},
		}
		p.applyFunctions(mapping.Functions, &item)
		items = append(items, item)
	}
	return items, nil
}

// applyFunctions runs the descriptor's post-functions on one item. An
// unknown transform or an absent attribute is a logged no-op so one bad
// declaration never poisons a whole result page.
func (p *Parser) applyFunctions(functions []datatypes.PostFunction, item *datatypes.Item) {
	for _, fn := range functions {
		transform, ok := transforms[fn.Run]
		if !ok {
			p.logger.Warn("unknown post-function, skipping", "run", fn.Run)
			continue
		}
		value, ok := item.StringAttribute(fn.OnAttribute)
		if !ok {
			p.logger.Debug("post-function attribute absent, skipping",
				"attribute", fn.OnAttribute, "run", fn.Run)
			continue
		}
		item.Attributes[fn.OnAttribute] = transform(value)
	}
}

// itemList resolves the list path inside a payload. An array is returned
// as is; a non-array object contributes its values (some upstreams key
// items by identifier); anything else yields no items.
func itemList(payload any, path string) []any {
	target := payload
	if path != "" {
		root, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		value, ok := resolvePath(root, path)
		if !ok {
			return nil
		}
		target = value
	}

	switch v := target.(type) {
	case []any:
		return v
	case map[string]any:
		values := make([]any, 0, len(v))
		for _, value := range v {
			values = append(values, value)
		}
		return values
	default:
		return nil
	}
}

// resolvePath walks a dotted path through nested objects.
func resolvePath(root map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = root
	for _, segment := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// titleCase upcases the first letter of every word.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atStart := true
	for _, r := range s {
		if atStart && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			atStart = false
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			atStart = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
