// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package composer builds concrete request addresses from a service
// descriptor and a decorated context.
package composer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

var (
	// ErrMissingRequiredParameter is returned when a required parameter
	// resolves to no value.
	ErrMissingRequiredParameter = errors.New("required parameter has no value")

	// ErrUnsupportedProtocol is returned for protocols without a symbol
	// table. Custom protocols compose their own addresses in their bridge.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// symbols is the address grammar of one protocol: the character opening
// the parameter section, the name/value assignment and the separator
// between parameters.
type symbols struct {
	start  string
	assign string
	sep    string
}

var protocolSymbols = map[string]symbols{
	datatypes.ProtocolRest:    {start: "/", assign: "/", sep: "/"},
	datatypes.ProtocolQuery:   {start: "?", assign: "=", sep: "&"},
	datatypes.ProtocolAndroid: {start: ":", assign: "=", sep: "&"},
}

var formatSeparators = map[string]string{
	datatypes.FormatCSV:   ",",
	datatypes.FormatSSV:   " ",
	datatypes.FormatTSV:   "/",
	datatypes.FormatPipes: "|",
}

// ComposeAddress builds the request address for one operation. Page is
// the pagination value for this request, empty on the first page or when
// the operation does not paginate. Parameters resolve in declaration
// order; unresolved optional parameters are omitted.
func ComposeAddress(descriptor *datatypes.ServiceDescriptor, decorated *datatypes.DecoratedCDT, page string) (string, error) {
	syms, ok := protocolSymbols[descriptor.Service.Protocol]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, descriptor.Service.Protocol)
	}

	var parts []string
	for _, param := range descriptor.Parameters {
		value, err := resolveParameter(param, decorated)
		if err != nil {
			return "", fmt.Errorf("operation %q: %w", descriptor.Name, err)
		}
		if value == "" {
			continue
		}
		parts = append(parts, param.Name+syms.assign+value)
	}

	if page != "" && descriptor.Pagination != nil {
		parts = append(parts, descriptor.Pagination.AttributeName+syms.assign+page)
	}

	address := descriptor.Service.BasePath + descriptor.Path
	if len(parts) > 0 {
		address += syms.start + strings.Join(parts, syms.sep)
	}
	return address, nil
}

// resolveParameter produces the value of one parameter, or "" when an
// optional parameter resolves to nothing.
func resolveParameter(param datatypes.OperationParameter, decorated *datatypes.DecoratedCDT) (string, error) {
	separator := formatSeparators[param.CollectionFormat]
	if separator == "" {
		separator = ","
	}

	switch {
	case len(param.MappingCDT) > 0:
		var values []string
		for _, name := range param.MappingCDT {
			if v, ok := lookup(decorated, name); ok {
				values = append(values, translate(param.Translate, v))
			}
		}
		// A declared mapping that resolves nothing never falls back to
		// the default; defaults serve parameters without a mapping.
		if len(values) == 0 {
			if param.Required {
				return "", fmt.Errorf("%w: %q", ErrMissingRequiredParameter, param.Name)
			}
			return "", nil
		}
		return strings.Join(values, separator), nil

	case len(param.MappingTerm) > 0:
		// Term mappings defer to the response items; the composed
		// address carries placeholders for the caller to substitute.
		placeholders := make([]string, 0, len(param.MappingTerm))
		for _, term := range param.MappingTerm {
			placeholders = append(placeholders, "{"+term+"}")
		}
		return strings.Join(placeholders, separator), nil
	}

	if param.Default != "" {
		return param.Default, nil
	}
	if param.Required {
		return "", fmt.Errorf("%w: %q", ErrMissingRequiredParameter, param.Name)
	}
	return "", nil
}

// lookup resolves a mapping name against the decorated context. Names
// match filter nodes first, then parameter nodes. A dotted name that
// matches no node directly is split on its last dot and resolved as a
// field of a composite node.
func lookup(decorated *datatypes.DecoratedCDT, name string) (string, bool) {
	for _, n := range decorated.FilterNodes {
		if n.Name == name && n.Value != "" {
			return n.Value, true
		}
	}
	for _, n := range decorated.ParameterNodes {
		if n.Name == name && n.Value != "" {
			return n.Value, true
		}
	}

	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return "", false
	}
	nodeName, fieldName := name[:idx], name[idx+1:]
	for _, n := range decorated.ParameterNodes {
		if n.Name == nodeName && n.IsSpecific() {
			if v := n.Field(fieldName); v != "" {
				return v, true
			}
		}
	}
	for _, n := range decorated.SpecificNodes {
		if n.Name == nodeName {
			if v := n.Field(fieldName); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// translate applies the first matching rewrite rule. Values without a
// matching rule pass through unchanged.
func translate(rules []datatypes.Translation, value string) string {
	for _, rule := range rules {
		if rule.From == value {
			return rule.To
		}
	}
	return value
}
