// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridges executes composed queries against upstream services.
// A bridge owns one transport; the registry maps descriptors to the
// bridge that can execute them.
package bridges

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

var (
	// ErrUnknownBridge is returned when a descriptor names a bridge
	// that was never registered.
	ErrUnknownBridge = errors.New("unknown bridge")

	// ErrUnnamedCustomBridge is returned for a custom-protocol
	// descriptor without a bridge name.
	ErrUnnamedCustomBridge = errors.New("custom protocol requires a bridge name")
)

// Response is the outcome of one upstream query: the decoded payload
// and the pagination status of the operation after this page.
type Response struct {
	Payload     any
	HasNextPage bool
	NextPage    string
}

// Bridge executes one query against an upstream service. Page is the
// pagination value for this request; empty means the first page.
type Bridge interface {
	ExecuteQuery(ctx context.Context, descriptor *datatypes.ServiceDescriptor, decorated *datatypes.DecoratedCDT, page string) (*Response, error)
}

// RestBridgeName is the registry key of the HTTP bridge serving the
// rest and query protocols.
const RestBridgeName = "rest"

// Registry maps bridge names to bridges. It is populated at startup and
// read-only afterwards, so no locking is needed.
type Registry struct {
	bridges map[string]Bridge
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bridges: make(map[string]Bridge)}
}

// Register adds a bridge under a name. Registering the same name twice
// is a programming error and fails loudly.
func (r *Registry) Register(name string, bridge Bridge) error {
	if name == "" {
		return errors.New("bridge name must not be empty")
	}
	if _, exists := r.bridges[name]; exists {
		return fmt.Errorf("bridge %q already registered", name)
	}
	r.bridges[name] = bridge
	return nil
}

// Resolve returns the bridge executing the given descriptor: the HTTP
// bridge for the rest and query protocols, the named bridge for custom
// ones.
func (r *Registry) Resolve(descriptor *datatypes.ServiceDescriptor) (Bridge, error) {
	name := ""
	switch descriptor.Service.Protocol {
	case datatypes.ProtocolRest, datatypes.ProtocolQuery:
		name = RestBridgeName
	case datatypes.ProtocolCustom:
		if descriptor.BridgeName == "" {
			return nil, fmt.Errorf("%w: operation %q", ErrUnnamedCustomBridge, descriptor.Name)
		}
		name = descriptor.BridgeName
	default:
		return nil, fmt.Errorf("no bridge for protocol %q", descriptor.Service.Protocol)
	}

	bridge, ok := r.bridges[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBridge, name)
	}
	return bridge, nil
}
