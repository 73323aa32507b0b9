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

// ServiceStatus tracks the pagination cursor of one selected operation
// inside a cached session.
type ServiceStatus struct {
	OperationID string  `json:"operationId"`
	Rank        float64 `json:"rank"`
	HasNextPage bool    `json:"hasNextPage"`
	NextPage    string  `json:"nextPage,omitempty"`
}

// UserPagination tracks one reader's progress through a shared session.
// LastCursor makes a replayed "after" cursor idempotent.
type UserPagination struct {
	UserID     string `json:"userId"`
	ItemsSeen  int    `json:"itemsSeen"`
	LastCursor string `json:"lastCursor,omitempty"`
}

// Session is the cache entry for one decorated context, keyed by the
// content hash of the raw context. It accumulates results across page
// fetches and is shared by every reader of the same context.
type Session struct {
	DecoratedCDT DecoratedCDT     `json:"decoratedCdt"`
	ConnectionID string           `json:"connectionId"`
	Services     []ServiceStatus  `json:"services"`
	Results      []Item           `json:"results"`
	Users        []UserPagination `json:"users"`
}

// PageArgs carries cursor-style pagination arguments from the client.
// First is the requested item count; After is an opaque replay guard.
type PageArgs struct {
	First int    `json:"first,omitempty"`
	After string `json:"after,omitempty"`
}

// User is a stored account. Password and Token are never serialized to
// clients.
type User struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Mail     string `bson:"mail" json:"mail"`
	Password string `bson:"password,omitempty" json:"-"`
	Token    string `bson:"token,omitempty" json:"-"`
}

// Mashup is a stored presentation schema associated to a user, returned
// alongside the CDT by the personal-data operation.
type Mashup struct {
	ID      string         `bson:"_id,omitempty" json:"id"`
	UserIDs []string       `bson:"_userId,omitempty" json:"userIds,omitempty"`
	List    map[string]any `bson:"list,omitempty" json:"list,omitempty"`
	Details map[string]any `bson:"details,omitempty" json:"details,omitempty"`
}
