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
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
)

// HashPassword returns the digest stored in the password field of a user
// document. Accounts are provisioned with this digest, never plaintext.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// GetUser loads the user with the given mail address.
func (s *MongoStore) GetUser(ctx context.Context, mail string) (*datatypes.User, error) {
	var user datatypes.User
	if err := findOne(ctx, s.db.Collection(collUsers), bson.M{"mail": mail}, &user); err != nil {
		return nil, fmt.Errorf("get user %q: %w", mail, err)
	}
	return &user, nil
}

// CheckUserLogin returns the user matching mail and password, or
// ErrNotFound when the credentials are wrong. The mismatch between a
// missing account and a wrong password is deliberately not exposed.
func (s *MongoStore) CheckUserLogin(ctx context.Context, mail, password string) (*datatypes.User, error) {
	var user datatypes.User
	filter := bson.M{"mail": mail, "password": HashPassword(password)}
	err := findOne(ctx, s.db.Collection(collUsers), filter, &user)
	if err == ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check login for %q: %w", mail, err)
	}
	return &user, nil
}

// UpdateUserToken stores a fresh session token on the user document.
func (s *MongoStore) UpdateUserToken(ctx context.Context, userID, token string) error {
	result, err := s.db.Collection(collUsers).UpdateOne(ctx,
		bson.M{"_id": idValue(userID)},
		bson.M{"$set": bson.M{"token": token}})
	if err != nil {
		return fmt.Errorf("update token for user %q: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserMashup loads the presentation schema owned by the given user,
// falling back to the global one when the user has none.
func (s *MongoStore) GetUserMashup(ctx context.Context, userID string) (*datatypes.Mashup, error) {
	var mashup datatypes.Mashup
	err := findOne(ctx, s.db.Collection(collMashups), bson.M{"_userId": idValue(userID)}, &mashup)
	if err == ErrNotFound {
		filter := bson.M{"_userId": bson.M{"$exists": false}}
		if err := findOne(ctx, s.db.Collection(collMashups), filter, &mashup); err != nil {
			return nil, fmt.Errorf("get global mashup: %w", err)
		}
		return &mashup, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mashup for user %q: %w", userID, err)
	}
	return &mashup, nil
}
