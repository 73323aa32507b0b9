// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package users handles account login and the retrieval of a user's
// personal schemas.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/provider"
)

var (
	// ErrInvalidCredentials is returned for a wrong mail or password.
	ErrInvalidCredentials = errors.New("invalid mail or password")

	// ErrInvalidToken is returned when a session token does not match
	// the account.
	ErrInvalidToken = errors.New("invalid session token")
)

// Store is the account access this package needs. *provider.MongoStore
// satisfies it.
type Store interface {
	CheckUserLogin(ctx context.Context, mail, password string) (*datatypes.User, error)
	UpdateUserToken(ctx context.Context, userID, token string) error
	GetUser(ctx context.Context, mail string) (*datatypes.User, error)
	GetCdtByUser(ctx context.Context, userID string) (*datatypes.CDT, error)
	GetUserMashup(ctx context.Context, userID string) (*datatypes.Mashup, error)
}

// PersonalData bundles the schemas shown on a user's personal page.
type PersonalData struct {
	CDT    *datatypes.CDT    `json:"cdt"`
	Mashup *datatypes.Mashup `json:"mashup"`
}

// Service implements the account operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New builds the account service. A nil logger falls back to
// slog.Default().
func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Login checks the credentials and rotates the account's session token.
// The returned user carries the fresh token.
func (s *Service) Login(ctx context.Context, mail, password string) (*datatypes.User, error) {
	if mail == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.CheckUserLogin(ctx, mail, password)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	token := uuid.NewString()
	if err := s.store.UpdateUserToken(ctx, user.ID, token); err != nil {
		return nil, fmt.Errorf("rotate token: %w", err)
	}
	user.Token = token

	s.logger.Info("user logged in", "userId", user.ID)
	return user, nil
}

// GetPersonalData returns the CDT and mashup schemas of the account,
// falling back to the global ones when the user has no personal copies.
// The token must match the one issued at login.
func (s *Service) GetPersonalData(ctx context.Context, mail, token string) (*PersonalData, error) {
	if mail == "" || token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, mail)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(user.Token), []byte(token)) != 1 {
		return nil, ErrInvalidToken
	}

	cdt, err := s.store.GetCdtByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load personal CDT: %w", err)
	}
	mashup, err := s.store.GetUserMashup(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load personal mashup: %w", err)
	}
	return &PersonalData{CDT: cdt, Mashup: mashup}, nil
}
