// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execution is the orchestration facade of the mashup service:
// the operations the HTTP handlers call, each one composing the
// decorator, the selectors, the session manager and the account
// service.
package execution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/session"
	"github.com/AleutianAI/AleutianMashup/services/mashup/users"
)

// ContextDecorator resolves raw contexts against their schema.
type ContextDecorator interface {
	Decorate(ctx context.Context, raw datatypes.RawContext) (*datatypes.DecoratedCDT, error)
}

// SessionManager serves result pages and persists sessions.
type SessionManager interface {
	Load(ctx context.Context, contextHash string) (*datatypes.Session, error)
	Save(ctx context.Context, contextHash string, s *datatypes.Session) error
	FetchPage(ctx context.Context, userID, contextHash string, decorated *datatypes.DecoratedCDT, connectionID string, args datatypes.PageArgs) (*session.Page, error)
}

// SupportSelector picks the support links for a decorated context.
type SupportSelector interface {
	SelectServices(ctx context.Context, decorated *datatypes.DecoratedCDT) ([]datatypes.SupportLink, error)
}

// AccountService handles login and personal data.
type AccountService interface {
	Login(ctx context.Context, mail, password string) (*datatypes.User, error)
	GetPersonalData(ctx context.Context, mail, token string) (*users.PersonalData, error)
}

// DecoratedContext is a decorated CDT together with the identifiers the
// pipeline keys it by.
type DecoratedContext struct {
	Decorated    *datatypes.DecoratedCDT `json:"decoratedCdt"`
	ContextHash  string                  `json:"contextHash"`
	ConnectionID string                  `json:"connectionId"`
}

// Engine wires the pipeline components behind the client operations.
type Engine struct {
	decorator ContextDecorator
	sessions  SessionManager
	support   SupportSelector
	accounts  AccountService
	logger    *slog.Logger
}

// New builds the engine. A nil logger falls back to slog.Default().
func New(decorator ContextDecorator, sessions SessionManager, support SupportSelector, accounts AccountService, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		decorator: decorator,
		sessions:  sessions,
		support:   support,
		accounts:  accounts,
		logger:    logger,
	}
}

// ContextHash is the content hash identifying a raw context. Two
// submissions of the same context land in the same session regardless
// of who sends them.
func ContextHash(raw datatypes.RawContext) (string, error) {
	h, err := hashstructure.Hash(raw, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash context: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// GetDecoratedCdt returns the decorated context for a raw submission,
// reusing the decoration of an existing session when the same context
// was seen before.
func (e *Engine) GetDecoratedCdt(ctx context.Context, raw datatypes.RawContext) (*DecoratedContext, error) {
	contextHash, err := ContextHash(raw)
	if err != nil {
		return nil, err
	}

	cached, err := e.sessions.Load(ctx, contextHash)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		e.logger.Debug("reusing session decoration", "contextHash", contextHash)
		decorated := cached.DecoratedCDT
		return &DecoratedContext{
			Decorated:    &decorated,
			ContextHash:  contextHash,
			ConnectionID: cached.ConnectionID,
		}, nil
	}

	decorated, err := e.decorator.Decorate(ctx, raw)
	if err != nil {
		return nil, err
	}
	connectionID := uuid.NewString()
	stub := &datatypes.Session{DecoratedCDT: *decorated, ConnectionID: connectionID}
	if err := e.sessions.Save(ctx, contextHash, stub); err != nil {
		return nil, err
	}
	return &DecoratedContext{
		Decorated:    decorated,
		ContextHash:  contextHash,
		ConnectionID: connectionID,
	}, nil
}

// GetPrimaryData serves one page of primary results for a raw context.
func (e *Engine) GetPrimaryData(ctx context.Context, userID string, raw datatypes.RawContext, args datatypes.PageArgs) (*session.Page, error) {
	dc, err := e.GetDecoratedCdt(ctx, raw)
	if err != nil {
		return nil, err
	}
	return e.sessions.FetchPage(ctx, userID, dc.ContextHash, dc.Decorated, dc.ConnectionID, args)
}

// GetSupportData returns the support links for a raw context.
func (e *Engine) GetSupportData(ctx context.Context, raw datatypes.RawContext) ([]datatypes.SupportLink, error) {
	dc, err := e.GetDecoratedCdt(ctx, raw)
	if err != nil {
		return nil, err
	}
	return e.support.SelectServices(ctx, dc.Decorated)
}

// Login delegates to the account service.
func (e *Engine) Login(ctx context.Context, mail, password string) (*datatypes.User, error) {
	return e.accounts.Login(ctx, mail, password)
}

// GetPersonalData delegates to the account service.
func (e *Engine) GetPersonalData(ctx context.Context, mail, token string) (*users.PersonalData, error) {
	return e.accounts.GetPersonalData(ctx, mail, token)
}
