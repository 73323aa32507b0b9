// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers exposes the mashup pipeline over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/decorator"
	"github.com/AleutianAI/AleutianMashup/services/mashup/execution"
	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
	"github.com/AleutianAI/AleutianMashup/services/mashup/selection"
	"github.com/AleutianAI/AleutianMashup/services/mashup/session"
	"github.com/AleutianAI/AleutianMashup/services/mashup/users"
)

var tracer = otel.Tracer("aleutian.mashup.handlers")

// Pipeline is the engine surface the handlers call. Satisfied by
// *execution.Engine.
type Pipeline interface {
	GetDecoratedCdt(ctx context.Context, raw datatypes.RawContext) (*execution.DecoratedContext, error)
	GetPrimaryData(ctx context.Context, userID string, raw datatypes.RawContext, args datatypes.PageArgs) (*session.Page, error)
	GetSupportData(ctx context.Context, raw datatypes.RawContext) ([]datatypes.SupportLink, error)
	Login(ctx context.Context, mail, password string) (*datatypes.User, error)
	GetPersonalData(ctx context.Context, mail, token string) (*users.PersonalData, error)
}

// statusFor maps pipeline errors to HTTP status codes. Anything
// unrecognized is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, decorator.ErrSchemaNotFound):
		return http.StatusNotFound
	case errors.Is(err, decorator.ErrNoItemsSelected),
		errors.Is(err, decorator.ErrInvalidCategory),
		errors.Is(err, selection.ErrNoFilterNodesSelected),
		errors.Is(err, session.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// recordRequest records the request outcome when metrics are initialized.
func recordRequest(endpoint observability.Endpoint, success bool) {
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.RecordRequest(endpoint, success)
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
