// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
)

// PrimaryDataRequest is a raw context plus cursor pagination arguments.
// UserID distinguishes readers sharing the same context session.
type PrimaryDataRequest struct {
	datatypes.RawContext
	datatypes.PageArgs
	UserID string `json:"userId,omitempty"`
}

// PrimaryData serves one page of aggregated primary results for a raw
// context.
func PrimaryData(pipeline Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "PrimaryData")
		defer span.End()

		var req PrimaryDataRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the primary data request", "error", err)
			recordRequest(observability.EndpointPrimary, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		page, err := pipeline.GetPrimaryData(ctx, req.UserID, req.RawContext, req.PageArgs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Primary data fetch failed", "idCdt", req.CdtID, "error", err)
			recordRequest(observability.EndpointPrimary, false)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		recordRequest(observability.EndpointPrimary, true)
		c.JSON(http.StatusOK, page)
	}
}

// SupportData returns the composed support service links for a raw
// context.
func SupportData(pipeline Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "SupportData")
		defer span.End()

		var raw datatypes.RawContext
		if err := c.BindJSON(&raw); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the support data request", "error", err)
			recordRequest(observability.EndpointSupport, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		links, err := pipeline.GetSupportData(ctx, raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Support data fetch failed", "idCdt", raw.CdtID, "error", err)
			recordRequest(observability.EndpointSupport, false)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		recordRequest(observability.EndpointSupport, true)
		c.JSON(http.StatusOK, gin.H{"support": links})
	}
}
