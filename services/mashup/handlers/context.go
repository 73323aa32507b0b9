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

// DecorateContext resolves a raw context against its CDT schema and
// returns the decorated node lists together with the session identifiers.
func DecorateContext(pipeline Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "DecorateContext")
		defer span.End()

		var raw datatypes.RawContext
		if err := c.BindJSON(&raw); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the decorate request", "error", err)
			recordRequest(observability.EndpointDecorate, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		decorated, err := pipeline.GetDecoratedCdt(ctx, raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Context decoration failed", "idCdt", raw.CdtID, "error", err)
			recordRequest(observability.EndpointDecorate, false)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		recordRequest(observability.EndpointDecorate, true)
		c.JSON(http.StatusOK, decorated)
	}
}
