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
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
)

// LoginRequest carries account credentials.
type LoginRequest struct {
	Mail     string `json:"mail" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an account and returns a fresh session token.
func Login(pipeline Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Login")
		defer span.End()

		var req LoginRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			recordRequest(observability.EndpointLogin, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		user, err := pipeline.Login(ctx, req.Mail, req.Password)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			// Do not log the mail of failed attempts at error level.
			slog.Info("Login attempt rejected")
			recordRequest(observability.EndpointLogin, false)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		recordRequest(observability.EndpointLogin, true)
		c.JSON(http.StatusOK, gin.H{
			"id":    user.ID,
			"mail":  user.Mail,
			"token": user.Token,
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// PersonalData returns the CDT and mashup schemas of the authenticated
// account. The caller identifies itself with the mail query parameter
// and the bearer token issued at login.
func PersonalData(pipeline Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "PersonalData")
		defer span.End()

		mail := c.Query("mail")
		token := bearerToken(c)
		if mail == "" || token == "" {
			recordRequest(observability.EndpointPersonal, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing mail or bearer token"})
			return
		}

		data, err := pipeline.GetPersonalData(ctx, mail, token)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Info("Personal data request rejected")
			recordRequest(observability.EndpointPersonal, false)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		recordRequest(observability.EndpointPersonal, true)
		c.JSON(http.StatusOK, data)
	}
}
