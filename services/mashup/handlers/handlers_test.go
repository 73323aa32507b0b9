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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMashup/services/mashup/datatypes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/decorator"
	"github.com/AleutianAI/AleutianMashup/services/mashup/execution"
	"github.com/AleutianAI/AleutianMashup/services/mashup/session"
	"github.com/AleutianAI/AleutianMashup/services/mashup/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePipeline is a canned-response Pipeline for handler tests.
type fakePipeline struct {
	decorated *execution.DecoratedContext
	page      *session.Page
	links     []datatypes.SupportLink
	user      *datatypes.User
	personal  *users.PersonalData
	err       error

	gotUserID string
	gotArgs   datatypes.PageArgs
	gotMail   string
	gotToken  string
}

func (f *fakePipeline) GetDecoratedCdt(_ context.Context, _ datatypes.RawContext) (*execution.DecoratedContext, error) {
	return f.decorated, f.err
}

func (f *fakePipeline) GetPrimaryData(_ context.Context, userID string, _ datatypes.RawContext, args datatypes.PageArgs) (*session.Page, error) {
	f.gotUserID = userID
	f.gotArgs = args
	return f.page, f.err
}

func (f *fakePipeline) GetSupportData(_ context.Context, _ datatypes.RawContext) ([]datatypes.SupportLink, error) {
	return f.links, f.err
}

func (f *fakePipeline) Login(_ context.Context, mail, _ string) (*datatypes.User, error) {
	f.gotMail = mail
	return f.user, f.err
}

func (f *fakePipeline) GetPersonalData(_ context.Context, mail, token string) (*users.PersonalData, error) {
	f.gotMail = mail
	f.gotToken = token
	return f.personal, f.err
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func rawContextBody() map[string]any {
	return map[string]any{
		"idCdt": "cdt1",
		"context": []map[string]any{
			{"dimension": "InterestTopic", "value": "Restaurant"},
		},
	}
}

// =============================================================================
// DecorateContext Tests
// =============================================================================

func TestDecorateContext_ReturnsDecoration(t *testing.T) {
	pipeline := &fakePipeline{
		decorated: &execution.DecoratedContext{
			Decorated: &datatypes.DecoratedCDT{
				ID:          "cdt1",
				FilterNodes: []datatypes.ContextNode{{Name: "InterestTopic", Value: "Restaurant"}},
			},
			ContextHash:  "abc123",
			ConnectionID: "conn1",
		},
	}
	router := gin.New()
	router.POST("/v1/context/decorate", DecorateContext(pipeline))

	w := postJSON(router, "/v1/context/decorate", rawContextBody())

	require.Equal(t, http.StatusOK, w.Code)
	var response execution.DecoratedContext
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "abc123", response.ContextHash)
	assert.Equal(t, "conn1", response.ConnectionID)
	require.NotNil(t, response.Decorated)
	assert.Equal(t, "cdt1", response.Decorated.ID)
}

func TestDecorateContext_RejectsInvalidBody(t *testing.T) {
	router := gin.New()
	router.POST("/v1/context/decorate", DecorateContext(&fakePipeline{}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/context/decorate", bytes.NewReader([]byte("not json")))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecorateContext_MapsSchemaNotFound(t *testing.T) {
	pipeline := &fakePipeline{err: decorator.ErrSchemaNotFound}
	router := gin.New()
	router.POST("/v1/context/decorate", DecorateContext(pipeline))

	w := postJSON(router, "/v1/context/decorate", rawContextBody())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecorateContext_MapsEmptyContext(t *testing.T) {
	pipeline := &fakePipeline{err: decorator.ErrNoItemsSelected}
	router := gin.New()
	router.POST("/v1/context/decorate", DecorateContext(pipeline))

	w := postJSON(router, "/v1/context/decorate", rawContextBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// PrimaryData Tests
// =============================================================================

func TestPrimaryData_ServesPage(t *testing.T) {
	pipeline := &fakePipeline{
		page: &session.Page{
			Items: []datatypes.Item{
				{Attributes: map[string]any{"title": "Trattoria"}, Meta: datatypes.ItemMeta{Names: []string{"yelp"}, Rank: 4}},
			},
			NextCursor:   "1",
			HasMore:      true,
			ConnectionID: "conn1",
		},
	}
	router := gin.New()
	router.POST("/v1/data/primary", PrimaryData(pipeline))

	body := rawContextBody()
	body["first"] = 5
	body["after"] = "0"
	body["userId"] = "u1"
	w := postJSON(router, "/v1/data/primary", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", pipeline.gotUserID)
	assert.Equal(t, 5, pipeline.gotArgs.First)
	assert.Equal(t, "0", pipeline.gotArgs.After)

	var page session.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.NextCursor)
	assert.True(t, page.HasMore)
}

func TestPrimaryData_MapsInvalidCursor(t *testing.T) {
	pipeline := &fakePipeline{err: session.ErrInvalidCursor}
	router := gin.New()
	router.POST("/v1/data/primary", PrimaryData(pipeline))

	w := postJSON(router, "/v1/data/primary", rawContextBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// SupportData Tests
// =============================================================================

func TestSupportData_ReturnsLinks(t *testing.T) {
	pipeline := &fakePipeline{
		links: []datatypes.SupportLink{
			{Category: "Transport", Service: "atm", URL: "http://atm/go?t=PublicTransport"},
		},
	}
	router := gin.New()
	router.POST("/v1/data/support", SupportData(pipeline))

	w := postJSON(router, "/v1/data/support", rawContextBody())

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Support []datatypes.SupportLink `json:"support"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Support, 1)
	assert.Equal(t, "atm", response.Support[0].Service)
}

// =============================================================================
// Account Tests
// =============================================================================

func TestLogin_ReturnsToken(t *testing.T) {
	pipeline := &fakePipeline{
		user: &datatypes.User{ID: "u1", Mail: "ada@example.com", Token: "t1"},
	}
	router := gin.New()
	router.POST("/v1/login", Login(pipeline))

	w := postJSON(router, "/v1/login", map[string]string{
		"mail":     "ada@example.com",
		"password": "hunter2",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "t1", response["token"])
	assert.Equal(t, "ada@example.com", pipeline.gotMail)
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	pipeline := &fakePipeline{err: users.ErrInvalidCredentials}
	router := gin.New()
	router.POST("/v1/login", Login(pipeline))

	w := postJSON(router, "/v1/login", map[string]string{
		"mail":     "ada@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_RequiresMailAndPassword(t *testing.T) {
	router := gin.New()
	router.POST("/v1/login", Login(&fakePipeline{}))

	w := postJSON(router, "/v1/login", map[string]string{"mail": "not-a-mail"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonalData_ReadsBearerToken(t *testing.T) {
	pipeline := &fakePipeline{
		personal: &users.PersonalData{CDT: &datatypes.CDT{ID: "personal-cdt"}},
	}
	router := gin.New()
	router.GET("/v1/personal", PersonalData(pipeline))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/personal?mail=ada@example.com", nil)
	req.Header.Set("Authorization", "Bearer t1")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", pipeline.gotMail)
	assert.Equal(t, "t1", pipeline.gotToken)
}

func TestPersonalData_RejectsMissingToken(t *testing.T) {
	router := gin.New()
	router.GET("/v1/personal", PersonalData(&fakePipeline{}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/personal?mail=ada@example.com", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPersonalData_MapsInvalidToken(t *testing.T) {
	pipeline := &fakePipeline{err: users.ErrInvalidToken}
	router := gin.New()
	router.GET("/v1/personal", PersonalData(pipeline))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/personal?mail=ada@example.com", nil)
	req.Header.Set("Authorization", "Bearer forged")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck_ReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}
