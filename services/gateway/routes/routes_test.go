// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// Tests for gateway route registration

package routes

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/DergiChat/services/gateway/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStore struct{}

func (stubStore) GetObject(_ context.Context, key string) (*storage.Object, error) {
	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
}

func (stubStore) PresignGetObject(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

func newTestRouter() *gin.Engine {
	router := gin.New()
	SetupRoutes(router, stubStore{}, "halkla", nil, nil)
	return router
}

func TestSetupRoutes_RegistersAllEndpoints(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/user", "", http.StatusOK},
		{http.MethodOptions, "/api/download", "", http.StatusOK},
		{http.MethodOptions, "/api/download-redirect", "", http.StatusOK},
		{http.MethodPost, "/api/download-redirect", `{"filename":"a.pdf"}`, http.StatusOK},
		{http.MethodGet, "/api/download", "", http.StatusNotFound},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		if tc.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		router.ServeHTTP(w, req)

		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSetupRoutes_CORSHeadersPresent(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.Header.Set("Origin", "https://front-end.example.com")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_PreflightOptionsBody(t *testing.T) {
	router := newTestRouter()

	// A bare OPTIONS without preflight headers reaches the route handler.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/download", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}
