package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartrecipe/backend/config"
	"github.com/smartrecipe/backend/internal/api"
	"github.com/smartrecipe/backend/internal/metrics"
	"github.com/smartrecipe/backend/internal/service"
	"github.com/smartrecipe/backend/internal/testhelpers"
)

func newTestServer(t *testing.T, rdb *redis.Client) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.NewTestDB(t)
	logger := zap.NewNop()
	handler := api.NewHandler(api.Services{
		Recipes: service.NewRecipeService(db, nil, logger),
		Library: service.NewLibraryService(db, logger),
		Reviews: service.NewReviewService(db, logger),
		Users:   service.NewUserService(db, logger),
	}, logger)

	cfg := &config.Config{
		Environment: config.Test,
		ServerHost:  "localhost",
		ServerPort:  "8080",
		CORSOrigins: []string{"http://localhost:5173"},
	}
	return New(cfg, Dependencies{
		DB:        db,
		Redis:     rdb,
		Handler:   handler,
		Validator: service.NewJWTVerifier(testhelpers.TestJWTSecret),
		Metrics:   metrics.New(),
	}, logger)
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Run("should report the database", func(t *testing.T) {
		s := newTestServer(t, nil)

		w := get(s, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","database":"ok"}`, w.Body.String())
	})

	t.Run("should report redis without failing", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { rdb.Close() })
		s := newTestServer(t, rdb)

		w := get(s, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","database":"ok","redis":"ok"}`, w.Body.String())

		mr.SetError("ERR down")
		w = get(s, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
	})
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(s, "/api/v1/recipes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = get(s, "/api/v1/users/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/recipes",status_code="200"} 1`)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/recipes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
