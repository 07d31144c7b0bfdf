package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/infrastructure/http/v1/dto"
	"oficina/internal/infrastructure/http/v1/middleware"
	"oficina/internal/infrastructure/ratelimit"
	"oficina/internal/infrastructure/storage/postgres"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokens map[string]*appctx.UserContext

func (t tokens) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type garages struct {
	byID map[id.ID]*tenant.Garage
	err  error
}

func (g *garages) GetByID(_ context.Context, garageID id.ID) (*tenant.Garage, error) {
	if g.err != nil {
		return nil, g.err
	}
	if found, ok := g.byID[garageID]; ok {
		return found, nil
	}
	return nil, tenant.ErrGarageNotFound
}

func (g *garages) Create(_ context.Context, garage *tenant.Garage) error {
	g.byID[garage.ID] = garage
	return nil
}

func (g *garages) SetStatus(_ context.Context, garageID id.ID, status tenant.Status) error {
	g.byID[garageID].Status = status
	return nil
}

type recordingStore struct {
	replay    *postgres.IdempotencyReplay
	acquired  []string
	released  []string
	completed map[string]int
	bodies    map[string]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{completed: map[string]int{}, bodies: map[string]string{}}
}

func (s *recordingStore) AcquireKey(_ context.Context, key, _, _, _ string) (*postgres.IdempotencyReplay, error) {
	s.acquired = append(s.acquired, key)
	return s.replay, nil
}

func (s *recordingStore) CompleteKey(_ context.Context, key string, status int, _ string, body []byte) error {
	s.completed[key] = status
	s.bodies[key] = string(body)
	return nil
}

func (s *recordingStore) ReleaseKey(_ context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis down")
}

func serve(r *gin.Engine, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	garageID := id.New()
	validator := tokens{
		"good":     {UserID: "u-1", GarageID: garageID.String()},
		"orphaned": {UserID: "u-2"},
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Auth(validator))
	r.GET("/me", func(c *gin.Context) {
		g, err := tenant.RequireGarage(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"garage": g.String(), "user": appctx.GetUserID(c.Request.Context())})
	})

	t.Run("missing header", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, errorCode(t, w))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/me", "", "", "Authorization", "Basic Z29vZA==")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/me", "forged", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without garage", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/me", "orphaned", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("scoped to claimed garage", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/me", "good", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"garage":"`+garageID.String()+`","user":"u-1"}`, w.Body.String())
	})
}

func TestActiveGarage(t *testing.T) {
	active, suspended, unknown := id.New(), id.New(), id.New()
	registry := &garages{byID: map[id.ID]*tenant.Garage{
		active:    {ID: active, Slug: "centro", Status: tenant.StatusActive},
		suspended: {ID: suspended, Slug: "norte", Status: tenant.StatusSuspended},
	}}
	validator := tokens{
		"active":    {UserID: "u-1", GarageID: active.String()},
		"suspended": {UserID: "u-2", GarageID: suspended.String()},
		"unknown":   {UserID: "u-3", GarageID: unknown.String()},
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Auth(validator), middleware.ActiveGarage(registry))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "active", "").Code)

	w := serve(r, http.MethodGet, "/ping", "suspended", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeForbidden, errorCode(t, w))

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/ping", "unknown", "").Code)

	registry.err = errors.New("connection refused")
	w = serve(r, http.MethodGet, "/ping", "active", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Trace(), middleware.ErrorHandler())
	r.GET("/business", func(c *gin.Context) {
		_ = c.Error(apperror.NewInsufficientStock("Filtro de óleo", 1, 3))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("driver: bad connection"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("nil map")
	})

	t.Run("app error keeps code and details", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/business", "", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apperror.CodeInsufficientStock, resp.Error.Code)
		assert.EqualValues(t, 1, resp.Error.Details["available"])
		assert.EqualValues(t, 3, resp.Error.Details["requested"])
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/plain", "", "", middleware.HeaderRequestID, "req-42")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "bad connection")
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apperror.CodeInternal, resp.Error.Code)
		assert.Equal(t, "req-42", resp.Error.Details["request_id"])
	})

	t.Run("panic becomes 500", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/panic", "", "", middleware.HeaderRequestID, "req-43")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apperror.CodeInternal, errorCode(t, w))
		assert.Equal(t, "req-43", w.Header().Get(middleware.HeaderRequestID))
	})
}

func TestIdempotency(t *testing.T) {
	store := newRecordingStore()

	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.Idempotency(store))
	r.POST("/parts/create", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"result": gin.H{"code": "FLT-01"}})
	})
	r.POST("/parts/remove", func(c *gin.Context) {
		_ = c.Error(apperror.NewPartInUse("p-1", 2))
	})
	r.GET("/parts", func(c *gin.Context) { c.String(http.StatusOK, "list") })

	t.Run("written response is stored", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/parts/create", "", `{"code":"FLT-01"}`, middleware.HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, http.StatusCreated, store.completed["k-1"])
		assert.JSONEq(t, `{"result":{"code":"FLT-01"}}`, store.bodies["k-1"])
	})

	t.Run("error rendered later releases the key", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/parts/remove", "", `{"id":"p-1"}`, middleware.HeaderIdempotencyKey, "k-2")
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, store.released, "k-2")
		assert.NotContains(t, store.completed, "k-2")
	})

	t.Run("reads and keyless writes bypass the store", func(t *testing.T) {
		before := len(store.acquired)
		serve(r, http.MethodGet, "/parts", "", "", middleware.HeaderIdempotencyKey, "k-3")
		serve(r, http.MethodPost, "/parts/create", "", `{}`)
		assert.Len(t, store.acquired, before)
	})

	t.Run("stored response is replayed", func(t *testing.T) {
		store.replay = &postgres.IdempotencyReplay{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json; charset=utf-8",
			Body:        []byte(`{"result":{"code":"cached"}}`),
		}
		defer func() { store.replay = nil }()

		w := serve(r, http.MethodPost, "/parts/create", "", `{"code":"FLT-01"}`, middleware.HeaderIdempotencyKey, "k-1")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(t, `{"result":{"code":"cached"}}`, w.Body.String())
	})
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/approval/:token", middleware.Public(), middleware.RateLimit(brokenLimiter{}, "approval"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodGet, "/approval/abc", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
}
