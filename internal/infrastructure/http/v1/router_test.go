package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx/txtest"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/inventory/inventorytest"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/domain/serviceorder/serviceordertest"
	v1 "oficina/internal/infrastructure/http/v1"
	"oficina/internal/infrastructure/http/v1/handlers"
	"oficina/internal/infrastructure/ratelimit"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/pkg/logger"
)

const staffToken = "staff-token"

type stubValidator struct {
	user *appctx.UserContext
}

func (v stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if token != staffToken {
		return nil, errors.New("bad token")
	}
	return v.user, nil
}

// memIdempotency keeps completed responses in memory.
type memIdempotency struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string]*postgres.IdempotencyReplay
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{
		pending: make(map[string]bool),
		done:    make(map[string]*postgres.IdempotencyReplay),
	}
}

func (m *memIdempotency) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.done[key]; ok {
		return r, nil
	}
	if m.pending[key] {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	m.pending[key] = true
	return nil, nil
}

func (m *memIdempotency) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	m.done[key] = &postgres.IdempotencyReplay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

func (m *memIdempotency) ReleaseKey(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	return nil
}

// quota allows a fixed number of calls per key.
type quota struct {
	mu    sync.Mutex
	limit int
	used  map[string]int
}

func (q *quota) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used == nil {
		q.used = make(map[string]int)
	}
	q.used[key]++
	if q.used[key] > q.limit {
		return ratelimit.Decision{Allowed: false, RetryAfter: 30 * time.Second}, nil
	}
	return ratelimit.Decision{Allowed: true, Remaining: q.limit - q.used[key]}, nil
}

type apiFixture struct {
	t        *testing.T
	server   http.Handler
	garage   tenant.GarageID
	vehicles *serviceordertest.Vehicles
	parts    *inventorytest.Store
}

func newAPIFixture(t *testing.T, limiter ratelimit.Limiter) *apiFixture {
	t.Helper()
	parts := inventorytest.NewStore()
	orders := serviceordertest.NewStore()
	txm := txtest.NewManager(parts, orders)
	vehicles := serviceordertest.NewVehicles()

	g, err := tenant.NewGarageID(id.New())
	require.NoError(t, err)

	inv := inventory.NewService(parts, txm, nil, nil)
	so := serviceorder.NewService(orders, vehicles, inv, txm, &numerator.MockGenerator{},
		serviceorder.Config{PublicBaseURL: "https://oficina.example/"})

	router := v1.NewRouter(v1.RouterConfig{
		Logger: logger.Nop(),
		JWTValidator: stubValidator{user: &appctx.UserContext{
			UserID:   id.New().String(),
			GarageID: g.String(),
			Email:    "staff@oficina.example",
		}},
		InventoryService:    inv,
		ServiceOrderService: so,
		IdempotencyStore:    newMemIdempotency(),
		PublicLimiter:       limiter,
		HealthChecks: map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(context.Context) error { return nil }),
		},
	})

	return &apiFixture{t: t, server: router, garage: g, vehicles: vehicles, parts: parts}
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (f *apiFixture) do(method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (f *apiFixture) staff(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	return f.do(method, path, body, map[string]string{"Authorization": "Bearer " + staffToken})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (f *apiFixture) createPart(code string, stock int) string {
	f.t.Helper()
	w, env := f.staff(http.MethodPost, "/api/v1/parts/create", map[string]any{
		"code": code, "name": "Part " + code, "costPrice": "10", "sellingPrice": "20",
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	partID := decode[struct {
		ID string `json:"id"`
	}](f.t, env.Result).ID

	if stock > 0 {
		w, _ = f.staff(http.MethodPost, "/api/v1/inventory-entries/create", map[string]any{
			"partId": partID, "quantity": stock, "costPrice": "10", "sellingPrice": "20",
		})
		require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	}
	return partID
}

func TestRouter_Health(t *testing.T) {
	f := newAPIFixture(t, nil)

	w, _ := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newAPIFixture(t, nil)

	w, env := f.do(http.MethodGet, "/api/v1/parts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeUnauthorized, env.Error.Code)

	w, _ = f.do(http.MethodGet, "/api/v1/parts", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_StockFlow(t *testing.T) {
	f := newAPIFixture(t, nil)
	partID := f.createPart("FLT-01", 5)

	w, env := f.staff(http.MethodGet, "/api/v1/parts/"+partID+"/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	level := decode[inventory.StockLevel](t, env.Result)
	assert.Equal(t, 5, level.CurrentStock)

	w, env = f.staff(http.MethodPost, "/api/v1/inventory-entries/create-exit", map[string]any{
		"partId": partID, "quantity": 8, "description": "workshop use",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeInsufficientStock, env.Error.Code)

	w, _ = f.staff(http.MethodPost, "/api/v1/inventory-entries/create-exit", map[string]any{
		"partId": partID, "quantity": 2, "exitType": "loss",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	_, env = f.staff(http.MethodGet, "/api/v1/parts/"+partID+"/stock", nil)
	assert.Equal(t, 3, decode[inventory.StockLevel](t, env.Result).CurrentStock)

	w, env = f.staff(http.MethodPost, "/api/v1/parts/remove", map[string]any{"id": partID})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodePartInUse, env.Error.Code)
}

func TestRouter_InvalidIdentifier(t *testing.T) {
	f := newAPIFixture(t, nil)

	w, env := f.staff(http.MethodGet, "/api/v1/parts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeValidation, env.Error.Code)
}

func TestRouter_IdempotentReplay(t *testing.T) {
	f := newAPIFixture(t, nil)
	headers := map[string]string{
		"Authorization":   "Bearer " + staffToken,
		"Idempotency-Key": "create-part-1",
	}
	body := map[string]any{"code": "OIL-5W30", "name": "Oil 5W30"}

	first, _ := f.do(http.MethodPost, "/api/v1/parts/create", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second, _ := f.do(http.MethodPost, "/api/v1/parts/create", body, headers)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	_, env := f.staff(http.MethodGet, "/api/v1/parts", nil)
	list := decode[struct {
		TotalCount int64 `json:"totalCount"`
	}](t, env.Result)
	assert.EqualValues(t, 1, list.TotalCount)
}

func TestRouter_ApprovalLinkFlow(t *testing.T) {
	f := newAPIFixture(t, nil)
	partID := f.createPart("PAD-01", 10)
	vehicleID := f.vehicles.Add(f.garage, "ABC1D23", nil)

	w, env := f.staff(http.MethodPost, "/api/v1/service-orders/create", map[string]any{
		"vehicleId":       vehicleID.String(),
		"reportedProblem": "brakes squeaking",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[serviceorder.ServiceOrder](t, env.Result)
	assert.Equal(t, serviceorder.StatusOpened, order.Status)

	w, _ = f.staff(http.MethodPost, "/api/v1/service-orders/diagnostic", map[string]any{
		"id":                      order.ID.String(),
		"estimatedCompletionDate": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"requiredParts": []map[string]any{{
			"description": "brake pad", "quantity": 2, "unitPrice": "20",
			"partId": partID, "fromInventory": true,
		}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = f.staff(http.MethodPost, "/api/v1/service-orders/budget/generate-approval-link",
		map[string]any{"serviceOrderId": order.ID.String()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	link := decode[serviceorder.ApprovalLink](t, env.Result)
	require.NotEmpty(t, link.Token)

	// Token endpoints need no credentials.
	w, _ = f.do(http.MethodGet, "/api/v1/service-orders/budget/approval-details/"+link.Token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"orderNumber"`)
	assert.NotContains(t, w.Body.String(), "garageId")
	assert.NotContains(t, w.Body.String(), order.ID.String())

	w, env = f.do(http.MethodPost, "/api/v1/service-orders/budget/approve-external",
		map[string]any{"token": link.Token}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decided := decode[struct {
		Status serviceorder.Status `json:"status"`
	}](t, env.Result)
	assert.Equal(t, serviceorder.StatusApproved, decided.Status)

	w, env = f.do(http.MethodPost, "/api/v1/service-orders/budget/reject-external",
		map[string]any{"token": link.Token, "reason": "too expensive"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeAlreadyDecided, env.Error.Code)

	w, env = f.staff(http.MethodPost, "/api/v1/service-orders/status/update", map[string]any{
		"id": order.ID.String(), "status": "em_andamento",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, env = f.staff(http.MethodGet, "/api/v1/parts/"+partID+"/stock", nil)
	assert.Equal(t, 8, decode[inventory.StockLevel](t, env.Result).CurrentStock)
}

func TestRouter_UnknownApprovalToken(t *testing.T) {
	f := newAPIFixture(t, nil)

	w, env := f.do(http.MethodGet, "/api/v1/service-orders/budget/approval-details/deadbeef", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeLinkNotFound, env.Error.Code)
}

func TestRouter_PublicRateLimit(t *testing.T) {
	f := newAPIFixture(t, &quota{limit: 2})
	path := "/api/v1/service-orders/budget/approval-details/deadbeef"

	for i := 0; i < 2; i++ {
		w, _ := f.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	w, env := f.do(http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, apperror.CodeRateLimited, env.Error.Code)

	// Staff routes are not throttled.
	w, _ = f.staff(http.MethodGet, "/api/v1/parts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
