package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
	"oficina/internal/infrastructure/http/v1/middleware"
	"oficina/internal/infrastructure/storage/postgres"
)

func TestHub_BroadcastReachesOnlyItsGarage(t *testing.T) {
	hub := NewHub()
	g1, g2 := id.New(), id.New()

	a := hub.subscribe(g1)
	b := hub.subscribe(g2)

	require.NoError(t, hub.Broadcast(Message{GarageID: g1, Type: "service_order.status_changed", AggregateID: id.New()}))

	select {
	case data := <-a.send:
		assert.Contains(t, string(data), "service_order.status_changed")
	default:
		t.Fatal("garage client did not receive the message")
	}
	assert.Empty(t, b.send)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	g := id.New()
	c := hub.subscribe(g)

	for i := 0; i < sendBuffer+1; i++ {
		require.NoError(t, hub.Broadcast(Message{GarageID: g, Type: "x"}))
	}

	assert.Equal(t, 0, hub.ClientCount(g))
	for range c.send {
		// drained until closed
	}
}

func TestFromOutbox(t *testing.T) {
	g, agg := id.New(), id.New()
	m := FromOutbox(&postgres.OutboxMessage{
		GarageID:    g,
		AggregateID: agg,
		EventType:   "service_order.budget_decided",
		Payload:     []byte(`{"decision":"approved"}`),
	})

	assert.Equal(t, g, m.GarageID)
	assert.Equal(t, agg, m.AggregateID)
	assert.JSONEq(t, `{"decision":"approved"}`, string(m.Payload))

	empty := FromOutbox(&postgres.OutboxMessage{GarageID: g})
	assert.Equal(t, "null", string(empty.Payload))
}

type staticValidator struct {
	user *appctx.UserContext
}

func (v staticValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if token != "good" {
		return nil, apperror.NewUnauthorized("invalid token")
	}
	return v.user, nil
}

func TestHandler_StreamsGarageEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	g := id.New()
	h := NewHandler(hub, staticValidator{user: &appctx.UserContext{UserID: "u1", GarageID: g.String()}}, nil)

	r := gin.New()
	r.GET("/ws", h.Serve)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(g) == 1 }, time.Second, 10*time.Millisecond)

	orderID := id.New()
	require.NoError(t, hub.Broadcast(Message{
		GarageID:    g,
		Type:        "service_order.status_changed",
		AggregateID: orderID,
		Payload:     json.RawMessage(`{"to":"em_andamento"}`),
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "service_order.status_changed", got["type"])
	assert.Equal(t, orderID.String(), got["aggregateId"])
}

func TestHandler_RejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(), staticValidator{}, nil)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/ws", h.Serve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=bad", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeUnauthorized)
}
