package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oficina/internal/core/id"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/pkg/logger"
)

// DefaultChannel carries relayed outbox events between the worker and API processes.
const DefaultChannel = "oficina:live"

// FromOutbox converts a relayed outbox row into a dashboard message.
func FromOutbox(msg *postgres.OutboxMessage) Message {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Message{
		GarageID:    msg.GarageID,
		Type:        msg.EventType,
		AggregateID: msg.AggregateID,
		Payload:     payload,
		OccurredAt:  msg.CreatedAt,
	}
}

// envelope keeps the garage on the wire between processes.
type envelope struct {
	Message
	Garage string `json:"garageId"`
}

// RedisPublisher is the worker side: it implements postgres.OutboxHandler.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher publishes relayed events on channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Handle implements postgres.OutboxHandler.
func (p *RedisPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	m := FromOutbox(msg)
	data, err := json.Marshal(envelope{Message: m, Garage: m.GarageID.String()})
	if err != nil {
		return fmt.Errorf("marshal live message: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish live message: %w", err)
	}
	return nil
}

// HubHandler is the single-process side: relayed events go straight to the hub.
type HubHandler struct {
	hub *Hub
}

// NewHubHandler creates an outbox handler that broadcasts locally.
func NewHubHandler(hub *Hub) *HubHandler {
	return &HubHandler{hub: hub}
}

// Handle implements postgres.OutboxHandler.
func (h *HubHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	return h.hub.Broadcast(FromOutbox(msg))
}

// Subscriber is the API side: it forwards channel messages to the hub.
type Subscriber struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
}

// NewSubscriber creates a subscriber feeding hub.
func NewSubscriber(client redis.UniversalClient, channel string, hub *Hub) *Subscriber {
	return &Subscriber{client: client, channel: channel, hub: hub}
}

// Run blocks until ctx is done, resubscribing after connection loss.
func (s *Subscriber) Run(ctx context.Context) {
	log := logger.FromContext(ctx).WithComponent("live")
	for ctx.Err() == nil {
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("live subscription lost", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Subscriber) consume(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("channel %s closed", s.channel)
			}
			s.dispatch(ctx, m.Payload)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logger.Warn(ctx, "malformed live message", "error", err)
		return
	}
	garage, err := id.ParseRequired(env.Garage)
	if err != nil {
		logger.Warn(ctx, "live message without garage", "error", err)
		return
	}
	env.Message.GarageID = garage
	_ = s.hub.Broadcast(env.Message)
}
