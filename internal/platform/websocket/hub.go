// Package websocket serves the live-update channel. Connected staff are
// tracked by a hub under two topics each, their own user topic and their
// role topic, and messages are fanned out per topic.
package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/platform/metrics"
)

const (
	TypeConnectionEstablished = "connection_established"
	TypeEcho                  = "echo"
)

// Message is the JSON document pushed to desk clients.
type Message struct {
	Type      string          `json:"type"`
	Title     string          `json:"title,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher delivers a message to every client subscribed to topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

func UserTopic(userID string) string { return "user:" + userID }

func RoleTopic(role string) string { return "role:" + role }

// Client is one live connection of an authenticated staff member.
type Client struct {
	ID     string
	UserID string
	Role   string
	Topics []string
	Send   chan []byte
}

// Stats is the snapshot served by GET /ws/stats.
type Stats struct {
	TotalConnections  int            `json:"total_connections"`
	UsersOnline       []string       `json:"users_online"`
	ConnectionsByRole map[string]int `json:"connections_by_role"`
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client and subscribes it to its topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
	metrics.LiveConnections.WithLabelValues(client.Role).Inc()

	h.logger.Info().
		Str("client_id", client.ID).
		Str("user_id", client.UserID).
		Str("role", client.Role).
		Int("connections", len(h.all)).
		Msg("live client connected")
}

// Unregister removes a client from every topic and closes its Send
// channel. Unregistering twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
	metrics.LiveConnections.WithLabelValues(client.Role).Dec()

	h.logger.Info().
		Str("client_id", client.ID).
		Str("user_id", client.UserID).
		Int("connections", len(h.all)).
		Msg("live client disconnected")
}

// Broadcast sends msg to every subscriber of topic. A client whose buffer
// is full misses the message rather than stalling the others.
func (h *Hub) Broadcast(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("marshal live message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			metrics.LiveMessagesDropped.Inc()
			h.logger.Warn().Str("client_id", client.ID).Str("type", msg.Type).Msg("live client buffer full, message dropped")
		}
	}
}

// Publish stamps msg and broadcasts it on this instance.
func (h *Hub) Publish(_ context.Context, topic string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	metrics.IncrementLiveMessage(msg.Type)
	h.Broadcast(topic, msg)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Stats{
		TotalConnections:  len(h.all),
		UsersOnline:       []string{},
		ConnectionsByRole: make(map[string]int),
	}
	seen := make(map[string]struct{})
	for client := range h.all {
		st.ConnectionsByRole[client.Role]++
		if _, ok := seen[client.UserID]; !ok {
			seen[client.UserID] = struct{}{}
			st.UsersOnline = append(st.UsersOnline, client.UserID)
		}
	}
	sort.Strings(st.UsersOnline)
	return st
}
