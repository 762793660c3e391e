package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopdesk/shopdesk/internal/log"
)

// WSConfig holds push connection keepalive settings.
type WSConfig struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

type delivery struct {
	userID string
	data   []byte
}

// Hub tracks push connections per user.
type Hub struct {
	clients    map[string]map[string]*Client // userID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	mu         sync.RWMutex
	config     WSConfig
	logger     zerolog.Logger
}

func NewHub(cfg WSConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		config:     cfg,
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is done. Every client
// still connected at that point is dropped.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for _, conns := range h.clients {
			for _, c := range conns {
				close(c.Send)
			}
		}
		h.clients = make(map[string]map[string]*Client)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[string]*Client)
			}
			h.clients[client.UserID][client.ID] = client
			h.mu.Unlock()
			h.logger.Debug().Str(log.FieldConnID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client.ID]; ok {
					delete(conns, client.ID)
					close(client.Send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug().Str(log.FieldConnID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client unregistered")

		case d := <-h.deliver:
			h.mu.RLock()
			for _, client := range h.clients[d.userID] {
				select {
				case client.Send <- d.data:
				default:
					go h.Unregister(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver queues data for every connection of userID.
func (h *Hub) Deliver(userID string, data []byte) {
	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	case <-h.done:
	}
}

// Connections reports how many push connections userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
