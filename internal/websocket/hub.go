// Package websocket pushes balance changes to the connected clients of an
// account.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	logger     *slog.Logger
	mu         sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket_hub")),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, set := range h.clients {
				for client := range set {
					client.Close()
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]struct{})
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.accountID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.accountID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.accountID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.accountID)
	}
	client.Close()
}

// Stop closes every client and blocks until Run has returned.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// Register adds a client. After Stop the client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify sends the new balance to every client of the account. It never
// blocks: a client whose buffer is full misses the update and is dropped.
func (h *Hub) Notify(accountID uuid.UUID, credits int) {
	msg, err := NewMessage(MessageTypeBalanceUpdated, BalanceUpdatedPayload{Credits: credits})
	if err != nil {
		h.logger.Error("failed to build balance message", slog.String("error", err.Error()))
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal balance message", slog.String("error", err.Error()))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients[accountID] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("dropping slow websocket client", slog.String("account_id", accountID.String()))
		go h.Unregister(client)
	}
}

// ClientCount reports how many connections the account has open.
func (h *Hub) ClientCount(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}
