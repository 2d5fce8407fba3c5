package websocket

import (
	"encoding/json"
	"sync"
)

// WalletUpdate is pushed to every open socket of a user after a ledger
// mutation commits.
type WalletUpdate struct {
	Event         string `json:"event"`
	WalletBalance string `json:"wallet_balance"`
	TaxBalance    string `json:"tax_balance"`
	CampaignID    string `json:"campaign_id,omitempty"`
}

type Hub struct {
	mu             sync.RWMutex
	clients        map[string]map[*Client]struct{}
	allowedOrigins map[string]struct{}
}

// NewHub builds a hub. An empty origin list accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			origins = map[string]struct{}{}
			break
		}
		origins[o] = struct{}{}
	}
	return &Hub{
		clients:        make(map[string]map[*Client]struct{}),
		allowedOrigins: origins,
	}
}

func (h *Hub) originAllowed(origin string) bool {
	if len(h.allowedOrigins) == 0 || origin == "" {
		return true
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastWallet never blocks: a client with a full buffer misses the update.
func (h *Hub) BroadcastWallet(userID string, update WalletUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
