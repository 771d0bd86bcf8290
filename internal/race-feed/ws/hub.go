package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/radieske/racers-escrow/internal/race-feed/pubsub"
)

// client serializa as escritas: gorilla aceita um único escritor por conexão.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub gerencia conexões WebSocket e assinaturas por corrida
// subs: mapeia raceID para o conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// raceID -> set of clients
	subs map[string]map[*client]struct{}

	OnConnect    func() // métricas (gauge)
	OnDisconnect func()
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe em corridas e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	if h.OnConnect != nil {
		h.OnConnect()
	}

	c := &client{conn: conn}
	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.RaceID != "" {
				h.subscribe(msg.RaceID, c)
			}
		case "unsubscribe":
			h.unsubscribe(msg.RaceID, c)
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

func (h *Hub) subscribe(raceID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[raceID]; !ok {
		h.subs[raceID] = make(map[*client]struct{})
	}
	h.subs[raceID][c] = struct{}{}
}

func (h *Hub) unsubscribe(raceID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[raceID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, raceID)
		}
	}
}

// Subscribers conta os clientes inscritos na corrida.
func (h *Hub) Subscribers(raceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[raceID])
}

// Broadcast envia a atualização aos inscritos na corrida e em AllRaces
func (h *Hub) Broadcast(update pubsub.WSUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.RaceID])+len(h.subs[AllRaces]))
	for c := range h.subs[update.RaceID] {
		targets = append(targets, c)
	}
	for c := range h.subs[AllRaces] {
		if _, dup := h.subs[update.RaceID][c]; !dup {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.write(update)
	}
}
