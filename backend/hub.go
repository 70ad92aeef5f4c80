// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Time an empty hub is kept before it is removed.
	hubIdleTimeout = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeJoin   = "JOIN"
	MsgTypeState  = "STATE"
	MsgTypeCount  = "COUNT"
	MsgTypePlay   = "PLAY"
	MsgTypeStatus = "STATUS"
	MsgTypeError  = "ERROR"
	MsgTypePing   = "PING"
	MsgTypePong   = "PONG"
)

// Message represents a WebSocket message
type Message struct {
	Type    string              `json:"type"`
	MatchID string              `json:"matchId,omitempty"`
	View    *View               `json:"view,omitempty"`
	Count   *scoring.Count      `json:"count,omitempty"`
	Pitch   *scoring.PitchEvent `json:"pitch,omitempty"`
	Play    *scoring.PlayRecord `json:"play,omitempty"`
	Status  string              `json:"status,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// HubRequest types
const (
	ReqTypeWSJoin    = "WS_JOIN"
	ReqTypeBroadcast = "BROADCAST"
)

// HubRequest represents a request to the Hub
type HubRequest struct {
	Type    string
	Client  *wsClient
	Message Message
}

// SnapshotFunc returns the current view of a match.
type SnapshotFunc func(matchId string) (*View, error)

// Hub fans match updates out to the websocket clients watching one match. It
// keeps the last STATE it has seen so that joining clients get the current
// view without touching the scorer.
type Hub struct {
	matchId string

	// Registered clients.
	clients map[*wsClient]bool

	// Inbound requests
	requests chan HubRequest

	// Register requests from the clients.
	register chan *wsClient

	// Unregister requests from clients.
	unregister chan *wsClient

	// Closed when the hub goroutine exits.
	done chan struct{}

	last *Message

	hm *HubManager
}

func newHub(id string, hm *HubManager) *Hub {
	return &Hub{
		matchId:    id,
		requests:   make(chan HubRequest, 64),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]bool),
		hm:         hm,
	}
}

func (h *Hub) run() {
	defer close(h.done)
	idleTimer := time.NewTicker(h.hm.idleTimeout)
	defer idleTimer.Stop()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case req := <-h.requests:
			switch req.Type {
			case ReqTypeWSJoin:
				if req.Client != nil && h.clients[req.Client] {
					h.handleWSJoin(req.Client)
				}
			case ReqTypeBroadcast:
				if req.Message.Type == MsgTypeState {
					msg := req.Message
					h.last = &msg
				}
				h.broadcast(req.Message)
			}
		case <-idleTimer.C:
			if h.hm.removeIfIdle(h) {
				return
			}
		}
	}
}

func (h *Hub) handleWSJoin(c *wsClient) {
	if h.last == nil {
		view, err := h.hm.snapshot(h.matchId)
		if err != nil {
			log.Printf("Hub: Error loading match %s: %v", h.matchId, err)
			c.sendJSON(Message{Type: MsgTypeError, MatchID: h.matchId, Error: "Server error loading match"})
			return
		}
		h.last = &Message{Type: MsgTypeState, MatchID: h.matchId, View: view}
	}
	c.sendJSON(*h.last)
}

func (h *Hub) broadcast(msg Message) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// HubManager manages one hub per watched match.
type HubManager struct {
	hubs        map[string]*Hub
	mu          sync.Mutex
	snapshot    SnapshotFunc
	idleTimeout time.Duration
}

func NewHubManager() *HubManager {
	return &HubManager{
		hubs: make(map[string]*Hub),
		snapshot: func(string) (*View, error) {
			return nil, ErrNoSession
		},
		idleTimeout: hubIdleTimeout,
	}
}

// SetSnapshot sets the function used to build the view sent to joining
// clients.
func (hm *HubManager) SetSnapshot(f SnapshotFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.snapshot = f
}

func (hm *HubManager) GetHub(id string) *Hub {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hub, ok := hm.hubs[id]; ok {
		return hub
	}
	hub := newHub(id, hm)
	hm.hubs[id] = hub
	go hub.run()
	return hub
}

// removeIfIdle removes the hub if it has no clients. It runs on the hub
// goroutine, so the client count cannot change underneath it.
func (hm *HubManager) removeIfIdle(h *Hub) bool {
	if len(h.clients) > 0 {
		return false
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if hm.hubs[h.matchId] == h {
		delete(hm.hubs, h.matchId)
	}
	return true
}

// Len returns the number of live hubs.
func (hm *HubManager) Len() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return len(hm.hubs)
}

// BroadcastToMatch sends msg to every client watching the match. It never
// blocks: when the hub is busy the update is dropped and clients catch up on
// the next one.
func (hm *HubManager) BroadcastToMatch(matchId string, msg Message) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hub, ok := hm.hubs[matchId]
	if !ok {
		return
	}
	select {
	case hub.requests <- HubRequest{Type: ReqTypeBroadcast, Message: msg}:
	default:
		log.Printf("Warning: Hub channel full, dropping %s for match %s", msg.Type, matchId)
	}
}

// join registers c with the hub of its match, retrying if that hub went idle
// in the meantime.
func (hm *HubManager) join(c *wsClient) {
	for {
		hub := hm.GetHub(c.matchId)
		select {
		case hub.register <- c:
			c.hub = hub
			return
		case <-hub.done:
		}
	}
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message

	matchId string
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypeJoin:
			select {
			case c.hub.requests <- HubRequest{Type: ReqTypeWSJoin, Client: c}:
			case <-c.hub.done:
				return
			}
		case MsgTypePing:
			c.sendJSON(Message{Type: MsgTypePong})
		default:
			log.Printf("Unknown message type: %s", msg.Type)
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues msg unless the client is too far behind.
func (c *wsClient) sendJSON(msg Message) {
	defer func() {
		// The hub may have closed send already.
		recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWS handles websocket requests from the peer.
func ServeWS(hm *HubManager, w http.ResponseWriter, r *http.Request) {
	matchId := r.URL.Query().Get("matchId")
	if matchId == "" || !isValidID(matchId) {
		http.Error(w, "Invalid matchId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan Message, 256), matchId: matchId}
	hm.join(client)

	go client.writePump()
	go client.readPump()
}
