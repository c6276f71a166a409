package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"okey81-lite/apps/server/internal/auth"
	"okey81-lite/apps/server/internal/codec"
	"okey81-lite/apps/server/internal/lobby"
	"okey81-lite/apps/server/internal/table"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	UserID   uint64
	Nickname string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	LastPing time.Time

	// Current room association
	RoomID string
	Room   *table.Room
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	userConns   map[uint64]*Connection // userID -> connection
	nextConnID  uint64
	lobby       *lobby.Lobby
	auth        auth.Service
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, authService auth.Service) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		userConns:   make(map[uint64]*Connection),
		lobby:       lby,
		auth:        authService,
	}
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{
		ID:       connID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
		LastPing: time.Now(),
	}
	g.connections[connID] = c
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", connID, len(g.connections))

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		if c.Room != nil && c.UserID != 0 {
			_ = c.Room.SubmitEvent(table.Event{Type: table.EventConnLost, UserID: c.UserID})
		}
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}

		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			c.handleMessage(message)
		}
	}
}

type authRequest struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Register bool   `json:"register,omitempty"`
	Guest    bool   `json:"guest,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

type tileRequest struct {
	TileID int `json:"tile_id"`
}

type openRequest struct {
	Slots []int `json:"slots"`
}

type processTileRequest struct {
	TileID       int `json:"tile_id"`
	TargetSeat   int `json:"target_seat"`
	MeldIndex    int `json:"meld_index"`
	SecondTileID int `json:"second_tile_id,omitempty"`
}

func (c *Connection) handleMessage(data []byte) {
	var msg codec.ClientMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid message format")
		return
	}

	if msg.T != "auth" && c.UserID == 0 {
		c.sendError(msg.ReqID, "authenticate first")
		return
	}

	switch msg.T {
	case "auth":
		c.handleAuth(msg)
	case "quick_start":
		c.handleQuickStart(msg)
	case "state":
		c.withRoomEvent(msg, table.Event{Type: table.EventState})
	case "draw":
		c.withAction(msg, table.Event{Action: table.ActionDraw})
	case "discard":
		var req tileRequest
		if !c.decodePayload(msg, &req) {
			return
		}
		c.withAction(msg, table.Event{Action: table.ActionDiscard, TileID: req.TileID})
	case "side_pickup":
		c.withAction(msg, table.Event{Action: table.ActionSidePickup})
	case "side_pass":
		c.withAction(msg, table.Event{Action: table.ActionSidePass})
	case "grant":
		c.withAction(msg, table.Event{Action: table.ActionGrant})
	case "refuse":
		c.withAction(msg, table.Event{Action: table.ActionDeny})
	case "declare_double":
		c.withAction(msg, table.Event{Action: table.ActionDeclareDouble})
	case "open":
		var req openRequest
		if !c.decodePayload(msg, &req) {
			return
		}
		c.withAction(msg, table.Event{Action: table.ActionOpen, Slots: req.Slots})
	case "extend", "process_tile":
		var req processTileRequest
		if !c.decodePayload(msg, &req) {
			return
		}
		c.withAction(msg, table.Event{
			Action:       table.ActionProcessTile,
			TileID:       req.TileID,
			TargetSeat:   req.TargetSeat,
			MeldIndex:    req.MeldIndex,
			SecondTileID: req.SecondTileID,
		})
	case "suggest":
		c.handleSuggest(msg)
	default:
		c.sendError(msg.ReqID, "unknown message type "+msg.T)
	}
}

func (c *Connection) decodePayload(msg codec.ClientMsg, out any) bool {
	if len(msg.P) == 0 {
		c.sendError(msg.ReqID, "missing payload")
		return false
	}
	if err := json.Unmarshal(msg.P, out); err != nil {
		c.sendError(msg.ReqID, "invalid payload")
		return false
	}
	return true
}

func (c *Connection) handleAuth(msg codec.ClientMsg) {
	var req authRequest
	if len(msg.P) > 0 {
		if err := json.Unmarshal(msg.P, &req); err != nil {
			c.sendError(msg.ReqID, "invalid payload")
			return
		}
	}

	var (
		userID   uint64
		username string
		token    string
	)
	switch {
	case strings.TrimSpace(req.Token) != "":
		id, name, ok := c.Gateway.auth.ResolveSession(req.Token)
		if !ok {
			c.sendError(msg.ReqID, "invalid session token")
			return
		}
		userID, username, token = id, name, req.Token
	case req.Register:
		id, tok, err := c.Gateway.auth.Register(req.Username, req.Password)
		if err != nil {
			c.sendError(msg.ReqID, err.Error())
			return
		}
		userID, username, token = id, req.Username, tok
	case strings.TrimSpace(req.Username) != "":
		id, tok, err := c.Gateway.auth.Login(req.Username, req.Password)
		if err != nil {
			c.sendError(msg.ReqID, err.Error())
			return
		}
		userID, username, token = id, req.Username, tok
	default:
		// Guest entry: a throwaway account bound to this session.
		id, tok, _ := c.Gateway.auth.ResolveOrCreateAccount("")
		userID, token = id, tok
		username = strings.TrimSpace(req.Nickname)
		if username == "" {
			username = fmt.Sprintf("guest_%d", id)
		}
	}

	c.Gateway.bindUser(c, userID)
	c.UserID = userID
	c.Nickname = username

	c.reply(msg.ReqID, "auth_ok", map[string]any{
		"user_id":  userID,
		"username": username,
		"token":    token,
	})
	log.Printf("[Gateway] User %d authenticated on %s", userID, c.ID)
}

func (c *Connection) handleQuickStart(msg codec.ClientMsg) {
	if c.Room != nil && !c.Room.Finished() {
		c.reply(msg.ReqID, "room_joined", map[string]any{"room_id": c.RoomID})
		return
	}

	// Reconnect path: the account may still be seated from a dropped
	// connection.
	if room := c.Gateway.lobby.RoomOf(c.UserID); room != nil && !room.Finished() {
		c.Room = room
		c.RoomID = room.ID
		_ = room.SubmitEvent(table.Event{Type: table.EventConnResume, UserID: c.UserID})
		c.reply(msg.ReqID, "room_joined", map[string]any{"room_id": room.ID})
		return
	}

	room, err := c.Gateway.lobby.QuickStart(c.UserID, c.Nickname, c.Gateway.broadcastToUser)
	if err != nil {
		c.sendError(msg.ReqID, err.Error())
		return
	}
	c.Room = room
	c.RoomID = room.ID

	c.reply(msg.ReqID, "room_joined", map[string]any{"room_id": room.ID})
	log.Printf("[Gateway] User %d joined room %s", c.UserID, room.ID)
}

func (c *Connection) handleSuggest(msg codec.ClientMsg) {
	if c.Room == nil {
		c.sendError(msg.ReqID, "not in a room")
		return
	}
	s, err := c.Room.SuggestFor(c.UserID)
	if err != nil {
		c.sendError(msg.ReqID, err.Error())
		return
	}
	c.reply(msg.ReqID, "suggestion", codec.ViewOfSuggestion(s))
}

// withRoomEvent submits a non-action event such as a state refresh.
func (c *Connection) withRoomEvent(msg codec.ClientMsg, e table.Event) {
	if c.Room == nil {
		c.sendError(msg.ReqID, "not in a room")
		return
	}
	e.UserID = c.UserID
	if err := c.Room.SubmitEvent(e); err != nil {
		c.sendError(msg.ReqID, err.Error())
	}
}

// withAction submits a seat-scoped game verb and acks or rejects per request.
func (c *Connection) withAction(msg codec.ClientMsg, e table.Event) {
	if c.Room == nil {
		c.sendError(msg.ReqID, "not in a room")
		return
	}
	e.Type = table.EventAction
	e.UserID = c.UserID
	if err := c.Room.SubmitEvent(e); err != nil {
		c.sendError(msg.ReqID, err.Error())
		return
	}
	c.reply(msg.ReqID, "ack", map[string]any{"for": msg.T})
}

func (c *Connection) reply(reqID, kind string, payload any) {
	data, err := json.Marshal(codec.ServerMsg{T: kind, ReqID: reqID, P: payload})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Connection) sendError(reqID, msg string) {
	c.reply(reqID, "error", map[string]any{"message": msg})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// bindUser points the user routing table at this connection. A stale
// connection for the same account stops receiving and dies on ping timeout.
func (g *Gateway) bindUser(c *Connection, userID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.userConns[userID] = c
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	if cur, ok := g.userConns[c.UserID]; ok && cur == c {
		delete(g.userConns, c.UserID)
	}
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// broadcastToUser sends a message to a specific user
func (g *Gateway) broadcastToUser(userID uint64, data []byte) {
	g.mu.RLock()
	c := g.userConns[userID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
			// Drop if buffer full
		}
	}
}

// Broadcast sends a message to all connections
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}
