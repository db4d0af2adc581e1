package server

import (
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/gravitas-games/hexfront/internal/network"
	"github.com/gravitas-games/hexfront/internal/sim"
	"github.com/gravitas-games/hexfront/pkg/logger"
	"github.com/gravitas-games/hexfront/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Game commands accepted per second, with a small burst
	commandRate  = 20
	commandBurst = 40
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server
	room   *Room
	player *models.Player
	log    *logrus.Entry

	// Buffered channel for outbound messages
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	commands *rate.Limiter
	chat     *rate.Limiter
}

// NewConnection creates a connection for an authenticated player in room.
func NewConnection(ws *websocket.Conn, server *Server, room *Room, player *models.Player) *Connection {
	chatEvery := time.Minute / time.Duration(server.config.Chat.RateLimit)
	return &Connection{
		ws:       ws,
		server:   server,
		room:     room,
		player:   player,
		log:      logger.Component("conn").WithFields(logrus.Fields{"player": player.ID, "room": room.ID}),
		send:     make(chan []byte, 256),
		closed:   make(chan struct{}),
		commands: rate.NewLimiter(commandRate, commandBurst),
		chat:     rate.NewLimiter(rate.Every(chatEvery), 3),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the room
func (c *Connection) readPump() {
	defer func() {
		c.room.Submit(func() { c.room.leave(c) })
		c.Close()
	}()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read error")
			}
			return
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.log.WithError(err).Debug("failed to parse client message")
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Debug("websocket write error")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.log.WithField("type", msg.Type).Trace("received message")

	if err := network.ValidatePayload(msg.Type, msg.Payload); err != nil {
		c.log.WithError(err).Debug("invalid payload")
		c.SendError("invalid_payload", "Invalid "+msg.Type+" payload")
		return
	}

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin(msg.Payload)

	case network.MsgTypeLeave:
		c.room.Submit(func() { c.room.leave(c) })

	case network.MsgTypeChat:
		c.handleChat(msg.Payload)

	case network.MsgTypePing:
		c.handlePing()

	case network.MsgTypeClaimHex:
		var p network.ClaimHexPayload
		if c.decode(msg.Payload, &p) {
			c.submitCommand(sim.Command{Kind: sim.CmdClaimHex, Q: p.Q, R: p.R})
		}

	case network.MsgTypeMoveUnit:
		var p network.MoveUnitPayload
		if c.decode(msg.Payload, &p) {
			c.submitCommand(sim.Command{Kind: sim.CmdMoveUnit, UnitID: p.UnitID, Q: p.Q, R: p.R})
		}

	case network.MsgTypeBuildStructure:
		var p network.BuildStructurePayload
		if c.decode(msg.Payload, &p) {
			c.submitCommand(sim.Command{Kind: sim.CmdBuildStructure, UnitID: p.UnitID, Q: p.Q, R: p.R})
		}

	default:
		c.log.WithField("type", msg.Type).Debug("unknown message type")
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

func (c *Connection) decode(payload json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		c.SendError("invalid_payload", "Failed to decode payload")
		return false
	}
	return true
}

// submitCommand hands a game command to the room. Commands beyond the rate
// limit are dropped silently.
func (c *Connection) submitCommand(cmd sim.Command) {
	if !c.commands.Allow() {
		c.log.WithField("kind", cmd.Kind).Debug("command rate limited")
		return
	}
	c.room.Submit(func() { c.room.dispatch(c, cmd) })
}

// handleJoin handles player join requests
func (c *Connection) handleJoin(payload json.RawMessage) {
	var join network.JoinPayload
	if len(payload) > 0 {
		if !c.decode(payload, &join) {
			return
		}
	}

	// Only guests choose their display name.
	name := ""
	if c.player.IsGuest() && join.Name != "" {
		name = models.CleanName(join.Name)
	}

	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.RoomID = c.room.ID
	c.room.Submit(func() { c.room.join(c, name) })
}

// handleChat handles chat messages
func (c *Connection) handleChat(payload json.RawMessage) {
	var chatMsg network.ChatPayload
	if !c.decode(payload, &chatMsg) {
		return
	}
	if utf8.RuneCountInString(chatMsg.Message) > c.server.config.Chat.MaxMessageLength {
		c.SendError("message_too_long", "Chat message is too long")
		return
	}
	if !c.chat.Allow() {
		c.SendError("rate_limited", "Too many chat messages")
		return
	}
	c.room.Submit(func() { c.room.chat(c, chatMsg.Message) })
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// SendMessage queues a message for the client. It never blocks; messages
// for a full or closed connection are dropped.
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("failed to marshal message")
		return
	}

	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.log.WithField("type", msg.Type).Warn("send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close stops the write pump, which sends a close frame and closes the
// socket. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
