package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 65536
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "requestId", msg.RequestID)

	switch msg.Type {
	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "Failed to parse start game data")
			return
		}
		c.handleStartGame(msg, data)

	case MessageTypeEndGame:
		var data EndGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "Failed to parse end game data")
			return
		}
		c.handleEndGame(msg, data)

	case MessageTypeActiveGame:
		c.handleActiveGame(msg)

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "Failed to parse player action data")
			return
		}
		c.handlePlayerAction(msg, data)

	case MessageTypeNextHand:
		var data NextHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "Failed to parse next hand data")
			return
		}
		c.handleNextHand(msg, data)

	case MessageTypeRebuy:
		var data RebuyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "Failed to parse rebuy data")
			return
		}
		c.handleRebuy(msg, data)

	default:
		c.sendError(msg, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client, echoing the request id
func (c *Connection) sendError(req *Message, code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	if req != nil {
		errorMsg.RequestID = req.RequestID
	}

	_ = c.SendMessage(errorMsg)
}

// sendEngineError maps an engine failure to a wire error code
func (c *Connection) sendEngineError(req *Message, err error) {
	var e *engine.Error
	if errors.As(err, &e) {
		c.sendError(req, string(e.Kind), e.Message)
		return
	}
	c.logger.Error("Command failed", "type", req.Type, "error", err)
	c.sendError(req, "internal", "internal error")
}

// reply sends a snapshot back on this connection and broadcasts it to
// every other client so all views stay current.
func (c *Connection) reply(req *Message, snap *engine.Snapshot) {
	response, err := NewMessage(MessageTypeSnapshot, snapshotData(snap))
	if err != nil {
		c.logger.Error("Failed to create snapshot message", "error", err)
		return
	}
	response.RequestID = req.RequestID
	_ = c.SendMessage(response)
	c.server.broadcastExcept(c, response)
	c.server.armWatchdog(snap)
}

func (c *Connection) handleStartGame(req *Message, data StartGameData) {
	blindTime := data.BlindTime
	if blindTime == 0 {
		blindTime = c.server.defaults.BlindTime
	}
	chips := data.Chips
	if chips == 0 {
		chips = c.server.defaults.Chips
	}

	snap, err := c.server.engine.StartGame(c.ctx, blindTime, chips)
	if err != nil {
		c.sendEngineError(req, err)
		return
	}
	c.reply(req, snap)
}

func (c *Connection) handleEndGame(req *Message, data EndGameData) {
	gameID, err := uuid.Parse(data.GameID)
	if err != nil {
		c.sendError(req, "invalid_message", "gameId is not a valid uuid")
		return
	}

	if _, err := c.server.engine.EndGame(c.ctx, gameID); err != nil {
		c.sendEngineError(req, err)
		return
	}
	c.server.stopWatchdog()

	response, _ := NewMessage(MessageTypeGameEnded, GameEndedData{GameID: data.GameID})
	response.RequestID = req.RequestID
	_ = c.SendMessage(response)
	c.server.broadcastExcept(c, response)
}

func (c *Connection) handleActiveGame(req *Message) {
	snap, err := c.server.engine.ActiveGame(c.ctx)
	if err != nil {
		c.sendEngineError(req, err)
		return
	}
	if snap == nil {
		response, _ := NewMessage(MessageTypeNoGame, struct{}{})
		response.RequestID = req.RequestID
		_ = c.SendMessage(response)
		return
	}

	response, err := NewMessage(MessageTypeSnapshot, snapshotData(snap))
	if err != nil {
		c.logger.Error("Failed to create snapshot message", "error", err)
		return
	}
	response.RequestID = req.RequestID
	_ = c.SendMessage(response)
}

func (c *Connection) handlePlayerAction(req *Message, data PlayerActionData) {
	gameID, err := uuid.Parse(data.GameID)
	if err != nil {
		c.sendError(req, "invalid_message", "gameId is not a valid uuid")
		return
	}
	handID, err := uuid.Parse(data.HandID)
	if err != nil {
		c.sendError(req, "invalid_message", "handId is not a valid uuid")
		return
	}
	playerID, err := uuid.Parse(data.PlayerID)
	if err != nil {
		c.sendError(req, "invalid_message", "playerId is not a valid uuid")
		return
	}

	snap, err := c.server.engine.PlayerAction(c.ctx, gameID, handID, playerID,
		engine.ActionType(data.Action), data.Amount)
	if err != nil {
		c.sendEngineError(req, err)
		return
	}
	c.reply(req, snap)
}

func (c *Connection) handleNextHand(req *Message, data NextHandData) {
	gameID, err := uuid.Parse(data.GameID)
	if err != nil {
		c.sendError(req, "invalid_message", "gameId is not a valid uuid")
		return
	}
	handID, err := uuid.Parse(data.HandID)
	if err != nil {
		c.sendError(req, "invalid_message", "handId is not a valid uuid")
		return
	}
	winners := make([]engine.Winner, 0, len(data.Winners))
	for _, w := range data.Winners {
		id, err := uuid.Parse(w.PlayerID)
		if err != nil {
			c.sendError(req, "invalid_message", "winner id is not a valid uuid")
			return
		}
		winners = append(winners, engine.Winner{PlayerID: id, Amount: w.Amount})
	}
	rebuys := make([]uuid.UUID, 0, len(data.Rebuys))
	for _, r := range data.Rebuys {
		id, err := uuid.Parse(r)
		if err != nil {
			c.sendError(req, "invalid_message", "rebuy id is not a valid uuid")
			return
		}
		rebuys = append(rebuys, id)
	}

	snap, err := c.server.engine.NextHand(c.ctx, gameID, handID, winners, data.Level, rebuys)
	if err != nil {
		c.sendEngineError(req, err)
		return
	}
	c.reply(req, snap)
}

func (c *Connection) handleRebuy(req *Message, data RebuyData) {
	gameID, err := uuid.Parse(data.GameID)
	if err != nil {
		c.sendError(req, "invalid_message", "gameId is not a valid uuid")
		return
	}
	handID, err := uuid.Parse(data.HandID)
	if err != nil {
		c.sendError(req, "invalid_message", "handId is not a valid uuid")
		return
	}
	playerID, err := uuid.Parse(data.PlayerID)
	if err != nil {
		c.sendError(req, "invalid_message", "playerId is not a valid uuid")
		return
	}

	snap, err := c.server.engine.Rebuy(c.ctx, gameID, handID, playerID)
	if err != nil {
		c.sendEngineError(req, err)
		return
	}
	c.reply(req, snap)
}
