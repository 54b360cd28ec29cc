package server

import (
	"encoding/json"
	"time"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type StartGameData struct {
	BlindTime int   `json:"blindTime"` // seconds per blind level
	Chips     int64 `json:"chips"`     // starting stack
}

type EndGameData struct {
	GameID string `json:"gameId"`
}

type PlayerActionData struct {
	GameID   string `json:"gameId"`
	HandID   string `json:"handId"`
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
	Amount   int64  `json:"amount,omitempty"`
}

type WinnerShare struct {
	PlayerID string `json:"id"`
	Amount   int64  `json:"amount"`
}

type NextHandData struct {
	GameID  string        `json:"gameId"`
	HandID  string        `json:"handId"` // the hand being settled
	Winners []WinnerShare `json:"winners"`
	Level   int           `json:"level"`
	Rebuys  []string      `json:"rebuys,omitempty"`
}

type RebuyData struct {
	GameID   string `json:"gameId"`
	HandID   string `json:"handId"`
	PlayerID string `json:"playerId"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type GameEndedData struct {
	GameID string `json:"gameId"`
}

type TurnTimeoutData struct {
	GameID   string `json:"gameId"`
	HandID   string `json:"handId"`
	PlayerID string `json:"playerId"`
	Action   string `json:"action"` // the action synthesized on timeout
}

// SnapshotData is the engine snapshot as sent on the wire. The engine
// types carry their own JSON tags, so this is a thin envelope.
type SnapshotData struct {
	Players       []*engine.Player      `json:"players"`
	Hand          *engine.Hand          `json:"hand"`
	Level         int                   `json:"level"`
	BlindTime     int                   `json:"blindTime"`
	BlindDeadline time.Time             `json:"blindDeadline"`
	PlayerActions *engine.Opportunities `json:"playerActions"`
}

func snapshotData(snap *engine.Snapshot) SnapshotData {
	return SnapshotData{
		Players:       snap.Players,
		Hand:          snap.Hand,
		Level:         snap.Level,
		BlindTime:     snap.BlindTime,
		BlindDeadline: snap.BlindDeadline,
		PlayerActions: snap.PlayerActions,
	}
}
