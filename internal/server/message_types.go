package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants used for client-server communication
const (
	// Client to server messages
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeEndGame      MessageType = "end_game"
	MessageTypeActiveGame   MessageType = "active_game"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeNextHand     MessageType = "next_hand"
	MessageTypeRebuy        MessageType = "rebuy"

	// Server to client messages
	MessageTypeSnapshot    MessageType = "snapshot"
	MessageTypeGameEnded   MessageType = "game_ended"
	MessageTypeNoGame      MessageType = "no_active_game"
	MessageTypeTurnTimeout MessageType = "turn_timeout"
	MessageTypeError       MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
