package models

import (
	"encoding/json"
	"errors"
)

// Client → Server message types
const (
	MsgTypeJoin   = "join"
	MsgTypeVote   = "vote"
	MsgTypeReveal = "reveal"
	MsgTypeReset  = "reset"
	MsgTypeLeave  = "leave"
	MsgTypePing   = "ping"
)

// Server → Client message types
const (
	MsgTypeRoomInit   = "room:init"   // Direct reply to a successful join
	MsgTypeRoomUpdate = "room:update" // Broadcast after every state change
	MsgTypeError      = "error"
	MsgTypePong       = "pong"
)

// Decode failure classes. The actor maps these to inline error replies.
var (
	ErrMalformedMessage   = errors.New("invalid payload")
	ErrUnsupportedMessage = errors.New("unsupported message type")
)

// ClientMessage is an inbound command. The Type discriminator decides which
// of the optional fields are meaningful.
type ClientMessage struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"roomId,omitempty"`
	PlayerID string    `json:"playerId,omitempty"`
	Name     string    `json:"name,omitempty"`
	Value    *Estimate `json:"value,omitempty"`
}

// ServerMessage is an outbound reply or broadcast. Field order matters: it
// keeps serialized snapshots byte-identical across encodes.
type ServerMessage struct {
	Type     string        `json:"type"`
	Room     *RoomSnapshot `json:"room,omitempty"`
	PlayerID string        `json:"playerId,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// DecodeClientMessage parses raw bytes into the closed command variant.
// Unparseable bodies yield ErrMalformedMessage, unknown discriminators
// ErrUnsupportedMessage; neither ever mutates room state.
func DecodeClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, ErrMalformedMessage
	}

	switch msg.Type {
	case MsgTypeJoin, MsgTypeVote, MsgTypeReveal, MsgTypeReset, MsgTypeLeave, MsgTypePing:
		return &msg, nil
	default:
		return nil, ErrUnsupportedMessage
	}
}

// RoomInitMessage builds the direct reply a joining connection receives.
func RoomInitMessage(room *RoomSnapshot, playerID string) *ServerMessage {
	return &ServerMessage{Type: MsgTypeRoomInit, Room: room, PlayerID: playerID}
}

// RoomUpdateMessage builds the snapshot broadcast.
func RoomUpdateMessage(room *RoomSnapshot) *ServerMessage {
	return &ServerMessage{Type: MsgTypeRoomUpdate, Room: room}
}

// ErrorMessage builds an inline error reply.
func ErrorMessage(message string) *ServerMessage {
	return &ServerMessage{Type: MsgTypeError, Message: message}
}

// PongMessage builds the ping reply.
func PongMessage() *ServerMessage {
	return &ServerMessage{Type: MsgTypePong}
}
