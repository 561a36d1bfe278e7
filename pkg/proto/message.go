package proto

import (
	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/events"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/rally"
)

// Commands a client can send over the match stream.
const (
	CommandChooseServer   = "choose_server"
	CommandSelectPlayers  = "select_players"
	CommandSelectCell     = "select_cell"
	CommandSelectShotType = "select_shot_type"
	CommandSubmit         = "submit"
	CommandUndo           = "undo"
	CommandReset          = "reset"
)

// Message types the server sends over the match stream.
const (
	TypeState = "state"
	TypeEvent = "event"
	TypeError = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type     string         `json:"type" validate:"required,oneof=choose_server select_players select_cell select_shot_type submit undo reset"`
	PlayerID string         `json:"player_id,omitempty"`
	Hitter   string         `json:"hitter,omitempty"`
	Receiver string         `json:"receiver,omitempty"`
	Zone     court.Zone     `json:"zone,omitempty" validate:"omitempty,court_zone"`
	ShotType court.ShotType `json:"shot_type,omitempty" validate:"omitempty,shot_type"`
	Result   rally.Result   `json:"result,omitempty" validate:"omitempty,oneof=continue point miss"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type   string        `json:"type" validate:"required"`
	Code   string        `json:"code,omitempty"`
	Reason string        `json:"reason,omitempty"`
	View   *game.View    `json:"view,omitempty"`
	Event  *events.Event `json:"event,omitempty"`
}

// StateMessage wraps the current view of a match.
func StateMessage(v game.View) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeState, View: &v}
}

// ErrorMessage reports a rejected command.
func ErrorMessage(err error) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Code: string(game.CodeOf(err)), Reason: err.Error()}
}
