package events

import (
	"encoding/json"
	"fmt"

	"ctchen222/rally-tracker/internal/rally"
)

// Event types published for a match.
const (
	TypeShotAppended  = "shot_appended"
	TypeShotUndone    = "shot_undone"
	TypeMatchFinished = "match_finished"
	TypeMatchReset    = "match_reset"
)

// MatchChannel returns the Pub/Sub channel events of one match are published on.
func MatchChannel(matchID string) string {
	return fmt.Sprintf("channel:match:%s", matchID)
}

// Event represents a message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// New wraps a payload into an Event.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// ShotAppendedPayload is the payload for the "shot_appended" event.
type ShotAppendedPayload struct {
	MatchID string           `json:"match_id"`
	Shot    rally.ShotRecord `json:"shot"`
	Score   rally.Score      `json:"score"`
}

// ShotUndonePayload is the payload for the "shot_undone" event.
type ShotUndonePayload struct {
	MatchID string           `json:"match_id"`
	Shot    rally.ShotRecord `json:"shot"`
	Score   rally.Score      `json:"score"`
}

// MatchFinishedPayload is the payload for the "match_finished" event.
type MatchFinishedPayload struct {
	MatchID    string             `json:"match_id"`
	FinalScore rally.Score        `json:"final_score"`
	Ledger     []rally.ShotRecord `json:"ledger"`
}

// MatchResetPayload is the payload for the "match_reset" event.
type MatchResetPayload struct {
	MatchID string      `json:"match_id"`
	Score   rally.Score `json:"score"`
}
