package models

import (
	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
)

// CreateMatchRequest defines the structure for opening a match.
type CreateMatchRequest struct {
	MatchID      string       `json:"match_id" binding:"omitempty,max=64"`
	Format       turn.Format  `json:"format" binding:"required,oneof=singles doubles"`
	TeamA        []string     `json:"team_a" binding:"required,min=1,max=2,dive,required"`
	TeamB        []string     `json:"team_b" binding:"required,min=1,max=2,dive,required"`
	ResumedScore *rally.Score `json:"resumed_score"`
}

// Descriptor converts the request into a match descriptor.
func (r CreateMatchRequest) Descriptor() game.Descriptor {
	return game.Descriptor{
		MatchID:      r.MatchID,
		Format:       r.Format,
		Teams:        turn.Teams{A: r.TeamA, B: r.TeamB},
		ResumedScore: r.ResumedScore,
	}
}

// ChooseServerRequest names the first server of a singles match.
type ChooseServerRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// SelectPlayersRequest names the hitter and receiver of the next doubles shot.
type SelectPlayersRequest struct {
	Hitter   string `json:"hitter" binding:"required"`
	Receiver string `json:"receiver" binding:"required,nefield=Hitter"`
}

// ZoneRequest selects a court zone.
type ZoneRequest struct {
	Zone court.Zone `json:"zone" binding:"required,court_zone"`
}

// ShotTypeRequest selects the type of the pending shot.
type ShotTypeRequest struct {
	ShotType court.ShotType `json:"shot_type" binding:"required,shot_type"`
}

// SubmitShotRequest records the pending shot.
type SubmitShotRequest struct {
	Result rally.Result `json:"result" binding:"required,oneof=continue point miss"`
}

// ShotResponse is returned after a shot has been recorded.
type ShotResponse struct {
	Shot rally.ShotRecord `json:"shot"`
	View game.View        `json:"view"`
}

// UndoResponse is returned after the last shot has been removed.
type UndoResponse struct {
	Undo game.UndoResult `json:"undo"`
	View game.View       `json:"view"`
}
