package game

import (
	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
)

// View is what a client needs to render the current state of a match.
type View struct {
	MatchID           string           `json:"match_id"`
	Format            turn.Format      `json:"format"`
	Teams             turn.Teams       `json:"teams"`
	Phase             Phase            `json:"phase"`
	Score             rally.Score      `json:"score"`
	Turn              TurnState        `json:"turn"`
	RequiredServeZone court.Zone       `json:"required_serve_zone,omitempty"`
	LegalShotTypes    []court.ShotType `json:"legal_shot_types"`
	ShotCount         int              `json:"shot_count"`
}

// View returns a detached view of the session.
func (s *Session) View() View {
	required, _ := s.RequiredServeZone()
	legal := s.LegalShotTypes()
	if legal == nil {
		legal = []court.ShotType{}
	}
	return View{
		MatchID:           s.desc.MatchID,
		Format:            s.desc.Format,
		Teams:             s.desc.Teams,
		Phase:             s.Phase(),
		Score:             s.ledger.Score(),
		Turn:              s.turn.clone(),
		RequiredServeZone: required,
		LegalShotTypes:    legal,
		ShotCount:         s.ledger.Len(),
	}
}
