package turn

import (
	"fmt"
	"slices"

	"ctchen222/rally-tracker/internal/rally"
)

// Format is the match format.
type Format string

const (
	Singles Format = "singles"
	Doubles Format = "doubles"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == Singles || f == Doubles
}

// PlayersPerSide returns how many players stand on each side.
func (f Format) PlayersPerSide() int {
	if f == Doubles {
		return 2
	}
	return 1
}

// ParseFormat converts a raw identifier into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown match format %q", s)
	}
	return f, nil
}

// Teams assigns players to the two sides of a match.
type Teams struct {
	A []string `json:"a" validate:"required,min=1,max=2,dive,required"`
	B []string `json:"b" validate:"required,min=1,max=2,dive,required"`
}

// Members returns the players of one side.
func (t Teams) Members(side rally.Side) []string {
	if side == rally.SideB {
		return slices.Clone(t.B)
	}
	return slices.Clone(t.A)
}

// SideOf returns the side a player belongs to.
func (t Teams) SideOf(playerID string) (rally.Side, bool) {
	switch {
	case slices.Contains(t.A, playerID):
		return rally.SideA, true
	case slices.Contains(t.B, playerID):
		return rally.SideB, true
	default:
		return "", false
	}
}

// Opponent returns the single player facing playerID in singles.
func (t Teams) Opponent(playerID string) (string, bool) {
	side, ok := t.SideOf(playerID)
	if !ok {
		return "", false
	}
	others := t.Members(side.Opponent())
	if len(others) != 1 {
		return "", false
	}
	return others[0], true
}

// Next is the resolved turn after a recorded shot. An empty Hitter or
// Receiver must be picked by the caller from the matching candidate list.
type Next struct {
	Hitter             string
	Receiver           string
	HitterCandidates   []string
	ReceiverCandidates []string
	// ServingSide is set when the shot ended the rally.
	ServingSide rally.Side
	IsNewServe  bool
}

// Resolve determines who hits and who receives after last.
//
// A continuing rally hands the shuttle to the receiver. A point keeps the
// serve with the hitting side, a miss passes it to the receiving side. In
// singles both roles are always determined; in doubles only the hitter of a
// continuing rally is, and the other slots are narrowed to one team.
func Resolve(last rally.ShotRecord, format Format, teams Teams) Next {
	hitterSide := last.HitterSide

	if last.Result == rally.Continue {
		next := Next{
			Hitter:             last.Receiver,
			HitterCandidates:   []string{last.Receiver},
			ReceiverCandidates: teams.Members(hitterSide),
		}
		if format == Singles {
			next.Receiver = last.Hitter
		}
		return next
	}

	serving, _ := last.ScoringSide()
	next := Next{
		HitterCandidates:   teams.Members(serving),
		ReceiverCandidates: teams.Members(serving.Opponent()),
		ServingSide:        serving,
		IsNewServe:         true,
	}
	if format == Singles {
		if serving == hitterSide {
			next.Hitter, next.Receiver = last.Hitter, last.Receiver
		} else {
			next.Hitter, next.Receiver = last.Receiver, last.Hitter
		}
	}
	return next
}
