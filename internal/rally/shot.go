package rally

import (
	"fmt"

	"ctchen222/rally-tracker/internal/court"
)

// Side identifies one of the two sides of a match.
type Side string

// Result is the outcome of a single exchange.
type Result string

const (
	SideA Side = "A"
	SideB Side = "B"

	// Continue keeps the rally alive.
	Continue Result = "continue"
	// Point means the hitting side won the rally.
	Point Result = "point"
	// Miss means the hitting side lost the rally.
	Miss Result = "miss"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Valid reports whether s is SideA or SideB.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Valid reports whether r is a known result.
func (r Result) Valid() bool {
	return r == Continue || r == Point || r == Miss
}

// EndsRally reports whether r terminates the rally.
func (r Result) EndsRally() bool {
	return r == Point || r == Miss
}

// ParseResult converts a raw identifier into a Result.
func ParseResult(s string) (Result, error) {
	r := Result(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown shot result %q", s)
	}
	return r, nil
}

// Score holds the points of both sides.
type Score struct {
	A int `json:"a" validate:"gte=0"`
	B int `json:"b" validate:"gte=0"`
}

// Of returns the points of one side.
func (s Score) Of(side Side) int {
	if side == SideB {
		return s.B
	}
	return s.A
}

// Add returns a copy of s with one point added to side.
func (s Score) Add(side Side) Score {
	if side == SideB {
		s.B++
	} else {
		s.A++
	}
	return s
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.A, s.B)
}

// ShotRecord is one recorded exchange. Records are values and are never
// edited once appended.
type ShotRecord struct {
	MatchID     string         `json:"match_id" validate:"required"`
	Hitter      string         `json:"hitter" validate:"required"`
	Receiver    string         `json:"receiver" validate:"required,nefield=Hitter"`
	HitterSide  Side           `json:"hitter_side" validate:"oneof=A B"`
	HitZone     court.Zone     `json:"hit_zone" validate:"court_zone"`
	ReceiveZone court.Zone     `json:"receive_zone" validate:"court_zone"`
	ShotType    court.ShotType `json:"shot_type" validate:"shot_type"`
	Result      Result         `json:"result" validate:"oneof=continue point miss"`
	IsCross     bool           `json:"is_cross"`
}

// NewShotRecord builds a record and derives its cross flag from the zones.
func NewShotRecord(matchID, hitter, receiver string, side Side, hit, receive court.Zone, shotType court.ShotType, result Result) ShotRecord {
	return ShotRecord{
		MatchID:     matchID,
		Hitter:      hitter,
		Receiver:    receiver,
		HitterSide:  side,
		HitZone:     hit,
		ReceiveZone: receive,
		ShotType:    shotType,
		Result:      result,
		IsCross:     court.IsCross(hit, receive),
	}
}

// ScoringSide returns the side awarded a point by the record, if any.
func (r ShotRecord) ScoringSide() (Side, bool) {
	switch r.Result {
	case Point:
		return r.HitterSide, true
	case Miss:
		return r.HitterSide.Opponent(), true
	default:
		return "", false
	}
}

// Apply returns the score after the record is counted.
func (r ShotRecord) Apply(prev Score) Score {
	side, ok := r.ScoringSide()
	if !ok {
		return prev
	}
	return prev.Add(side)
}
