package game

import (
	"fmt"
	"slices"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
	"ctchen222/rally-tracker/internal/validator"
)

const (
	// SnapshotKind discriminates session snapshots from other stored blobs.
	SnapshotKind = "rally.match_session"
	// SnapshotVersion is bumped whenever the snapshot layout changes.
	SnapshotVersion = 1
)

// Snapshot is the serializable state of an in-progress session.
type Snapshot struct {
	Kind         string             `json:"kind" validate:"required"`
	Version      int                `json:"version" validate:"required"`
	Descriptor   Descriptor         `json:"descriptor"`
	Turn         TurnState          `json:"turn"`
	Ledger       []rally.ShotRecord `json:"ledger" validate:"dive"`
	ScoreHistory []rally.Score      `json:"score_history" validate:"min=1,dive"`
}

// Snapshot captures the current state of the session.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Kind:         SnapshotKind,
		Version:      SnapshotVersion,
		Descriptor:   s.desc,
		Turn:         s.turn.clone(),
		Ledger:       s.ledger.Shots(),
		ScoreHistory: s.ledger.Scores(),
	}
}

// Restore replaces the whole session state with snap. A snapshot that fails
// validation leaves the session in a fresh pre-match state and returns a
// *CorruptSnapshotError.
func (s *Session) Restore(snap Snapshot) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if err := snap.Validate(s.desc); err != nil {
		s.ledger = rally.NewLedger(s.desc.base())
		s.resetTurn()
		return err
	}

	s.ledger = rally.Replay(snap.ScoreHistory[0], snap.Ledger)
	s.turn = snap.Turn.clone()
	s.turn.HitterOnTop = hitterOnTop(snap.Ledger)
	s.sync()
	return nil
}

// Validate checks snap is structurally sound and belongs to the match
// described by desc.
func (snap Snapshot) Validate(desc Descriptor) error {
	corrupt := func(format string, args ...any) error {
		return &CorruptSnapshotError{Reason: fmt.Sprintf(format, args...)}
	}

	if snap.Kind != SnapshotKind {
		return corrupt("unexpected kind %q", snap.Kind)
	}
	if snap.Version != SnapshotVersion {
		return corrupt("unsupported version %d", snap.Version)
	}
	if err := validator.GetValidator().Struct(snap); err != nil {
		return &CorruptSnapshotError{Reason: "invalid fields", Err: err}
	}
	if snap.Descriptor.MatchID != desc.MatchID || snap.Descriptor.Format != desc.Format ||
		!slices.Equal(snap.Descriptor.Teams.A, desc.Teams.A) || !slices.Equal(snap.Descriptor.Teams.B, desc.Teams.B) {
		return corrupt("snapshot belongs to a different match")
	}
	if len(snap.ScoreHistory) != len(snap.Ledger)+1 {
		return corrupt("%d score snapshots for %d shots", len(snap.ScoreHistory), len(snap.Ledger))
	}

	for i, shot := range snap.Ledger {
		if err := validateShot(shot, desc); err != nil {
			return corrupt("shot %d: %v", i, err)
		}
	}
	replayed := rally.Replay(snap.ScoreHistory[0], snap.Ledger).Scores()
	if !slices.Equal(replayed, snap.ScoreHistory) {
		return corrupt("score history does not match recorded shots")
	}

	if err := validateTurn(snap.Turn, desc, snap.Ledger); err != nil {
		return corrupt("turn: %v", err)
	}
	return nil
}

func validateShot(shot rally.ShotRecord, desc Descriptor) error {
	if shot.MatchID != desc.MatchID {
		return fmt.Errorf("recorded for match %q", shot.MatchID)
	}
	side, ok := desc.Teams.SideOf(shot.Hitter)
	if !ok || side != shot.HitterSide {
		return fmt.Errorf("hitter %q is not on side %s", shot.Hitter, shot.HitterSide)
	}
	if rs, ok := desc.Teams.SideOf(shot.Receiver); !ok || rs == side {
		return fmt.Errorf("receiver %q is not an opponent", shot.Receiver)
	}
	if !shot.HitZone.Valid() || !shot.ReceiveZone.Valid() {
		return fmt.Errorf("unknown zone")
	}
	if !shot.ShotType.Valid() {
		return fmt.Errorf("unknown shot type %q", shot.ShotType)
	}
	if shot.IsCross != court.IsCross(shot.HitZone, shot.ReceiveZone) {
		return fmt.Errorf("cross flag does not match zones")
	}
	return nil
}

func validateTurn(t TurnState, desc Descriptor, ledger []rally.ShotRecord) error {
	if t.Finished {
		return fmt.Errorf("match already finished")
	}
	for _, id := range append(append([]string{t.Hitter, t.Receiver}, t.HitterCandidates...), t.ReceiverCandidates...) {
		if id == "" {
			continue
		}
		if _, ok := desc.Teams.SideOf(id); !ok {
			return fmt.Errorf("unknown player %q", id)
		}
	}
	if t.HitZone != "" && !t.HitZone.Valid() {
		return fmt.Errorf("unknown hit zone %q", t.HitZone)
	}
	if t.ReceiveZone != "" && !t.ReceiveZone.Valid() {
		return fmt.Errorf("unknown receive zone %q", t.ReceiveZone)
	}
	if t.ShotType != "" && !t.ShotType.Valid() {
		return fmt.Errorf("unknown shot type %q", t.ShotType)
	}

	hitterSide, hasHitter := desc.Teams.SideOf(t.Hitter)
	if hasHitter && !slices.Contains(t.HitterCandidates, t.Hitter) {
		return fmt.Errorf("hitter %q is not a candidate", t.Hitter)
	}
	if t.Receiver != "" {
		if !hasHitter {
			return fmt.Errorf("receiver %q without a hitter", t.Receiver)
		}
		if side, _ := desc.Teams.SideOf(t.Receiver); side == hitterSide {
			return fmt.Errorf("receiver %q is on the hitter's side", t.Receiver)
		}
		if !slices.Contains(t.ReceiverCandidates, t.Receiver) {
			return fmt.Errorf("receiver %q is not a candidate", t.Receiver)
		}
	}
	if t.IsNewServe && hasHitter && t.ServingSide != hitterSide {
		return fmt.Errorf("serving side %q does not match hitter %q", t.ServingSide, t.Hitter)
	}
	if desc.Format == turn.Singles && t.InitialServerChosen && (t.Hitter == "" || t.Receiver == "") {
		return fmt.Errorf("initial server chosen without hitter and receiver")
	}

	if len(ledger) == 0 {
		if !t.IsNewServe {
			return fmt.Errorf("rally in progress without recorded shots")
		}
		if desc.Format == turn.Singles && !t.InitialServerChosen && t.Hitter != "" {
			return fmt.Errorf("hitter %q set before the initial server was chosen", t.Hitter)
		}
		return nil
	}
	return matchesResolved(t, desc, ledger[len(ledger)-1])
}

// matchesResolved checks t is a turn the resolver could have produced after
// last, allowing for the players picked by hand in doubles.
func matchesResolved(t TurnState, desc Descriptor, last rally.ShotRecord) error {
	if !t.InitialServerChosen {
		return fmt.Errorf("shots recorded before the initial server was chosen")
	}
	next := turn.Resolve(last, desc.Format, desc.Teams)
	if t.IsNewServe != next.IsNewServe {
		return fmt.Errorf("new serve flag does not follow the last shot")
	}
	if next.IsNewServe && t.ServingSide != next.ServingSide {
		return fmt.Errorf("side %q serves after side %q won the rally", t.ServingSide, next.ServingSide)
	}
	if desc.Format == turn.Singles {
		if t.Hitter != next.Hitter || t.Receiver != next.Receiver {
			return fmt.Errorf("players %q/%q do not follow the last shot", t.Hitter, t.Receiver)
		}
		return nil
	}
	if t.Hitter != "" && !slices.Contains(next.HitterCandidates, t.Hitter) {
		return fmt.Errorf("hitter %q cannot play after the last shot", t.Hitter)
	}
	if t.Receiver != "" && !slices.Contains(next.ReceiverCandidates, t.Receiver) {
		return fmt.Errorf("receiver %q cannot receive after the last shot", t.Receiver)
	}
	return nil
}
