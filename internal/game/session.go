package game

import (
	"fmt"
	"slices"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
	"ctchen222/rally-tracker/internal/validator"
)

// Phase is the state of a match session, derived from its TurnState.
type Phase string

const (
	AwaitingInitialServer Phase = "awaiting_initial_server"
	AwaitingPlayers       Phase = "awaiting_players"
	AwaitingServeZone     Phase = "awaiting_serve_zone"
	AwaitingHitZone       Phase = "awaiting_hit_zone"
	AwaitingReceiveZone   Phase = "awaiting_receive_zone"
	ShotReady             Phase = "shot_ready"
	Finished              Phase = "finished"
)

// Descriptor is supplied once when a match begins.
type Descriptor struct {
	MatchID      string       `json:"match_id" validate:"required"`
	Format       turn.Format  `json:"format" validate:"oneof=singles doubles"`
	Teams        turn.Teams   `json:"teams"`
	ResumedScore *rally.Score `json:"resumed_score,omitempty"`
}

// Validate checks the roster matches the format and holds no duplicates.
func (d Descriptor) Validate() error {
	if err := validator.GetValidator().Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	per := d.Format.PlayersPerSide()
	if len(d.Teams.A) != per || len(d.Teams.B) != per {
		return fmt.Errorf("%w: %s needs %d player(s) per side", ErrInvalidInput, d.Format, per)
	}
	seen := make(map[string]bool, 2*per)
	for _, id := range append(slices.Clone(d.Teams.A), d.Teams.B...) {
		if seen[id] {
			return fmt.Errorf("%w: player %q listed twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}

// TurnState is the mutable part of a session: who plays next and the shot
// currently being entered.
type TurnState struct {
	Hitter             string   `json:"hitter,omitempty"`
	Receiver           string   `json:"receiver,omitempty"`
	HitterCandidates   []string `json:"hitter_candidates,omitempty"`
	ReceiverCandidates []string `json:"receiver_candidates,omitempty"`
	// ServingSide is the side about to serve while IsNewServe is set.
	ServingSide         rally.Side     `json:"serving_side,omitempty"`
	IsNewServe          bool           `json:"is_new_serve"`
	AwaitingServeZone   bool           `json:"awaiting_serve_zone"`
	HitterOnTop         bool           `json:"hitter_on_top"`
	InitialServerChosen bool           `json:"initial_server_chosen"`
	HitZone             court.Zone     `json:"hit_zone,omitempty"`
	ReceiveZone         court.Zone     `json:"receive_zone,omitempty"`
	ShotType            court.ShotType `json:"shot_type,omitempty"`
	Finished            bool           `json:"finished"`
}

func (t TurnState) clone() TurnState {
	t.HitterCandidates = slices.Clone(t.HitterCandidates)
	t.ReceiverCandidates = slices.Clone(t.ReceiverCandidates)
	return t
}

// MatchResult is produced once when a match is finished.
type MatchResult struct {
	MatchID      string             `json:"match_id"`
	Format       turn.Format        `json:"format"`
	Teams        turn.Teams         `json:"teams"`
	FinalScore   rally.Score        `json:"final_score"`
	Shots        []rally.ShotRecord `json:"shots"`
	ScoreHistory []rally.Score      `json:"score_history"`
}

// UndoResult describes a successful undo.
type UndoResult struct {
	Removed rally.ShotRecord `json:"removed"`
	Score   rally.Score      `json:"score"`
	// Emptied is set when the ledger has no shots left and the session is
	// back to its pre-match state.
	Emptied bool `json:"emptied"`
}

// Session records one match shot by shot. It is not safe for concurrent use;
// callers serialize operations.
type Session struct {
	desc      Descriptor
	ledger    *rally.Ledger
	turn      TurnState
	observers []Observer
}

// NewSession starts a session in its pre-match state.
func NewSession(desc Descriptor, observers ...Observer) (*Session, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	desc.Teams = turn.Teams{A: slices.Clone(desc.Teams.A), B: slices.Clone(desc.Teams.B)}
	s := &Session{
		desc:      desc,
		ledger:    rally.NewLedger(desc.base()),
		observers: observers,
	}
	s.resetTurn()
	return s, nil
}

func (d Descriptor) base() rally.Score {
	if d.ResumedScore != nil {
		return *d.ResumedScore
	}
	return rally.Score{}
}

// Descriptor returns the descriptor the session was created with.
func (s *Session) Descriptor() Descriptor {
	return s.desc
}

// MatchID returns the id of the match being recorded.
func (s *Session) MatchID() string {
	return s.desc.MatchID
}

// Turn returns a copy of the current turn state.
func (s *Session) Turn() TurnState {
	return s.turn.clone()
}

// Score returns the current score.
func (s *Session) Score() rally.Score {
	return s.ledger.Score()
}

// Shots returns the recorded shots in order.
func (s *Session) Shots() []rally.ShotRecord {
	return s.ledger.Shots()
}

// ScoreHistory returns the score after every shot, initial snapshot first.
func (s *Session) ScoreHistory() []rally.Score {
	return s.ledger.Scores()
}

// Phase derives the current state of the session.
func (s *Session) Phase() Phase {
	t := s.turn
	switch {
	case t.Finished:
		return Finished
	case s.desc.Format == turn.Singles && !t.InitialServerChosen:
		return AwaitingInitialServer
	case t.Hitter == "" || t.Receiver == "":
		return AwaitingPlayers
	case t.HitZone == "" && t.IsNewServe:
		return AwaitingServeZone
	case t.HitZone == "":
		return AwaitingHitZone
	case t.ReceiveZone == "":
		return AwaitingReceiveZone
	default:
		return ShotReady
	}
}

// RequiredServeZone returns the zone the next serve must start from. ok is
// false while no serve is pending.
func (s *Session) RequiredServeZone() (zone court.Zone, ok bool) {
	if !s.turn.IsNewServe || s.turn.ServingSide == "" {
		return "", false
	}
	return court.RequiredServeZone(s.ledger.Score().Of(s.turn.ServingSide)), true
}

// LegalShotTypes returns the shot types selectable for the pending shot.
func (s *Session) LegalShotTypes() []court.ShotType {
	switch {
	case s.turn.IsNewServe:
		return court.ServeShotTypes()
	case s.turn.HitZone != "":
		return court.LegalShotTypes(s.turn.HitZone)
	default:
		return nil
	}
}

// ChooseInitialServer picks the first server of a singles match. The other
// player receives.
func (s *Session) ChooseInitialServer(playerID string) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if s.desc.Format != turn.Singles {
		return fmt.Errorf("%w: initial server is chosen with player selection in doubles", ErrWrongPhase)
	}
	if s.turn.InitialServerChosen {
		return ErrInitialServerChosen
	}
	side, ok := s.desc.Teams.SideOf(playerID)
	if !ok {
		return &UnknownPlayerError{PlayerID: playerID, Role: "server"}
	}
	receiver, _ := s.desc.Teams.Opponent(playerID)

	s.turn.Hitter = playerID
	s.turn.Receiver = receiver
	s.turn.HitterCandidates = []string{playerID}
	s.turn.ReceiverCandidates = []string{receiver}
	s.turn.ServingSide = side
	s.turn.InitialServerChosen = true
	s.clearDraft()
	s.sync()
	return nil
}

// SelectPlayers fills the hitter and receiver of the next shot in doubles.
// The hitter must be one of the hitter candidates and the receiver must
// stand on the other side.
func (s *Session) SelectPlayers(hitter, receiver string) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if s.desc.Format != turn.Doubles {
		return fmt.Errorf("%w: players are resolved automatically in singles", ErrWrongPhase)
	}
	hitterSide, ok := s.desc.Teams.SideOf(hitter)
	if !ok || !slices.Contains(s.turn.HitterCandidates, hitter) {
		return &UnknownPlayerError{PlayerID: hitter, Role: "hitter"}
	}
	receiverSide, ok := s.desc.Teams.SideOf(receiver)
	if !ok || receiverSide == hitterSide || !slices.Contains(s.turn.ReceiverCandidates, receiver) {
		return &UnknownPlayerError{PlayerID: receiver, Role: "receiver"}
	}

	if s.turn.IsNewServe {
		if s.turn.Hitter != hitter {
			s.clearDraft()
		}
		s.turn.ServingSide = hitterSide
	}
	s.turn.Hitter = hitter
	s.turn.Receiver = receiver
	s.sync()
	return nil
}

// SelectCell handles a click on a court cell: the first click of a shot
// picks the hitting zone, the next one the receiving zone.
func (s *Session) SelectCell(z court.Zone) error {
	if s.turn.HitZone == "" {
		return s.SelectHitZone(z)
	}
	return s.SelectReceiveZone(z)
}

// SelectHitZone sets the zone the pending shot is played from. A serve is
// rejected unless z is the zone required by the server's score.
func (s *Session) SelectHitZone(z court.Zone) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if !z.Valid() {
		return fmt.Errorf("%w: unknown zone %q", ErrInvalidInput, z)
	}
	if s.turn.Hitter == "" || s.Phase() == AwaitingInitialServer {
		return fmt.Errorf("%w: choose the hitter first", ErrWrongPhase)
	}
	if s.turn.IsNewServe {
		required, _ := s.RequiredServeZone()
		if z != required {
			return &IllegalServeZoneError{
				Zone:        z,
				Required:    required,
				ServerScore: s.ledger.Score().Of(s.turn.ServingSide),
			}
		}
	}
	s.turn.HitZone = z
	s.turn.ShotType = court.DefaultShotType(z, s.turn.IsNewServe)
	s.sync()
	return nil
}

// SelectReceiveZone sets the zone the pending shot lands in.
func (s *Session) SelectReceiveZone(z court.Zone) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if !z.Valid() {
		return fmt.Errorf("%w: unknown zone %q", ErrInvalidInput, z)
	}
	if s.turn.HitZone == "" {
		return fmt.Errorf("%w: choose the hitting zone first", ErrWrongPhase)
	}
	s.turn.ReceiveZone = z
	s.sync()
	return nil
}

// SelectShotType sets the shot type of the pending shot. Only serves are
// selectable before a rally starts; afterwards the set depends on the band
// of the hitting zone.
func (s *Session) SelectShotType(t court.ShotType) error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	if !t.Valid() {
		return fmt.Errorf("%w: unknown shot type %q", ErrInvalidInput, t)
	}
	if s.turn.HitZone == "" {
		return fmt.Errorf("%w: choose the hitting zone first", ErrWrongPhase)
	}
	if !court.IsLegalShot(s.turn.HitZone, t, s.turn.IsNewServe) {
		return &IllegalShotTypeError{Zone: s.turn.HitZone, ShotType: t, Serving: s.turn.IsNewServe}
	}
	s.turn.ShotType = t
	return nil
}

// Submit records the pending shot with the given result, updates the score
// and resolves the next turn. Nothing changes when the shot is incomplete.
func (s *Session) Submit(result rally.Result) (rally.ShotRecord, error) {
	if s.turn.Finished {
		return rally.ShotRecord{}, ErrMatchFinished
	}
	if !result.Valid() {
		return rally.ShotRecord{}, fmt.Errorf("%w: unknown result %q", ErrInvalidInput, result)
	}
	t := s.turn
	switch {
	case t.Hitter == "":
		return rally.ShotRecord{}, &IncompleteShotError{Field: "hitter"}
	case t.Receiver == "":
		return rally.ShotRecord{}, &IncompleteShotError{Field: "receiver"}
	case t.HitZone == "":
		return rally.ShotRecord{}, &IncompleteShotError{Field: "hit zone"}
	case t.ReceiveZone == "":
		return rally.ShotRecord{}, &IncompleteShotError{Field: "receive zone"}
	case t.ShotType == "":
		return rally.ShotRecord{}, &IncompleteShotError{Field: "shot type"}
	}
	if !court.IsLegalShot(t.HitZone, t.ShotType, t.IsNewServe) {
		return rally.ShotRecord{}, &IllegalShotTypeError{Zone: t.HitZone, ShotType: t.ShotType, Serving: t.IsNewServe}
	}

	side, ok := s.desc.Teams.SideOf(t.Hitter)
	if !ok {
		return rally.ShotRecord{}, &UnknownPlayerError{PlayerID: t.Hitter, Role: "hitter"}
	}
	if rs, ok := s.desc.Teams.SideOf(t.Receiver); !ok || rs == side {
		return rally.ShotRecord{}, &UnknownPlayerError{PlayerID: t.Receiver, Role: "receiver"}
	}
	record := rally.NewShotRecord(s.desc.MatchID, t.Hitter, t.Receiver, side, t.HitZone, t.ReceiveZone, t.ShotType, result)
	score := s.ledger.Append(record)

	s.applyTurn(record, turn.Resolve(record, s.desc.Format, s.desc.Teams))
	if result == rally.Continue {
		s.turn.HitterOnTop = !t.HitterOnTop
	} else {
		s.turn.HitterOnTop = false
	}
	s.sync()

	for _, o := range s.observers {
		o.OnShotAppended(record, score)
	}
	return record, nil
}

// Undo removes the last recorded shot and rolls the score back. The turn is
// rebuilt as if the now-last shot had just been recorded; with no shots left
// the session returns to its pre-match state.
func (s *Session) Undo() (UndoResult, error) {
	if s.turn.Finished {
		return UndoResult{}, ErrMatchFinished
	}
	removed, last, ok := s.ledger.UndoLast()
	if !ok {
		return UndoResult{}, ErrEmptyLedgerUndo
	}

	res := UndoResult{Removed: removed, Score: s.ledger.Score()}
	if last == nil {
		s.resetTurn()
		res.Emptied = true
	} else {
		s.applyTurn(*last, turn.Resolve(*last, s.desc.Format, s.desc.Teams))
		s.restorePlayers(removed)
		s.turn.HitterOnTop = hitterOnTop(s.ledger.Shots())
		s.sync()
	}

	for _, o := range s.observers {
		o.OnShotUndone(removed, res.Score)
	}
	return res, nil
}

// Reset clears every recorded shot and returns to the pre-match state.
func (s *Session) Reset() error {
	if s.turn.Finished {
		return ErrMatchFinished
	}
	s.ledger.Reset()
	s.resetTurn()
	return nil
}

// Finish ends the match. The session rejects every operation afterwards.
func (s *Session) Finish() (MatchResult, error) {
	if s.turn.Finished {
		return MatchResult{}, ErrMatchFinished
	}
	s.turn.Finished = true
	s.sync()

	res := MatchResult{
		MatchID:      s.desc.MatchID,
		Format:       s.desc.Format,
		Teams:        s.desc.Teams,
		FinalScore:   s.ledger.Score(),
		Shots:        s.ledger.Shots(),
		ScoreHistory: s.ledger.Scores(),
	}
	for _, o := range s.observers {
		o.OnMatchFinished(res)
	}
	return res, nil
}

// applyTurn installs the resolved roles. A continuing rally starts the next
// shot where the last one landed.
func (s *Session) applyTurn(last rally.ShotRecord, next turn.Next) {
	s.turn.Hitter = next.Hitter
	s.turn.Receiver = next.Receiver
	s.turn.HitterCandidates = next.HitterCandidates
	s.turn.ReceiverCandidates = next.ReceiverCandidates
	s.turn.IsNewServe = next.IsNewServe
	s.turn.ServingSide = next.ServingSide
	s.turn.InitialServerChosen = true
	s.clearDraft()
	if !next.IsNewServe {
		s.turn.HitZone = last.ReceiveZone
		s.turn.ShotType = court.DefaultShotType(last.ReceiveZone, false)
	}
}

// restorePlayers refills doubles slots the resolver leaves open with the
// players of the shot that was just undone, when they still fit.
func (s *Session) restorePlayers(removed rally.ShotRecord) {
	if s.desc.Format != turn.Doubles {
		return
	}
	if s.turn.Hitter == "" && slices.Contains(s.turn.HitterCandidates, removed.Hitter) {
		s.turn.Hitter = removed.Hitter
	}
	if s.turn.Hitter == removed.Hitter && s.turn.Receiver == "" && slices.Contains(s.turn.ReceiverCandidates, removed.Receiver) {
		s.turn.Receiver = removed.Receiver
	}
}

func (s *Session) resetTurn() {
	all := append(slices.Clone(s.desc.Teams.A), s.desc.Teams.B...)
	s.turn = TurnState{
		HitterCandidates:   all,
		ReceiverCandidates: slices.Clone(all),
		IsNewServe:         true,
	}
	s.sync()
}

func (s *Session) clearDraft() {
	s.turn.HitZone = ""
	s.turn.ReceiveZone = ""
	s.turn.ShotType = ""
}

// sync recomputes the flags derived from the rest of the turn state.
func (s *Session) sync() {
	s.turn.AwaitingServeZone = !s.turn.Finished && s.Phase() == AwaitingServeZone
}

// hitterOnTop reports which half the hitter is drawn on: rallies start with
// the server at the bottom and swap halves on every continuing shot.
func hitterOnTop(shots []rally.ShotRecord) bool {
	top := false
	for i := len(shots) - 1; i >= 0 && shots[i].Result == rally.Continue; i-- {
		top = !top
	}
	return top
}
