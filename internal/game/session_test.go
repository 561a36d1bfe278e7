package game

import (
	"errors"
	"testing"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singles(t *testing.T, observers ...Observer) *Session {
	t.Helper()
	s, err := NewSession(Descriptor{
		MatchID: "m1",
		Format:  turn.Singles,
		Teams:   turn.Teams{A: []string{"A"}, B: []string{"B"}},
	}, observers...)
	require.NoError(t, err)
	return s
}

func doubles(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(Descriptor{
		MatchID: "d1",
		Format:  turn.Doubles,
		Teams:   turn.Teams{A: []string{"A1", "A2"}, B: []string{"B1", "B2"}},
	})
	require.NoError(t, err)
	return s
}

// serveShort records the opening serve A -> B landing near center.
func serveShort(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.ChooseInitialServer("A"))
	require.NoError(t, s.SelectCell(court.MidRight))
	require.NoError(t, s.SelectShotType(court.ServeShort))
	require.NoError(t, s.SelectCell(court.NearCenter))
	_, err := s.Submit(rally.Continue)
	require.NoError(t, err)
}

func assertLedgerInvariant(t *testing.T, s *Session) {
	t.Helper()
	assert.Len(t, s.ScoreHistory(), len(s.Shots())+1)
}

func TestNewSession_RejectsBadRoster(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{name: "missing match id", desc: Descriptor{Format: turn.Singles, Teams: turn.Teams{A: []string{"A"}, B: []string{"B"}}}},
		{name: "unknown format", desc: Descriptor{MatchID: "m", Format: "triples", Teams: turn.Teams{A: []string{"A"}, B: []string{"B"}}}},
		{name: "doubles with one player", desc: Descriptor{MatchID: "m", Format: turn.Doubles, Teams: turn.Teams{A: []string{"A"}, B: []string{"B"}}}},
		{name: "duplicate player", desc: Descriptor{MatchID: "m", Format: turn.Singles, Teams: turn.Teams{A: []string{"A"}, B: []string{"A"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.desc)
			require.Error(t, err)
			assert.Equal(t, CodeInvalidInput, CodeOf(err))
		})
	}
}

func TestSession_SinglesServeScenario(t *testing.T) {
	s := singles(t)
	assert.Equal(t, AwaitingInitialServer, s.Phase())

	require.NoError(t, s.ChooseInitialServer("A"))
	assert.Equal(t, AwaitingServeZone, s.Phase())
	assert.True(t, s.Turn().AwaitingServeZone)

	zone, ok := s.RequiredServeZone()
	require.True(t, ok)
	assert.Equal(t, court.MidRight, zone)

	require.NoError(t, s.SelectCell(court.MidRight))
	assert.ElementsMatch(t, []court.ShotType{court.ServeShort, court.ServeLong}, s.LegalShotTypes())
	require.NoError(t, s.SelectShotType(court.ServeShort))
	require.NoError(t, s.SelectCell(court.NearCenter))
	assert.Equal(t, ShotReady, s.Phase())

	rec, err := s.Submit(rally.Continue)
	require.NoError(t, err)
	assert.Equal(t, "A", rec.Hitter)
	assert.Equal(t, "B", rec.Receiver)
	assert.Equal(t, court.ServeShort, rec.ShotType)

	assert.Len(t, s.Shots(), 1)
	assert.Equal(t, rally.Score{}, s.Score())
	tr := s.Turn()
	assert.Equal(t, "B", tr.Hitter)
	assert.Equal(t, "A", tr.Receiver)
	assert.False(t, tr.IsNewServe)
	assert.Equal(t, court.NearCenter, tr.HitZone)
	assert.True(t, tr.HitterOnTop)
	assert.Equal(t, AwaitingReceiveZone, s.Phase())
	assertLedgerInvariant(t, s)
}

func TestSession_MissGivesPointToOpponent(t *testing.T) {
	s := singles(t)
	serveShort(t, s)

	require.NoError(t, s.SelectShotType(court.Smash))
	require.NoError(t, s.SelectReceiveZone(court.FarLeft))
	_, err := s.Submit(rally.Miss)
	require.NoError(t, err)

	assert.Equal(t, rally.Score{A: 1, B: 0}, s.Score())
	tr := s.Turn()
	assert.Equal(t, "A", tr.Hitter)
	assert.Equal(t, "B", tr.Receiver)
	assert.True(t, tr.IsNewServe)
	assert.False(t, tr.HitterOnTop)
	assert.Equal(t, AwaitingServeZone, s.Phase())

	zone, ok := s.RequiredServeZone()
	require.True(t, ok)
	assert.Equal(t, court.MidLeft, zone)
	assertLedgerInvariant(t, s)
}

func TestSession_PointKeepsServe(t *testing.T) {
	s := singles(t)
	serveShort(t, s)

	// B wins the rally outright and serves next.
	require.NoError(t, s.SelectReceiveZone(court.FarRight))
	_, err := s.Submit(rally.Point)
	require.NoError(t, err)

	assert.Equal(t, rally.Score{B: 1}, s.Score())
	tr := s.Turn()
	assert.Equal(t, "B", tr.Hitter)
	assert.Equal(t, "A", tr.Receiver)
	zone, _ := s.RequiredServeZone()
	assert.Equal(t, court.MidLeft, zone)
}

func TestSession_UndoAfterMiss(t *testing.T) {
	s := singles(t)
	serveShort(t, s)
	require.NoError(t, s.SelectShotType(court.Smash))
	require.NoError(t, s.SelectReceiveZone(court.FarLeft))
	_, err := s.Submit(rally.Miss)
	require.NoError(t, err)

	res, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, rally.Miss, res.Removed.Result)
	assert.False(t, res.Emptied)
	assert.Equal(t, rally.Score{}, s.Score())
	assert.Len(t, s.Shots(), 1)

	// The serve is now the last shot: B is back on the shuttle where it landed.
	tr := s.Turn()
	assert.Equal(t, "B", tr.Hitter)
	assert.Equal(t, "A", tr.Receiver)
	assert.Equal(t, court.NearCenter, tr.HitZone)
	assert.Equal(t, court.Smash, tr.ShotType)
	assert.Empty(t, tr.ReceiveZone)
	assert.True(t, tr.HitterOnTop)
	assertLedgerInvariant(t, s)

	res, err = s.Undo()
	require.NoError(t, err)
	assert.True(t, res.Emptied)
	assert.Equal(t, AwaitingInitialServer, s.Phase())
	assert.Empty(t, s.Turn().Hitter)

	// Once drained the server can be chosen again.
	require.NoError(t, s.ChooseInitialServer("A"))
	zone, _ := s.RequiredServeZone()
	assert.Equal(t, court.MidRight, zone)
}

func TestSession_UndoOnEmptyLedger(t *testing.T) {
	s := singles(t)
	require.NoError(t, s.ChooseInitialServer("B"))
	before := s.Turn()

	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrEmptyLedgerUndo)
	assert.Equal(t, CodeEmptyLedgerUndo, CodeOf(err))
	assert.Equal(t, before, s.Turn())
}

func TestSession_UndoRestoresServeAfterRallyEnd(t *testing.T) {
	s := singles(t)
	serveShort(t, s)
	require.NoError(t, s.SelectReceiveZone(court.FarRight))
	_, err := s.Submit(rally.Point)
	require.NoError(t, err)

	// B serves at 0-1 from the left court.
	require.NoError(t, s.SelectHitZone(court.MidLeft))
	require.NoError(t, s.SelectReceiveZone(court.FarCenter))
	_, err = s.Submit(rally.Continue)
	require.NoError(t, err)

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, AwaitingServeZone, s.Phase())
	tr := s.Turn()
	assert.Equal(t, "B", tr.Hitter)
	assert.True(t, tr.IsNewServe)
	assert.False(t, tr.HitterOnTop)
	zone, _ := s.RequiredServeZone()
	assert.Equal(t, court.MidLeft, zone)
}

func TestSession_IllegalServeZoneDoesNotMutate(t *testing.T) {
	s := singles(t)
	require.NoError(t, s.ChooseInitialServer("A"))
	before := s.Turn()

	err := s.SelectCell(court.MidLeft)
	var serveErr *IllegalServeZoneError
	require.ErrorAs(t, err, &serveErr)
	assert.Equal(t, court.MidRight, serveErr.Required)
	assert.Equal(t, 0, serveErr.ServerScore)
	assert.Equal(t, CodeIllegalServeZone, CodeOf(err))
	assert.Equal(t, before, s.Turn())
	assert.Empty(t, s.Shots())
}

func TestSession_IncompleteShot(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Session)
		field string
	}{
		{
			name:  "no server",
			setup: func(t *testing.T, s *Session) {},
			field: "hitter",
		},
		{
			name: "no hit zone",
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.ChooseInitialServer("A"))
			},
			field: "hit zone",
		},
		{
			name: "no receive zone",
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.ChooseInitialServer("A"))
				require.NoError(t, s.SelectHitZone(court.MidRight))
			},
			field: "receive zone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := singles(t)
			tt.setup(t, s)
			before := s.Turn()

			_, err := s.Submit(rally.Continue)
			var incomplete *IncompleteShotError
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, tt.field, incomplete.Field)
			assert.Equal(t, before, s.Turn())
			assert.Empty(t, s.Shots())
		})
	}
}

func TestSession_ShotTypeRestrictions(t *testing.T) {
	s := singles(t)
	require.NoError(t, s.ChooseInitialServer("A"))
	require.NoError(t, s.SelectHitZone(court.MidRight))

	err := s.SelectShotType(court.Smash)
	var typeErr *IllegalShotTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.True(t, typeErr.Serving)

	require.NoError(t, s.SelectShotType(court.ServeLong))
	require.NoError(t, s.SelectReceiveZone(court.FarLeft))
	_, err = s.Submit(rally.Continue)
	require.NoError(t, err)

	// B now hits from the far band where a smash is not available.
	err = s.SelectShotType(court.Smash)
	require.ErrorAs(t, err, &typeErr)
	assert.False(t, typeErr.Serving)
	assert.Equal(t, court.FarLeft, typeErr.Zone)

	require.NoError(t, s.SelectShotType(court.Lob))
	assert.Equal(t, court.Lob, s.Turn().ShotType)

	err = s.SelectShotType("volley")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSession_CrossShotFlag(t *testing.T) {
	s := singles(t)
	require.NoError(t, s.ChooseInitialServer("A"))
	require.NoError(t, s.SelectHitZone(court.MidRight))
	require.NoError(t, s.SelectReceiveZone(court.FarLeft))
	rec, err := s.Submit(rally.Continue)
	require.NoError(t, err)
	assert.True(t, rec.IsCross)

	require.NoError(t, s.SelectReceiveZone(court.NearLeft))
	rec, err = s.Submit(rally.Continue)
	require.NoError(t, err)
	assert.False(t, rec.IsCross)
}

func TestSession_OrientationFlipsEachContinue(t *testing.T) {
	s := singles(t)
	serveShort(t, s)
	assert.True(t, s.Turn().HitterOnTop)

	for i, want := range []bool{false, true, false} {
		require.NoError(t, s.SelectReceiveZone(court.MidCenter), "shot %d", i)
		_, err := s.Submit(rally.Continue)
		require.NoError(t, err)
		assert.Equal(t, want, s.Turn().HitterOnTop, "shot %d", i)
	}

	require.NoError(t, s.SelectReceiveZone(court.MidCenter))
	_, err := s.Submit(rally.Point)
	require.NoError(t, err)
	assert.False(t, s.Turn().HitterOnTop)
}

func TestSession_InitialServerOnlyOnce(t *testing.T) {
	s := singles(t)
	err := s.ChooseInitialServer("Z")
	var playerErr *UnknownPlayerError
	require.ErrorAs(t, err, &playerErr)

	require.NoError(t, s.ChooseInitialServer("B"))
	assert.ErrorIs(t, s.ChooseInitialServer("A"), ErrInitialServerChosen)

	assert.ErrorIs(t, s.SelectPlayers("A", "B"), ErrWrongPhase)
}

func TestSession_ResumedScoreDrivesServeZone(t *testing.T) {
	resumed := rally.Score{A: 5, B: 3}
	s, err := NewSession(Descriptor{
		MatchID:      "m2",
		Format:       turn.Singles,
		Teams:        turn.Teams{A: []string{"A"}, B: []string{"B"}},
		ResumedScore: &resumed,
	})
	require.NoError(t, err)

	require.NoError(t, s.ChooseInitialServer("A"))
	zone, _ := s.RequiredServeZone()
	assert.Equal(t, court.MidLeft, zone)

	require.NoError(t, s.SelectHitZone(court.MidLeft))
	require.NoError(t, s.SelectReceiveZone(court.NearRight))
	_, err = s.Submit(rally.Point)
	require.NoError(t, err)
	assert.Equal(t, rally.Score{A: 6, B: 3}, s.Score())

	require.NoError(t, s.Reset())
	assert.Equal(t, resumed, s.Score())
	assert.Equal(t, AwaitingInitialServer, s.Phase())
}

func TestSession_Doubles(t *testing.T) {
	s := doubles(t)
	assert.Equal(t, AwaitingPlayers, s.Phase())

	var playerErr *UnknownPlayerError
	require.ErrorAs(t, s.SelectPlayers("A1", "A2"), &playerErr)
	assert.ErrorIs(t, s.ChooseInitialServer("A1"), ErrWrongPhase)

	require.NoError(t, s.SelectPlayers("A1", "B2"))
	assert.Equal(t, AwaitingServeZone, s.Phase())
	require.NoError(t, s.SelectHitZone(court.MidRight))
	require.NoError(t, s.SelectReceiveZone(court.NearCenter))
	_, err := s.Submit(rally.Continue)
	require.NoError(t, err)

	// B2 returns; the receiver is picked from the team that just hit.
	tr := s.Turn()
	assert.Equal(t, "B2", tr.Hitter)
	assert.Empty(t, tr.Receiver)
	assert.ElementsMatch(t, []string{"A1", "A2"}, tr.ReceiverCandidates)
	assert.Equal(t, AwaitingPlayers, s.Phase())

	_, err = s.Submit(rally.Continue)
	var incomplete *IncompleteShotError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "receiver", incomplete.Field)

	require.ErrorAs(t, s.SelectPlayers("B1", "A2"), &playerErr)
	require.NoError(t, s.SelectPlayers("B2", "A2"))
	require.NoError(t, s.SelectReceiveZone(court.FarRight))
	_, err = s.Submit(rally.Miss)
	require.NoError(t, err)

	// B2 missed: side A serves from the left court at 1-0.
	assert.Equal(t, rally.Score{A: 1}, s.Score())
	tr = s.Turn()
	assert.Empty(t, tr.Hitter)
	assert.ElementsMatch(t, []string{"A1", "A2"}, tr.HitterCandidates)
	assert.ElementsMatch(t, []string{"B1", "B2"}, tr.ReceiverCandidates)
	zone, ok := s.RequiredServeZone()
	require.True(t, ok)
	assert.Equal(t, court.MidLeft, zone)

	// Undo refills the doubles slots from the undone shot.
	_, err = s.Undo()
	require.NoError(t, err)
	tr = s.Turn()
	assert.Equal(t, "B2", tr.Hitter)
	assert.Equal(t, "A2", tr.Receiver)
	assert.Equal(t, court.NearCenter, tr.HitZone)

	res, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, res.Emptied)
	tr = s.Turn()
	assert.Empty(t, tr.Hitter)
	assert.Empty(t, tr.Receiver)
	assert.Equal(t, AwaitingPlayers, s.Phase())
}

func TestSession_Finish(t *testing.T) {
	var finished []MatchResult
	s := singles(t, ObserverFuncs{MatchFinished: func(r MatchResult) { finished = append(finished, r) }})
	serveShort(t, s)
	require.NoError(t, s.SelectReceiveZone(court.FarCenter))
	_, err := s.Submit(rally.Point)
	require.NoError(t, err)

	res, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, "m1", res.MatchID)
	assert.Equal(t, rally.Score{B: 1}, res.FinalScore)
	assert.Len(t, res.Shots, 2)
	assert.Len(t, res.ScoreHistory, 3)
	require.Len(t, finished, 1)
	assert.Equal(t, Finished, s.Phase())

	checks := []error{
		func() error { _, err := s.Finish(); return err }(),
		func() error { _, err := s.Undo(); return err }(),
		func() error { _, err := s.Submit(rally.Continue); return err }(),
		s.SelectCell(court.MidRight),
		s.SelectShotType(court.Clear),
		s.Reset(),
	}
	for i, err := range checks {
		assert.True(t, errors.Is(err, ErrMatchFinished), "check %d: %v", i, err)
	}
	assert.Len(t, s.Shots(), 2)
}

func TestSession_ObserverSeesEveryMutation(t *testing.T) {
	var appended, undone []rally.Score
	s := singles(t, ObserverFuncs{
		ShotAppended: func(_ rally.ShotRecord, score rally.Score) { appended = append(appended, score) },
		ShotUndone:   func(_ rally.ShotRecord, score rally.Score) { undone = append(undone, score) },
	})
	serveShort(t, s)
	require.NoError(t, s.SelectReceiveZone(court.FarCenter))
	_, err := s.Submit(rally.Miss)
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	assert.Equal(t, []rally.Score{{}, {A: 1}}, appended)
	assert.Equal(t, []rally.Score{{}}, undone)
}

func TestSession_LedgerInvariantAcrossOperations(t *testing.T) {
	s := singles(t)
	assertLedgerInvariant(t, s)
	require.NoError(t, s.ChooseInitialServer("A"))

	results := []rally.Result{rally.Continue, rally.Continue, rally.Point, rally.Continue, rally.Miss, rally.Miss, rally.Point}
	for _, r := range results {
		if z, ok := s.RequiredServeZone(); ok {
			require.NoError(t, s.SelectHitZone(z))
		}
		require.NoError(t, s.SelectReceiveZone(court.MidCenter))
		_, err := s.Submit(r)
		require.NoError(t, err)
		assertLedgerInvariant(t, s)
	}
	assert.Equal(t, rally.Score{A: 2, B: 2}, s.Score())

	for range results {
		_, err := s.Undo()
		require.NoError(t, err)
		assertLedgerInvariant(t, s)
	}
	assert.Equal(t, rally.Score{}, s.Score())
	assert.Equal(t, AwaitingInitialServer, s.Phase())
}

func TestSession_View(t *testing.T) {
	s := singles(t)

	v := s.View()
	assert.Equal(t, AwaitingInitialServer, v.Phase)
	assert.Empty(t, v.RequiredServeZone)
	assert.Empty(t, v.LegalShotTypes)
	assert.NotNil(t, v.LegalShotTypes)

	require.NoError(t, s.ChooseInitialServer("A"))
	v = s.View()
	assert.Equal(t, AwaitingServeZone, v.Phase)
	assert.Equal(t, court.MidRight, v.RequiredServeZone)
	assert.Equal(t, court.ServeShotTypes(), v.LegalShotTypes)

	require.NoError(t, s.SelectCell(court.MidRight))
	require.NoError(t, s.SelectCell(court.NearCenter))
	_, err := s.Submit(rally.Continue)
	require.NoError(t, err)
	v = s.View()
	assert.Equal(t, 1, v.ShotCount)
	assert.Equal(t, "B", v.Turn.Hitter)
	assert.Empty(t, v.RequiredServeZone)

	v.Turn.HitterCandidates[0] = "changed"
	assert.Equal(t, "B", s.Turn().HitterCandidates[0])
}

func TestSession_SubmitRejectsReceiverOnHitterSide(t *testing.T) {
	s := singles(t)
	require.NoError(t, s.ChooseInitialServer("A"))
	require.NoError(t, s.SelectCell(court.MidRight))
	require.NoError(t, s.SelectCell(court.NearCenter))
	s.turn.Receiver = "A"

	_, err := s.Submit(rally.Continue)
	var playerErr *UnknownPlayerError
	require.ErrorAs(t, err, &playerErr)
	assert.Equal(t, "receiver", playerErr.Role)
	assert.Equal(t, CodeUnknownPlayer, CodeOf(err))
	assert.Empty(t, s.Shots())
	assertLedgerInvariant(t, s)
}
