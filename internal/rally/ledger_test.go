package rally

import (
	"testing"

	"ctchen222/rally-tracker/internal/court"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shot(side Side, result Result) ShotRecord {
	hitter, receiver := "alice", "bob"
	if side == SideB {
		hitter, receiver = receiver, hitter
	}
	return NewShotRecord("m1", hitter, receiver, side, court.MidRight, court.NearCenter, court.Drive, result)
}

func TestLedger_AppendScoring(t *testing.T) {
	tests := []struct {
		name string
		shot ShotRecord
		want Score
	}{
		{name: "continue keeps score", shot: shot(SideA, Continue), want: Score{}},
		{name: "point scores for hitter", shot: shot(SideA, Point), want: Score{A: 1}},
		{name: "miss scores for opponent", shot: shot(SideB, Miss), want: Score{A: 1}},
		{name: "point by side B", shot: shot(SideB, Point), want: Score{B: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(Score{})
			got := l.Append(tt.shot)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, l.Score())
			assert.Len(t, l.Scores(), l.Len()+1)
		})
	}
}

func TestLedger_UndoIsInverseOfAppend(t *testing.T) {
	l := NewLedger(Score{A: 3, B: 2})
	l.Append(shot(SideA, Continue))
	l.Append(shot(SideB, Point))

	beforeShots, beforeScores := l.Shots(), l.Scores()

	for _, r := range []Result{Continue, Point, Miss} {
		l.Append(shot(SideA, r))
		removed, last, ok := l.UndoLast()
		require.True(t, ok)
		assert.Equal(t, r, removed.Result)
		require.NotNil(t, last)
		assert.Equal(t, Point, last.Result)
		assert.Equal(t, beforeShots, l.Shots())
		assert.Equal(t, beforeScores, l.Scores())
	}
}

func TestLedger_UndoDrainsToEmpty(t *testing.T) {
	l := NewLedger(Score{})
	for i := 0; i < 5; i++ {
		l.Append(shot(SideA, Miss))
	}
	assert.Equal(t, Score{B: 5}, l.Score())

	for i := 0; i < 4; i++ {
		_, last, ok := l.UndoLast()
		require.True(t, ok)
		require.NotNil(t, last)
		assert.Len(t, l.Scores(), l.Len()+1)
	}

	_, last, ok := l.UndoLast()
	require.True(t, ok)
	assert.Nil(t, last)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, []Score{{}}, l.Scores())

	_, _, ok = l.UndoLast()
	assert.False(t, ok)
}

func TestLedger_ResetReturnsToBase(t *testing.T) {
	base := Score{A: 10, B: 11}
	l := NewLedger(base)
	l.Append(shot(SideA, Point))
	l.Append(shot(SideB, Miss))

	l.Reset()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, base, l.Score())
	assert.Equal(t, []Score{base}, l.Scores())
	_, ok := l.Last()
	assert.False(t, ok)
}

func TestLedger_ShotsAreCopies(t *testing.T) {
	l := NewLedger(Score{})
	l.Append(shot(SideA, Continue))

	shots := l.Shots()
	shots[0].Hitter = "mallory"

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "alice", last.Hitter)
}

func TestReplay(t *testing.T) {
	shots := []ShotRecord{shot(SideA, Continue), shot(SideB, Miss), shot(SideA, Point)}
	l := Replay(Score{}, shots)
	assert.Equal(t, []Score{{}, {}, {A: 1}, {A: 2}}, l.Scores())
}

func TestNewShotRecord_DerivesCross(t *testing.T) {
	r := NewShotRecord("m1", "a", "b", SideA, court.FarLeft, court.NearRight, court.Clear, Continue)
	assert.True(t, r.IsCross)

	r = NewShotRecord("m1", "a", "b", SideA, court.FarLeft, court.NearLeft, court.Clear, Continue)
	assert.False(t, r.IsCross)
}
