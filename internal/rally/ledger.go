package rally

import "slices"

// Ledger is the append-only log of shots of one match together with the
// score after every shot. scores always holds one more entry than shots.
type Ledger struct {
	shots  []ShotRecord
	scores []Score
}

// NewLedger creates an empty ledger whose initial snapshot is base.
func NewLedger(base Score) *Ledger {
	return &Ledger{
		shots:  make([]ShotRecord, 0, 64),
		scores: []Score{base},
	}
}

// Append records a shot and the score it produces.
func (l *Ledger) Append(shot ShotRecord) Score {
	next := shot.Apply(l.Score())
	l.shots = append(l.shots, shot)
	l.scores = append(l.scores, next)
	return next
}

// UndoLast removes the most recent shot and its score snapshot. It returns
// the removed record and the record that is now the most recent one; ok is
// false when the ledger was already empty.
func (l *Ledger) UndoLast() (removed ShotRecord, last *ShotRecord, ok bool) {
	if len(l.shots) == 0 {
		return ShotRecord{}, nil, false
	}
	removed = l.shots[len(l.shots)-1]
	l.shots = l.shots[:len(l.shots)-1]
	l.scores = l.scores[:len(l.scores)-1]
	if len(l.shots) > 0 {
		prev := l.shots[len(l.shots)-1]
		last = &prev
	}
	return removed, last, true
}

// Reset drops every shot and returns to the initial snapshot.
func (l *Ledger) Reset() {
	l.shots = l.shots[:0]
	l.scores = l.scores[:1]
}

// Len returns the number of recorded shots.
func (l *Ledger) Len() int {
	return len(l.shots)
}

// Score returns the current score.
func (l *Ledger) Score() Score {
	return l.scores[len(l.scores)-1]
}

// Base returns the initial snapshot.
func (l *Ledger) Base() Score {
	return l.scores[0]
}

// Last returns the most recent shot.
func (l *Ledger) Last() (ShotRecord, bool) {
	if len(l.shots) == 0 {
		return ShotRecord{}, false
	}
	return l.shots[len(l.shots)-1], true
}

// Shots returns a copy of the recorded shots in order.
func (l *Ledger) Shots() []ShotRecord {
	return slices.Clone(l.shots)
}

// Scores returns a copy of the score history, initial snapshot first.
func (l *Ledger) Scores() []Score {
	return slices.Clone(l.scores)
}

// Replay rebuilds a ledger from base by appending shots in order.
func Replay(base Score, shots []ShotRecord) *Ledger {
	l := NewLedger(base)
	for _, s := range shots {
		l.Append(s)
	}
	return l
}
