package game

import "ctchen222/rally-tracker/internal/rally"

// Observer receives the events of a session after each operation has been
// applied. Implementations must not call back into the session.
type Observer interface {
	OnShotAppended(shot rally.ShotRecord, score rally.Score)
	OnShotUndone(shot rally.ShotRecord, score rally.Score)
	OnMatchFinished(result MatchResult)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	ShotAppended  func(shot rally.ShotRecord, score rally.Score)
	ShotUndone    func(shot rally.ShotRecord, score rally.Score)
	MatchFinished func(result MatchResult)
}

func (f ObserverFuncs) OnShotAppended(shot rally.ShotRecord, score rally.Score) {
	if f.ShotAppended != nil {
		f.ShotAppended(shot, score)
	}
}

func (f ObserverFuncs) OnShotUndone(shot rally.ShotRecord, score rally.Score) {
	if f.ShotUndone != nil {
		f.ShotUndone(shot, score)
	}
}

func (f ObserverFuncs) OnMatchFinished(result MatchResult) {
	if f.MatchFinished != nil {
		f.MatchFinished(result)
	}
}
