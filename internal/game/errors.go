package game

import (
	"errors"
	"fmt"

	"ctchen222/rally-tracker/internal/court"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeIllegalServeZone    Code = "ILLEGAL_SERVE_ZONE"
	CodeIllegalShotType     Code = "ILLEGAL_SHOT_TYPE"
	CodeIncompleteShot      Code = "INCOMPLETE_SHOT"
	CodeEmptyLedgerUndo     Code = "EMPTY_LEDGER_UNDO"
	CodeCorruptSnapshot     Code = "CORRUPT_SNAPSHOT"
	CodeMatchFinished       Code = "MATCH_FINISHED"
	CodeWrongPhase          Code = "WRONG_PHASE"
	CodeUnknownPlayer       Code = "UNKNOWN_PLAYER"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInitialServerChosen Code = "INITIAL_SERVER_CHOSEN"
)

var (
	// ErrEmptyLedgerUndo is returned when undo is invoked with nothing recorded.
	// The session is left untouched.
	ErrEmptyLedgerUndo = errors.New("nothing to undo")
	// ErrMatchFinished is returned by every operation after Finish.
	ErrMatchFinished = errors.New("match already finished")
	// ErrInitialServerChosen is returned when the first server is picked twice.
	ErrInitialServerChosen = errors.New("initial server already chosen")
	// ErrWrongPhase is returned when an operation does not apply to the current phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrInvalidInput is returned for unknown zones, shot types, results or formats.
	ErrInvalidInput = errors.New("invalid input")
)

// IllegalServeZoneError reports a serve started from the wrong court.
type IllegalServeZoneError struct {
	Zone        court.Zone
	Required    court.Zone
	ServerScore int
}

func (e *IllegalServeZoneError) Error() string {
	return fmt.Sprintf("illegal serve position %s: with %d points the server must serve from %s", e.Zone, e.ServerScore, e.Required)
}

// IllegalShotTypeError reports a shot type that cannot be played from the hit zone.
type IllegalShotTypeError struct {
	Zone     court.Zone
	ShotType court.ShotType
	Serving  bool
}

func (e *IllegalShotTypeError) Error() string {
	if e.Serving {
		return fmt.Sprintf("shot type %s is not a serve", e.ShotType)
	}
	return fmt.Sprintf("shot type %s cannot be played from %s", e.ShotType, e.Zone)
}

// IncompleteShotError names the first missing field of a shot submission.
type IncompleteShotError struct {
	Field string
}

func (e *IncompleteShotError) Error() string {
	return fmt.Sprintf("shot is incomplete: %s is missing", e.Field)
}

// UnknownPlayerError reports a player id outside the match roster, or a
// player that cannot take the requested role.
type UnknownPlayerError struct {
	PlayerID string
	Role     string
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("player %q cannot be %s", e.PlayerID, e.Role)
}

// CorruptSnapshotError reports a snapshot that failed structural validation.
type CorruptSnapshotError struct {
	Reason string
	Err    error
}

func (e *CorruptSnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt snapshot: %s: %v", e.Reason, e.Err)
	}
	return "corrupt snapshot: " + e.Reason
}

func (e *CorruptSnapshotError) Unwrap() error {
	return e.Err
}

// CodeOf maps an error returned by the session to its code.
func CodeOf(err error) Code {
	var (
		serveErr    *IllegalServeZoneError
		shotTypeErr *IllegalShotTypeError
		incomplete  *IncompleteShotError
		playerErr   *UnknownPlayerError
		corrupt     *CorruptSnapshotError
	)
	switch {
	case errors.As(err, &serveErr):
		return CodeIllegalServeZone
	case errors.As(err, &shotTypeErr):
		return CodeIllegalShotType
	case errors.As(err, &incomplete):
		return CodeIncompleteShot
	case errors.As(err, &playerErr):
		return CodeUnknownPlayer
	case errors.As(err, &corrupt):
		return CodeCorruptSnapshot
	case errors.Is(err, ErrEmptyLedgerUndo):
		return CodeEmptyLedgerUndo
	case errors.Is(err, ErrMatchFinished):
		return CodeMatchFinished
	case errors.Is(err, ErrInitialServerChosen):
		return CodeInitialServerChosen
	case errors.Is(err, ErrWrongPhase):
		return CodeWrongPhase
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeUnknown
	}
}
