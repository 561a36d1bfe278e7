package service

import (
	"context"
	"errors"

	"ctchen222/rally-tracker/internal/api/models"
	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/hub"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/repository"
	"ctchen222/rally-tracker/internal/room"
)

// Rooms gives access to the open matches.
type Rooms interface {
	Open(ctx context.Context, desc game.Descriptor) (*room.Room, error)
	Get(matchID string) (*room.Room, error)
}

// MatchService defines the interface for match-related business logic.
type MatchService interface {
	Create(ctx context.Context, req *models.CreateMatchRequest) (game.View, error)
	View(ctx context.Context, matchID string) (game.View, error)
	ChooseServer(ctx context.Context, matchID string, req *models.ChooseServerRequest) (game.View, error)
	SelectPlayers(ctx context.Context, matchID string, req *models.SelectPlayersRequest) (game.View, error)
	SelectHitZone(ctx context.Context, matchID string, zone court.Zone) (game.View, error)
	SelectReceiveZone(ctx context.Context, matchID string, zone court.Zone) (game.View, error)
	SelectShotType(ctx context.Context, matchID string, shotType court.ShotType) (game.View, error)
	SubmitShot(ctx context.Context, matchID string, result rally.Result) (*models.ShotResponse, error)
	Undo(ctx context.Context, matchID string) (*models.UndoResponse, error)
	Reset(ctx context.Context, matchID string) (game.View, error)
	Finish(ctx context.Context, matchID string) (game.MatchResult, error)
	Shots(ctx context.Context, matchID string) ([]rally.ShotRecord, error)
	Result(ctx context.Context, matchID string) (*repository.MatchRecord, error)
}

type matchService struct {
	rooms   Rooms
	matches repository.MatchRepository
}

// NewMatchService creates a new MatchService.
func NewMatchService(rooms Rooms, matches repository.MatchRepository) MatchService {
	return &matchService{rooms: rooms, matches: matches}
}

// Create opens a new match.
func (s *matchService) Create(ctx context.Context, req *models.CreateMatchRequest) (game.View, error) {
	r, err := s.rooms.Open(ctx, req.Descriptor())
	if err != nil {
		return game.View{}, err
	}
	return r.View(), nil
}

// View returns the current state of an open match.
func (s *matchService) View(ctx context.Context, matchID string) (game.View, error) {
	r, err := s.rooms.Get(matchID)
	if err != nil {
		return game.View{}, err
	}
	return r.View(), nil
}

func (s *matchService) apply(matchID string, op func(r *room.Room) error) (game.View, error) {
	r, err := s.rooms.Get(matchID)
	if err != nil {
		return game.View{}, err
	}
	if err := op(r); err != nil {
		return game.View{}, err
	}
	return r.View(), nil
}

func (s *matchService) ChooseServer(ctx context.Context, matchID string, req *models.ChooseServerRequest) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.ChooseInitialServer(ctx, req.PlayerID)
	})
}

func (s *matchService) SelectPlayers(ctx context.Context, matchID string, req *models.SelectPlayersRequest) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.SelectPlayers(ctx, req.Hitter, req.Receiver)
	})
}

func (s *matchService) SelectHitZone(ctx context.Context, matchID string, zone court.Zone) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.SelectHitZone(ctx, zone)
	})
}

func (s *matchService) SelectReceiveZone(ctx context.Context, matchID string, zone court.Zone) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.SelectReceiveZone(ctx, zone)
	})
}

func (s *matchService) SelectShotType(ctx context.Context, matchID string, shotType court.ShotType) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.SelectShotType(ctx, shotType)
	})
}

// SubmitShot records the pending shot of a match.
func (s *matchService) SubmitShot(ctx context.Context, matchID string, result rally.Result) (*models.ShotResponse, error) {
	var shot rally.ShotRecord
	view, err := s.apply(matchID, func(r *room.Room) error {
		var err error
		shot, err = r.Submit(ctx, result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.ShotResponse{Shot: shot, View: view}, nil
}

// Undo removes the last recorded shot of a match.
func (s *matchService) Undo(ctx context.Context, matchID string) (*models.UndoResponse, error) {
	var res game.UndoResult
	view, err := s.apply(matchID, func(r *room.Room) error {
		var err error
		res, err = r.Undo(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.UndoResponse{Undo: res, View: view}, nil
}

func (s *matchService) Reset(ctx context.Context, matchID string) (game.View, error) {
	return s.apply(matchID, func(r *room.Room) error {
		return r.Reset(ctx)
	})
}

// Finish ends a match and returns its final ledger and score.
func (s *matchService) Finish(ctx context.Context, matchID string) (game.MatchResult, error) {
	r, err := s.rooms.Get(matchID)
	if err != nil {
		return game.MatchResult{}, err
	}
	return r.Finish(ctx)
}

// Shots returns the ledger of an open match, or of a completed one once it
// has been closed.
func (s *matchService) Shots(ctx context.Context, matchID string) ([]rally.ShotRecord, error) {
	r, err := s.rooms.Get(matchID)
	if err == nil {
		return r.Shots(), nil
	}
	if !errors.Is(err, hub.ErrMatchNotFound) {
		return nil, err
	}
	record, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return record.Shots, nil
}

// Result returns a completed match.
func (s *matchService) Result(ctx context.Context, matchID string) (*repository.MatchRecord, error) {
	return s.matches.FindByID(ctx, matchID)
}
