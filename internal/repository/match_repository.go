package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/turn"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrMatchNotFound is returned when no completed match is stored under an id.
var ErrMatchNotFound = errors.New("match not found")

// MatchRecord is a completed match as stored in the database.
type MatchRecord struct {
	ID         string    `db:"id" json:"id"`
	Format     string    `db:"format" json:"format"`
	TeamA      string    `db:"team_a" json:"-"`
	TeamB      string    `db:"team_b" json:"-"`
	ScoreA     int       `db:"score_a" json:"score_a"`
	ScoreB     int       `db:"score_b" json:"score_b"`
	ShotCount  int       `db:"shot_count" json:"shot_count"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`

	Roster turn.Teams         `db:"-" json:"teams"`
	Shots  []rally.ShotRecord `db:"-" json:"shots"`
}

// Teams decodes the stored rosters.
func (m *MatchRecord) Teams() (turn.Teams, error) {
	var t turn.Teams
	if err := json.Unmarshal([]byte(m.TeamA), &t.A); err != nil {
		return t, fmt.Errorf("failed to decode team a: %w", err)
	}
	if err := json.Unmarshal([]byte(m.TeamB), &t.B); err != nil {
		return t, fmt.Errorf("failed to decode team b: %w", err)
	}
	return t, nil
}

type shotRow struct {
	MatchID     string `db:"match_id"`
	Seq         int    `db:"seq"`
	Hitter      string `db:"hitter"`
	Receiver    string `db:"receiver"`
	HitterSide  string `db:"hitter_side"`
	HitZone     string `db:"hit_zone"`
	ReceiveZone string `db:"receive_zone"`
	ShotType    string `db:"shot_type"`
	Result      string `db:"result"`
	IsCross     bool   `db:"is_cross"`
	ScoreA      int    `db:"score_a"`
	ScoreB      int    `db:"score_b"`
}

// MatchRepository stores completed matches.
type MatchRepository interface {
	SaveResult(ctx context.Context, res game.MatchResult, finishedAt time.Time) error
	FindByID(ctx context.Context, id string) (*MatchRecord, error)
}

type sqliteMatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new SQLite-based MatchRepository.
func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqliteMatchRepository{db: db}
}

// SaveResult writes the match row and its full ledger in one transaction.
func (r *sqliteMatchRepository) SaveResult(ctx context.Context, res game.MatchResult, finishedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "MatchRepository.SaveResult", trace.WithAttributes(
		attribute.String("match.id", res.MatchID),
		attribute.Int("ledger.length", len(res.Shots)),
	))
	defer span.End()

	teamA, err := json.Marshal(res.Teams.A)
	if err != nil {
		return fmt.Errorf("failed to encode team a: %w", err)
	}
	teamB, err := json.Marshal(res.Teams.B)
	if err != nil {
		return fmt.Errorf("failed to encode team b: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO matches (id, format, team_a, team_b, score_a, score_b, shot_count, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, res.MatchID, string(res.Format), string(teamA), string(teamB),
		res.FinalScore.A, res.FinalScore.B, len(res.Shots), finishedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	if len(res.Shots) > 0 {
		rows := make([]shotRow, len(res.Shots))
		for i, s := range res.Shots {
			score := res.ScoreHistory[i+1]
			rows[i] = shotRow{
				MatchID:     res.MatchID,
				Seq:         i,
				Hitter:      s.Hitter,
				Receiver:    s.Receiver,
				HitterSide:  string(s.HitterSide),
				HitZone:     string(s.HitZone),
				ReceiveZone: string(s.ReceiveZone),
				ShotType:    string(s.ShotType),
				Result:      string(s.Result),
				IsCross:     s.IsCross,
				ScoreA:      score.A,
				ScoreB:      score.B,
			}
		}
		shotQuery := `INSERT INTO shots (match_id, seq, hitter, receiver, hitter_side, hit_zone, receive_zone, shot_type, result, is_cross, score_a, score_b)
			VALUES (:match_id, :seq, :hitter, :receiver, :hitter_side, :hit_zone, :receive_zone, :shot_type, :result, :is_cross, :score_a, :score_b)`
		if _, err := tx.NamedExecContext(ctx, shotQuery, rows); err != nil {
			return fmt.Errorf("failed to insert shots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match: %w", err)
	}
	return nil
}

// FindByID retrieves a completed match with its ledger.
func (r *sqliteMatchRepository) FindByID(ctx context.Context, id string) (*MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "MatchRepository.FindByID", trace.WithAttributes(
		attribute.String("match.id", id),
	))
	defer span.End()

	var m MatchRecord
	query := `SELECT id, format, team_a, team_b, score_a, score_b, shot_count, finished_at FROM matches WHERE id = ?`
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	roster, err := m.Teams()
	if err != nil {
		return nil, err
	}
	m.Roster = roster

	var rows []shotRow
	shotQuery := `SELECT match_id, seq, hitter, receiver, hitter_side, hit_zone, receive_zone, shot_type, result, is_cross, score_a, score_b
		FROM shots WHERE match_id = ? ORDER BY seq`
	if err := r.db.SelectContext(ctx, &rows, shotQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get shots: %w", err)
	}

	m.Shots = make([]rally.ShotRecord, len(rows))
	for i, row := range rows {
		m.Shots[i] = rally.ShotRecord{
			MatchID:     row.MatchID,
			Hitter:      row.Hitter,
			Receiver:    row.Receiver,
			HitterSide:  rally.Side(row.HitterSide),
			HitZone:     court.Zone(row.HitZone),
			ReceiveZone: court.Zone(row.ReceiveZone),
			ShotType:    court.ShotType(row.ShotType),
			Result:      rally.Result(row.Result),
			IsCross:     row.IsCross,
		}
	}
	return &m, nil
}
