package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/rally-tracker/internal/game"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repository")

const activeMatchesKey = "matches:active"

// ErrSnapshotNotFound is returned when no snapshot is stored for a match.
var ErrSnapshotNotFound = errors.New("snapshot not found")

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks ctchen222/rally-tracker/internal/repository SnapshotRepository,MatchRepository,EventBus

// SnapshotRepository stores the in-progress state of matches.
type SnapshotRepository interface {
	Save(ctx context.Context, snap game.Snapshot) error
	Load(ctx context.Context, matchID string) (*game.Snapshot, error)
	Delete(ctx context.Context, matchID string) error
	ListActive(ctx context.Context) ([]string, error)
}

type redisSnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotRepository creates a new Redis-based SnapshotRepository. Snapshots
// expire after ttl without updates; zero keeps them forever.
func NewSnapshotRepository(rdb *redis.Client, ttl time.Duration) SnapshotRepository {
	return &redisSnapshotRepository{rdb: rdb, ttl: ttl}
}

func snapshotKey(matchID string) string {
	return fmt.Sprintf("match:%s:snapshot", matchID)
}

// Save overwrites the stored snapshot of a match.
func (r *redisSnapshotRepository) Save(ctx context.Context, snap game.Snapshot) error {
	matchID := snap.Descriptor.MatchID
	ctx, span := tracer.Start(ctx, "SnapshotRepository.Save", trace.WithAttributes(
		attribute.String("match.id", matchID),
		attribute.Int("ledger.length", len(snap.Ledger)),
	))
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(matchID), data, r.ttl)
	pipe.SAdd(ctx, activeMatchesKey, matchID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot in redis: %w", err)
	}
	return nil
}

// Load retrieves the stored snapshot of a match. A blob that cannot be decoded
// is reported as a *game.CorruptSnapshotError.
func (r *redisSnapshotRepository) Load(ctx context.Context, matchID string) (*game.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "SnapshotRepository.Load", trace.WithAttributes(
		attribute.String("match.id", matchID),
	))
	defer span.End()

	data, err := r.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &game.CorruptSnapshotError{Reason: "undecodable blob", Err: err}
	}
	return &snap, nil
}

// Delete removes the snapshot of a match.
func (r *redisSnapshotRepository) Delete(ctx context.Context, matchID string) error {
	ctx, span := tracer.Start(ctx, "SnapshotRepository.Delete", trace.WithAttributes(
		attribute.String("match.id", matchID),
	))
	defer span.End()

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, snapshotKey(matchID))
	pipe.SRem(ctx, activeMatchesKey, matchID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListActive returns the ids of matches with a stored snapshot.
func (r *redisSnapshotRepository) ListActive(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "SnapshotRepository.ListActive")
	defer span.End()

	return r.rdb.SMembers(ctx, activeMatchesKey).Result()
}
