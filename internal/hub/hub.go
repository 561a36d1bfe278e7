package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/repository"
	"ctchen222/rally-tracker/internal/room"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

var (
	// ErrMatchNotFound is returned when no open match has the requested id.
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchExists is returned when opening a match id that is already open.
	ErrMatchExists = errors.New("match already open")
)

// Hub keeps the open rooms of this process, keyed by match id. Finished
// rooms are dropped by Run.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*room.Room
	deps       room.Deps
	unregister chan string
	quit       chan struct{}
}

// NewHub creates a new hub.
func NewHub(deps room.Deps) *Hub {
	return &Hub{
		rooms:      make(map[string]*room.Room),
		deps:       deps,
		unregister: make(chan string),
		quit:       make(chan struct{}),
	}
}

// Run removes finished rooms until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)
	for {
		select {
		case <-ctx.Done():
			slog.Info("hub stopping", "rooms.count", h.Len())
			return
		case id := <-h.unregister:
			h.mu.Lock()
			delete(h.rooms, id)
			h.mu.Unlock()
			slog.Info("room closed", "match.id", id)
		}
	}
}

// Open creates the room of a new match, restoring its snapshot when one is
// stored. A descriptor without a match id gets a fresh one.
func (h *Hub) Open(ctx context.Context, desc game.Descriptor) (*room.Room, error) {
	if desc.MatchID == "" {
		desc.MatchID = uuid.New().String()
	}
	ctx, span := tracer.Start(ctx, "hub.Open", trace.WithAttributes(
		attribute.String("match.id", desc.MatchID),
	))
	defer span.End()

	r, err := h.open(ctx, desc.MatchID, func() (*room.Room, error) {
		return room.New(ctx, desc, h.deps)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to open room")
		return nil, err
	}
	slog.InfoContext(ctx, "room opened", "match.id", r.ID, "match.format", desc.Format)
	return r, nil
}

// open builds a room outside the hub lock and registers it unless another
// room with the same id got there first.
func (h *Hub) open(ctx context.Context, matchID string, build func() (*room.Room, error)) (*room.Room, error) {
	if _, err := h.Get(matchID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, matchID)
	}
	r, err := build()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[r.ID]; ok {
		slog.DebugContext(ctx, "dropping room opened concurrently", "match.id", r.ID)
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, r.ID)
	}
	h.rooms[r.ID] = r
	go h.watch(r)
	return r, nil
}

func (h *Hub) watch(r *room.Room) {
	<-r.Done()
	select {
	case h.unregister <- r.ID:
	case <-h.quit:
	}
}

// Get returns the open room of a match.
func (h *Hub) Get(matchID string) (*room.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return r, nil
}

// Len returns the number of open rooms.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Resume reopens every match that still has a snapshot stored. Expired and
// corrupt snapshots are pruned; snapshots that cannot be read right now are
// left for the next start.
func (h *Hub) Resume(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "hub.Resume")
	defer span.End()

	ids, err := h.deps.Snapshots.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list active matches")
		return 0, fmt.Errorf("failed to list active matches: %w", err)
	}

	resumed := 0
	for _, id := range ids {
		if _, err := h.Get(id); err == nil {
			continue
		}
		snap, err := h.deps.Snapshots.Load(ctx, id)
		var corrupt *game.CorruptSnapshotError
		switch {
		case errors.Is(err, repository.ErrSnapshotNotFound), errors.As(err, &corrupt):
			slog.WarnContext(ctx, "pruning unusable match", "match.id", id, "error", err)
			if err := h.deps.Snapshots.Delete(ctx, id); err != nil {
				slog.WarnContext(ctx, "failed to prune match", "match.id", id, "error", err)
			}
			continue
		case err != nil:
			span.RecordError(err)
			slog.WarnContext(ctx, "could not load match, leaving it stored", "match.id", id, "error", err)
			continue
		case snap == nil:
			continue
		}

		if _, err := h.open(ctx, id, func() (*room.Room, error) {
			return room.Resume(ctx, *snap, h.deps)
		}); err != nil {
			slog.WarnContext(ctx, "failed to resume match", "match.id", id, "error", err)
			continue
		}
		slog.InfoContext(ctx, "match resumed", "match.id", id, "ledger.length", len(snap.Ledger))
		resumed++
	}
	span.SetAttributes(attribute.Int("rooms.resumed", resumed))
	return resumed, nil
}
