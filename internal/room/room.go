package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/events"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("room")
	meter  = otel.Meter("room")
)

type instruments struct {
	shotsRecorded metric.Int64Counter
	shotsUndone   metric.Int64Counter
	illegalServes metric.Int64Counter
	saveFailures  metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	var (
		in  instruments
		err error
	)
	if in.shotsRecorded, err = meter.Int64Counter("rally.shots.recorded",
		metric.WithDescription("Shots appended to a ledger")); err != nil {
		return nil, err
	}
	if in.shotsUndone, err = meter.Int64Counter("rally.shots.undone",
		metric.WithDescription("Shots removed by undo")); err != nil {
		return nil, err
	}
	if in.illegalServes, err = meter.Int64Counter("rally.serve.illegal",
		metric.WithDescription("Serve zone selections rejected by the score parity rule")); err != nil {
		return nil, err
	}
	if in.saveFailures, err = meter.Int64Counter("rally.snapshot.save_failures",
		metric.WithDescription("Snapshots that could not be persisted")); err != nil {
		return nil, err
	}
	return &in, nil
}

// Deps are the collaborators a room persists to and publishes through.
type Deps struct {
	Snapshots repository.SnapshotRepository
	Matches   repository.MatchRepository
	Publisher repository.EventPublisher
}

// Room owns the session of one match and serializes every operation on it.
// After each successful mutation the session is saved best-effort and the
// resulting events are published.
type Room struct {
	ID string

	mu        sync.Mutex
	session   *game.Session
	snapshots repository.SnapshotRepository
	matches   repository.MatchRepository
	publisher repository.EventPublisher
	pending   []events.Event
	metrics   *instruments
	attrs     metric.MeasurementOption

	// finishMu serializes Finish; unstored holds a finished result, and the
	// events it raised, until the completed match store accepts it.
	finishMu sync.Mutex
	unstored *game.MatchResult
	held     []events.Event

	done     chan struct{}
	doneOnce sync.Once
}

// New opens a room for desc. A stored snapshot with recorded shots replaces
// the fresh session; a corrupt one is discarded.
func New(ctx context.Context, desc game.Descriptor, deps Deps) (*Room, error) {
	ctx, span := tracer.Start(ctx, "room.New", trace.WithAttributes(
		attribute.String("match.id", desc.MatchID),
		attribute.String("match.format", string(desc.Format)),
	))
	defer span.End()

	r, err := newRoom(desc, deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid match descriptor")
		return nil, err
	}
	r.restore(ctx)
	return r, nil
}

// Resume opens a room for the match of an already loaded snapshot.
func Resume(ctx context.Context, snap game.Snapshot, deps Deps) (*Room, error) {
	ctx, span := tracer.Start(ctx, "room.Resume", trace.WithAttributes(
		attribute.String("match.id", snap.Descriptor.MatchID),
		attribute.String("match.format", string(snap.Descriptor.Format)),
	))
	defer span.End()

	r, err := newRoom(snap.Descriptor, deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid match descriptor")
		return nil, err
	}
	r.apply(ctx, &snap)
	return r, nil
}

func newRoom(desc game.Descriptor, deps Deps) (*Room, error) {
	in, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("failed to create room instruments: %w", err)
	}

	r := &Room{
		ID:        desc.MatchID,
		snapshots: deps.Snapshots,
		matches:   deps.Matches,
		publisher: deps.Publisher,
		metrics:   in,
		attrs:     metric.WithAttributes(attribute.String("match.format", string(desc.Format))),
		done:      make(chan struct{}),
	}
	session, err := game.NewSession(desc, game.ObserverFuncs{
		ShotAppended: func(shot rally.ShotRecord, score rally.Score) {
			r.enqueue(events.TypeShotAppended, events.ShotAppendedPayload{MatchID: r.ID, Shot: shot, Score: score})
		},
		ShotUndone: func(shot rally.ShotRecord, score rally.Score) {
			r.enqueue(events.TypeShotUndone, events.ShotUndonePayload{MatchID: r.ID, Shot: shot, Score: score})
		},
		MatchFinished: func(res game.MatchResult) {
			r.enqueue(events.TypeMatchFinished, events.MatchFinishedPayload{MatchID: r.ID, FinalScore: res.FinalScore, Ledger: res.Shots})
		},
	})
	if err != nil {
		return nil, err
	}
	r.session = session
	return r, nil
}

func (r *Room) restore(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.restore", trace.WithAttributes(
		attribute.String("match.id", r.ID),
	))
	defer span.End()

	snap, err := r.snapshots.Load(ctx, r.ID)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return
	case err != nil:
		var corrupt *game.CorruptSnapshotError
		if errors.As(err, &corrupt) {
			r.discardSnapshot(ctx, err)
			return
		}
		slog.WarnContext(ctx, "could not load snapshot, starting fresh", "match.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load snapshot")
		return
	}
	r.apply(ctx, snap)
}

// apply replaces the fresh session with snap when it holds recorded shots.
func (r *Room) apply(ctx context.Context, snap *game.Snapshot) {
	if snap == nil || len(snap.Ledger) == 0 {
		return
	}
	if err := r.session.Restore(*snap); err != nil {
		r.discardSnapshot(ctx, err)
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("ledger.length", len(snap.Ledger)))
	slog.InfoContext(ctx, "match restored from snapshot", "match.id", r.ID, "ledger.length", len(snap.Ledger))
}

func (r *Room) discardSnapshot(ctx context.Context, cause error) {
	slog.WarnContext(ctx, "discarding corrupt snapshot", "match.id", r.ID, "error", cause)
	trace.SpanFromContext(ctx).RecordError(cause)
	if err := r.snapshots.Delete(ctx, r.ID); err != nil {
		slog.WarnContext(ctx, "failed to delete corrupt snapshot", "match.id", r.ID, "error", err)
	}
}

// enqueue buffers an event until the running operation completes.
func (r *Room) enqueue(eventType string, payload any) {
	ev, err := events.New(eventType, payload)
	if err != nil {
		slog.Error("failed to build event", "match.id", r.ID, "event", eventType, "error", err)
		return
	}
	r.pending = append(r.pending, ev)
}

// mutate runs op under the room lock. On success the session is saved and
// the buffered events are published; on failure the events are dropped.
func (r *Room) mutate(ctx context.Context, name string, op func() error) error {
	ctx, span := tracer.Start(ctx, "room."+name, trace.WithAttributes(
		attribute.String("match.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = r.pending[:0]
	if err := op(); err != nil {
		r.pending = r.pending[:0]
		span.RecordError(err)
		span.SetStatus(codes.Error, string(game.CodeOf(err)))
		return err
	}
	span.SetAttributes(attribute.String("match.phase", string(r.session.Phase())))

	if !r.session.Turn().Finished {
		r.save(ctx)
	}
	r.publish(ctx, r.pending)
	r.pending = r.pending[:0]
	return nil
}

func (r *Room) save(ctx context.Context) {
	if err := r.snapshots.Save(ctx, r.session.Snapshot()); err != nil {
		slog.WarnContext(ctx, "failed to save snapshot", "match.id", r.ID, "error", err)
		r.metrics.saveFailures.Add(ctx, 1, r.attrs)
	}
}

func (r *Room) publish(ctx context.Context, evs []events.Event) {
	for _, ev := range evs {
		if err := r.publisher.Publish(ctx, r.ID, ev); err != nil {
			slog.WarnContext(ctx, "failed to publish event", "match.id", r.ID, "event", ev.Type, "error", err)
		}
	}
}

// ChooseInitialServer picks the first server of a singles match.
func (r *Room) ChooseInitialServer(ctx context.Context, playerID string) error {
	return r.mutate(ctx, "ChooseInitialServer", func() error {
		return r.session.ChooseInitialServer(playerID)
	})
}

// SelectPlayers fills the hitter and receiver of the next doubles shot.
func (r *Room) SelectPlayers(ctx context.Context, hitter, receiver string) error {
	return r.mutate(ctx, "SelectPlayers", func() error {
		return r.session.SelectPlayers(hitter, receiver)
	})
}

// SelectCell picks the hitting zone of the pending shot, or its receiving
// zone once the hitting zone is known.
func (r *Room) SelectCell(ctx context.Context, z court.Zone) error {
	return r.mutate(ctx, "SelectCell", func() error {
		return r.countIllegalServe(ctx, r.session.SelectCell(z))
	})
}

// SelectHitZone sets where the pending shot is played from.
func (r *Room) SelectHitZone(ctx context.Context, z court.Zone) error {
	return r.mutate(ctx, "SelectHitZone", func() error {
		return r.countIllegalServe(ctx, r.session.SelectHitZone(z))
	})
}

func (r *Room) countIllegalServe(ctx context.Context, err error) error {
	var illegal *game.IllegalServeZoneError
	if errors.As(err, &illegal) {
		r.metrics.illegalServes.Add(ctx, 1, r.attrs)
	}
	return err
}

// SelectReceiveZone sets where the pending shot lands.
func (r *Room) SelectReceiveZone(ctx context.Context, z court.Zone) error {
	return r.mutate(ctx, "SelectReceiveZone", func() error {
		return r.session.SelectReceiveZone(z)
	})
}

// SelectShotType sets the type of the pending shot.
func (r *Room) SelectShotType(ctx context.Context, t court.ShotType) error {
	return r.mutate(ctx, "SelectShotType", func() error {
		return r.session.SelectShotType(t)
	})
}

// Submit records the pending shot with result.
func (r *Room) Submit(ctx context.Context, result rally.Result) (rally.ShotRecord, error) {
	var shot rally.ShotRecord
	err := r.mutate(ctx, "Submit", func() error {
		var err error
		shot, err = r.session.Submit(result)
		return err
	})
	if err == nil {
		r.metrics.shotsRecorded.Add(ctx, 1, r.attrs)
	}
	return shot, err
}

// Undo removes the last recorded shot.
func (r *Room) Undo(ctx context.Context) (game.UndoResult, error) {
	var res game.UndoResult
	err := r.mutate(ctx, "Undo", func() error {
		var err error
		res, err = r.session.Undo()
		return err
	})
	if err == nil {
		r.metrics.shotsUndone.Add(ctx, 1, r.attrs)
	}
	return res, err
}

// Reset clears the ledger and returns the match to its pre-match state.
func (r *Room) Reset(ctx context.Context) error {
	return r.mutate(ctx, "Reset", func() error {
		if err := r.session.Reset(); err != nil {
			return err
		}
		r.enqueue(events.TypeMatchReset, events.MatchResetPayload{MatchID: r.ID, Score: r.session.Score()})
		return nil
	})
}

// Finish ends the match and stores it as completed. When the completed match
// cannot be stored the room stays open with its last snapshot kept, the
// result is returned together with the error, and calling Finish again
// retries the store.
func (r *Room) Finish(ctx context.Context) (game.MatchResult, error) {
	r.finishMu.Lock()
	defer r.finishMu.Unlock()

	if r.unstored == nil {
		var res game.MatchResult
		err := r.mutate(ctx, "Finish", func() error {
			var err error
			if res, err = r.session.Finish(); err != nil {
				return err
			}
			r.held = slices.Clone(r.pending)
			r.pending = r.pending[:0]
			return nil
		})
		if err != nil {
			return game.MatchResult{}, err
		}
		r.unstored = &res
	}
	res := *r.unstored

	if err := r.matches.SaveResult(ctx, res, time.Now().UTC()); err != nil {
		slog.ErrorContext(ctx, "failed to store completed match", "match.id", r.ID, "error", err)
		return res, fmt.Errorf("failed to store completed match: %w", err)
	}
	r.unstored = nil
	if err := r.snapshots.Delete(ctx, r.ID); err != nil {
		slog.WarnContext(ctx, "failed to delete snapshot of finished match", "match.id", r.ID, "error", err)
	}
	r.publish(ctx, r.held)
	r.held = nil
	r.doneOnce.Do(func() { close(r.done) })

	slog.InfoContext(ctx, "match finished", "match.id", r.ID, "score", res.FinalScore.String(), "ledger.length", len(res.Shots))
	return res, nil
}

// View returns the current state of the match.
func (r *Room) View() game.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.View()
}

// Shots returns the recorded shots in order.
func (r *Room) Shots() []rally.ShotRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Shots()
}

// Descriptor returns the descriptor the room was opened with.
func (r *Room) Descriptor() game.Descriptor {
	return r.session.Descriptor()
}

// Done is closed once the match has been finished.
func (r *Room) Done() <-chan struct{} {
	return r.done
}
