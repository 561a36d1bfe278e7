package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctchen222/rally-tracker/internal/court"
	"ctchen222/rally-tracker/internal/game"
	"ctchen222/rally-tracker/internal/rally"
	"ctchen222/rally-tracker/internal/repository"
	"ctchen222/rally-tracker/internal/repository/mocks"
	"ctchen222/rally-tracker/internal/room"
	"ctchen222/rally-tracker/internal/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func descriptor(id string) game.Descriptor {
	return game.Descriptor{
		MatchID: id,
		Format:  turn.Singles,
		Teams:   turn.Teams{A: []string{"A"}, B: []string{"B"}},
	}
}

func newTestHub(t *testing.T) (*Hub, *mocks.MockSnapshotRepository, *mocks.MockMatchRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	snapshots := mocks.NewMockSnapshotRepository(ctrl)
	matches := mocks.NewMockMatchRepository(ctrl)
	bus := mocks.NewMockEventBus(ctrl)
	bus.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	h := NewHub(room.Deps{Snapshots: snapshots, Matches: matches, Publisher: bus})
	return h, snapshots, matches
}

func TestHub_OpenAndGet(t *testing.T) {
	h, snapshots, _ := newTestHub(t)
	ctx := context.Background()
	snapshots.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, repository.ErrSnapshotNotFound).Times(2)

	r, err := h.Open(ctx, descriptor("m1"))
	require.NoError(t, err)
	assert.Equal(t, "m1", r.ID)

	got, err := h.Get("m1")
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = h.Open(ctx, descriptor("m1"))
	assert.ErrorIs(t, err, ErrMatchExists)

	generated, err := h.Open(ctx, descriptor(""))
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.Equal(t, 2, h.Len())

	_, err = h.Get("missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestHub_OpenRejectsBadDescriptor(t *testing.T) {
	h, _, _ := newTestHub(t)
	desc := descriptor("m1")
	desc.Teams.B = nil

	_, err := h.Open(context.Background(), desc)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Zero(t, h.Len())
}

func TestHub_DropsFinishedRooms(t *testing.T) {
	h, snapshots, matches := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	snapshots.EXPECT().Load(gomock.Any(), "m1").Return(nil, repository.ErrSnapshotNotFound)
	matches.EXPECT().SaveResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	snapshots.EXPECT().Delete(gomock.Any(), "m1").Return(nil)

	r, err := h.Open(ctx, descriptor("m1"))
	require.NoError(t, err)
	_, err = r.Finish(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := h.Get("m1")
		return errors.Is(err, ErrMatchNotFound)
	}, time.Second, 10*time.Millisecond)
}

// playedSnapshot returns the snapshot of a match with its opening serve recorded.
func playedSnapshot(t *testing.T, id string) game.Snapshot {
	t.Helper()
	s, err := game.NewSession(descriptor(id))
	require.NoError(t, err)
	require.NoError(t, s.ChooseInitialServer("A"))
	require.NoError(t, s.SelectHitZone(court.MidRight))
	require.NoError(t, s.SelectReceiveZone(court.NearCenter))
	_, err = s.Submit(rally.Continue)
	require.NoError(t, err)
	return s.Snapshot()
}

func TestHub_Resume(t *testing.T) {
	h, snapshots, _ := newTestHub(t)
	ctx := context.Background()

	snap := playedSnapshot(t, "m1")
	snapshots.EXPECT().ListActive(gomock.Any()).Return([]string{"m1", "expired"}, nil)
	snapshots.EXPECT().Load(gomock.Any(), "m1").Return(&snap, nil)
	snapshots.EXPECT().Load(gomock.Any(), "expired").Return(nil, repository.ErrSnapshotNotFound)
	snapshots.EXPECT().Delete(gomock.Any(), "expired").Return(nil)

	n, err := h.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := h.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, turn.Singles, r.Descriptor().Format)
	assert.Len(t, r.Shots(), 1)
	assert.Equal(t, "B", r.View().Turn.Hitter)
}

func TestHub_ResumePrunesOnlyUnusableSnapshots(t *testing.T) {
	tests := []struct {
		name    string
		loadErr error
		pruned  bool
	}{
		{name: "expired", loadErr: repository.ErrSnapshotNotFound, pruned: true},
		{name: "corrupt", loadErr: &game.CorruptSnapshotError{Reason: "undecodable snapshot"}, pruned: true},
		{name: "redis unavailable", loadErr: errors.New("i/o timeout"), pruned: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, snapshots, _ := newTestHub(t)
			snapshots.EXPECT().ListActive(gomock.Any()).Return([]string{"m1"}, nil)
			snapshots.EXPECT().Load(gomock.Any(), "m1").Return(nil, tt.loadErr)
			if tt.pruned {
				snapshots.EXPECT().Delete(gomock.Any(), "m1").Return(nil)
			} else {
				snapshots.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
			}

			n, err := h.Resume(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, h.Len())
		})
	}
}

func TestHub_ResumeSkipsOpenMatches(t *testing.T) {
	h, snapshots, _ := newTestHub(t)
	ctx := context.Background()
	snapshots.EXPECT().Load(gomock.Any(), "m1").Return(nil, repository.ErrSnapshotNotFound)
	_, err := h.Open(ctx, descriptor("m1"))
	require.NoError(t, err)

	snapshots.EXPECT().ListActive(gomock.Any()).Return([]string{"m1"}, nil)
	n, err := h.Resume(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, h.Len())
}

func TestHub_ResumeListFailure(t *testing.T) {
	h, snapshots, _ := newTestHub(t)
	snapshots.EXPECT().ListActive(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := h.Resume(context.Background())
	assert.Error(t, err)
}
