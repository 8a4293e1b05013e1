package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shelf/internal/attr"
	"github.com/roach88/shelf/internal/store"
)

func TestRecorder_NamesAndOrder(t *testing.T) {
	s := store.NewMemory(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	rec := NewRecorder(nil)
	s.OnChange(store.ObserveOptions{}, rec.Callback("all"))
	s.OnChange(store.ObserveOptions{RemoteOnly: true}, rec.Callback("remote"))

	_, err := s.Create("todos", attr.MapOf(map[string]any{"id": 1}))
	require.NoError(t, err)
	_, err = s.Create("todos", attr.MapOf(map[string]any{"id": 2}), store.FromRemote())
	require.NoError(t, err)

	got := rec.Notifications()
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Equal(t, "all", got[0].Observer)
	assert.Equal(t, "all", got[1].Observer)
	assert.Equal(t, "remote", got[2].Observer)
	assert.True(t, got[2].FromRemote)

	assert.Len(t, rec.For("remote"), 1)
	assert.Equal(t, []store.ChangeKind{store.Insert, store.Insert}, rec.Kinds("all"))

	rec.Reset()
	assert.Empty(t, rec.Notifications())
}

func TestRecorder_SnapshotsPlaceholders(t *testing.T) {
	s := store.NewMemory(store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	rec := NewRecorder(nil)
	s.OnChange(store.ObserveOptions{}, rec.Callback("all"))

	id, err := s.Create("todos", attr.Map{})
	require.NoError(t, err)
	require.NoError(t, s.UpdateID("todos", id, 7))

	got := rec.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, "T-1", attr.Format(got[0].Record.ID()), "snapshot keeps the id seen at delivery")
}
