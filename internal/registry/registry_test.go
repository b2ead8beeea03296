package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/store"
)

func newTypes(t *testing.T) *schema.TypeManager {
	t.Helper()
	tm := schema.NewTypeManager()
	c, err := schema.NewClass("Device", "",
		property.Int("rate", 100, property.WithMin(1), property.WithMax(1000)),
		property.String("label", "unnamed"),
	)
	require.NoError(t, err)
	require.NoError(t, tm.AddType(c))
	return tm
}

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryRepository()
	reg := New(repo, newTypes(t))

	e, err := reg.Create(ctx, "dev", "Device")
	require.NoError(t, err)
	assert.Equal(t, e.ID, e.Object.Path())
	assert.Equal(t, "Device", e.Object.ClassName())

	snap, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev", snap.Name)
	assert.Equal(t, "Device", snap.ClassName)

	byName, err := reg.Lookup("dev")
	require.NoError(t, err)
	assert.Same(t, e, byName)

	_, err = reg.Create(ctx, "dev", "")
	assert.ErrorIs(t, err, ErrNameTaken)
	_, err = reg.Create(ctx, "a.b", "")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = reg.Create(ctx, "other", "Missing")
	assert.ErrorIs(t, err, status.ErrNotFound)

	require.NoError(t, reg.Delete(ctx, e.ID))
	_, err = reg.Get(e.ID)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = repo.Get(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
	assert.Zero(t, reg.Len())
}

func TestChangesPersistThroughRelay(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryRepository()
	relay := coreevent.NewRelay(64)
	tm := newTypes(t)
	reg := New(repo, tm, WithCoreEventTrigger(relay.Trigger()))
	relay.AddSink(reg)
	require.NoError(t, relay.Start(ctx))

	e, err := reg.Create(ctx, "dev", "Device")
	require.NoError(t, err)
	require.NoError(t, e.Object.SetPropertyValue("rate", 5000))
	require.NoError(t, e.Object.SetPropertyValue("label", "bench"))
	relay.Close()
	assert.Zero(t, relay.Stats().Failed)

	restored := New(repo, tm)
	n, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := restored.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "dev", got.Name)
	rate, err := got.Object.GetPropertyValue("rate")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rate)
	label, err := got.Object.GetPropertyValue("label")
	require.NoError(t, err)
	assert.Equal(t, "bench", label)
	assert.Equal(t, e.ID, got.Object.Path())
}

func TestCloneAndFreeze(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryRepository()
	reg := New(repo, newTypes(t))

	e, err := reg.Create(ctx, "dev", "Device")
	require.NoError(t, err)
	require.NoError(t, e.Object.SetPropertyValue("label", "orig"))
	require.NoError(t, reg.Freeze(ctx, e.ID))
	assert.ErrorIs(t, reg.Freeze(ctx, e.ID), status.ErrIgnored)

	snap, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, snap.Frozen)

	c, err := reg.Clone(ctx, e.ID, "copy")
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, c.ID)
	assert.False(t, c.Object.IsFrozen())
	label, err := c.Object.GetPropertyValue("label")
	require.NoError(t, err)
	assert.Equal(t, "orig", label)

	names := []string{}
	for _, entry := range reg.List() {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"copy", "dev"}, names)

	restored := New(repo, reg.TypeManager())
	_, err = restored.Restore(ctx)
	require.NoError(t, err)
	frozen, err := restored.Lookup("dev")
	require.NoError(t, err)
	assert.True(t, frozen.Object.IsFrozen())
}

func TestRestoreSkipsCorruptSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, &store.Snapshot{ID: "bad", Name: "bad", Data: []byte(`{not json`)}))

	reg := New(repo, newTypes(t))
	n, err := reg.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, reg.Len())
}

func TestHandleIgnoresUnknownRoots(t *testing.T) {
	reg := New(store.NewMemoryRepository(), newTypes(t))
	assert.NoError(t, reg.Handle(context.Background(), coreevent.NewArgs(coreevent.PropertyValueChanged, "gone.x")))
}
