package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/backend"
)

func TestEvictUnneeded_RemovesUnpinnedRecords(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	recs := createN(t, m, 3)
	recs[0].link(2)

	m.MarkAllUnneeded(false)
	require.NoError(t, m.Sync(ctx, recs[0], SyncTable{}))
	SetNeeded(recs[0], true)

	evicted := m.EvictUnneeded()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []int64{1, 2}, persistentIDs(m))
	assert.Equal(t, []string{"runtime_clear"}, recs[2].events, "evicted records get RuntimeClear only")
	assert.Equal(t, []string{"trim"}, recs[0].events)
	assert.Equal(t, []string{"trim"}, recs[1].events)
	assert.False(t, recs[2].Owned())
	requireListIntegrity(t, m)
}

func TestEvictUnneeded_VictimReleaseKeepsSharedTarget(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	recs := createN(t, m, 3)
	recs[0].link(2)
	kept := recs[2].link(2)

	m.MarkAllUnneeded(false)
	require.NoError(t, m.SyncAll(ctx, SyncTable{}))
	SetNeeded(recs[0], false)
	SetNeeded(recs[2], true)

	assert.Equal(t, 1, m.EvictUnneeded())
	assert.Equal(t, []int64{2, 3}, persistentIDs(m))
	assert.True(t, recs[1].Owned(), "record 2 is still referenced from record 3")
	target, ok := kept.Target()
	require.True(t, ok)
	assert.Same(t, recs[1], target)
	assert.Equal(t, RefResolved, kept.State())
	requireListIntegrity(t, m)
}

func TestEvictUnneeded_VictimsChosenBeforeHooks(t *testing.T) {
	m := newTestManager(t)
	recs := createN(t, m, 3)
	// Record 1 holds a resolved link to record 3; releasing it must not
	// pull record 3 into the same sweep.
	ref := recs[0].link(3)
	require.NoError(t, ref.SetByPointer(m, recs[2], true))
	recs[0].SetStatus(StatusDeleteNode, true)

	assert.Equal(t, 1, m.EvictUnneeded())
	assert.Equal(t, []int64{2, 3}, persistentIDs(m))
	assert.Equal(t, []string{"trim"}, recs[2].events)
}

func TestEvictUnneeded_DeleteNodeWins(t *testing.T) {
	m := newTestManager(t)
	recs := createN(t, m, 2)
	recs[1].SetStatus(StatusDeleteNode, true)

	assert.Equal(t, 1, m.EvictUnneeded())
	assert.Equal(t, []int64{1}, persistentIDs(m))
}

func TestEvictUnneeded_KeepsBackingCopyAndClearsAllLoaded(t *testing.T) {
	ctx := context.Background()
	counting := newCounting()
	seed(t, counting.Backend, 1, "one")
	m := newTestManager(t, WithBackends(counting))
	_, err := m.LoadAll(ctx)
	require.NoError(t, err)
	require.True(t, m.AllLoaded())

	m.MarkAllUnneeded(false)
	assert.Equal(t, 1, m.EvictUnneeded())
	assert.False(t, m.AllLoaded())
	assert.Zero(t, counting.Deletes())

	r, ok := m.LookupByPersistentID(ctx, 1, false)
	require.True(t, ok, "an evicted record can be loaded again")
	assert.Equal(t, "one", r.Value)
	assert.Equal(t, int64(2), r.RuntimeID())
}

func TestEvictUnneeded_ReferenceGoesPendingAndReloads(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	seed(t, mem, 2, "two")
	m := newTestManager(t, WithBackends(mem))

	ref := &Reference[*node]{}
	ref.SetPersistentID(2)
	require.NoError(t, ref.Resolve(ctx, m, SyncTable{}, false))
	first, ok := ref.Target()
	require.True(t, ok)

	m.MarkAllUnneeded(false)
	m.EvictUnneeded()
	assert.Equal(t, RefPending, ref.State())
	_, ok = ref.Target()
	assert.False(t, ok)

	require.NoError(t, ref.Resolve(ctx, m, SyncTable{}, false))
	second, ok := ref.Target()
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, int64(2), second.PersistentID())
	assert.Equal(t, RefResolved, ref.State())
}

func TestMarkAllUnneeded(t *testing.T) {
	m := newTestManager(t)
	recs := createN(t, m, 2)

	m.MarkAllUnneeded(false)
	for _, r := range recs {
		assert.False(t, r.Has(StatusNeeded))
	}
	m.MarkAllUnneeded(true)
	for _, r := range recs {
		assert.True(t, r.Has(StatusNeeded))
	}
	assert.Zero(t, m.EvictUnneeded())
}

func TestEvictUnneeded_NothingEvictedKeepsAllLoaded(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemory()
	seed(t, mem, 1, "one")
	m := newTestManager(t, WithBackends(mem))
	_, err := m.LoadAll(ctx)
	require.NoError(t, err)
	require.True(t, m.AllLoaded())

	m.MarkAllUnneeded(true)
	assert.Zero(t, m.EvictUnneeded())
	assert.True(t, m.AllLoaded())
}
