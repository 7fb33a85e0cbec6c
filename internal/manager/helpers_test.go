package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/codec"
	"github.com/roach88/stash/internal/ir"
	"github.com/roach88/stash/internal/testutil"
)

// node is the record kind used throughout these tests. It records hook
// calls and holds same-kind references.
type node struct {
	Base

	Value string
	Links []*Reference[*node]
	Aux   bool

	mgr       *Manager[*node]
	events    []string
	syncCalls int
	syncErr   error
	failLoad  bool
}

func (n *node) IsListingItem() bool { return !n.Aux }

func (n *node) Sync(ctx context.Context, table SyncTable) error {
	n.syncCalls++
	if n.syncErr != nil {
		return n.syncErr
	}
	var errs []error
	for _, l := range n.Links {
		if err := l.Resolve(ctx, n.mgr, table, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *node) Unsync(ctx context.Context, table SyncTable) error {
	n.events = append(n.events, "unsync")
	for _, l := range n.Links {
		l.Release()
	}
	return nil
}

func (n *node) RuntimeClear() {
	n.events = append(n.events, "runtime_clear")
	for _, l := range n.Links {
		l.Release()
	}
}

func (n *node) Clear() { n.events = append(n.events, "clear") }
func (n *node) DeleteUnneededContent() { n.events = append(n.events, "trim") }
func (n *node) GainedFocus() { n.events = append(n.events, "gained") }
func (n *node) LostFocus() { n.events = append(n.events, "lost") }
func (n *node) SetUnneededContent(on bool) {}

func (n *node) MarshalFields() (ir.Object, error) {
	links := make(ir.Array, len(n.Links))
	for i, l := range n.Links {
		links[i] = ir.Int(l.StoredID())
	}
	return ir.Object{
		"value": ir.String(n.Value),
		"links": links,
	}, nil
}

func (n *node) UnmarshalFields(fields ir.Object) error {
	if n.failLoad || fields.Str("value") == "corrupt" {
		return errors.New("corrupt node")
	}
	n.Value = fields.Str("value")
	arr, _ := fields["links"].(ir.Array)
	for _, v := range arr {
		id, ok := v.(ir.Int)
		if !ok {
			return errors.New("link is not an int")
		}
		ref := &Reference[*node]{}
		ref.SetPersistentID(int64(id))
		n.Links = append(n.Links, ref)
	}
	return nil
}

// link appends a reference from n to persistent id id.
func (n *node) link(id int64) *Reference[*node] {
	ref := &Reference[*node]{}
	ref.SetPersistentID(id)
	n.Links = append(n.Links, ref)
	return ref
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, opts ...Option) *Manager[*node] {
	t.Helper()
	var m *Manager[*node]
	all := append([]Option{
		WithLogger(quietLogger()),
		WithInit(func(n *node) { n.mgr = m }),
	}, opts...)
	m = New("node", func() *node { return &node{} }, all...)
	return m
}

// createN creates n records with persistent ids 1..n.
func createN(t *testing.T, m *Manager[*node], n int) []*node {
	t.Helper()
	out := make([]*node, n)
	for i := range out {
		r, err := m.CreatePersistent(context.Background())
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

// persistentIDs returns the list's persistent ids in forward order.
func persistentIDs(m *Manager[*node]) []int64 {
	var ids []int64
	for r := range m.All() {
		ids = append(ids, r.PersistentID())
	}
	return ids
}

// requireListIntegrity checks forward and backward traversal agree with
// each other and with Count.
func requireListIntegrity(t *testing.T, m *Manager[*node]) {
	t.Helper()
	var forward, backward []int64
	for r := range m.All() {
		forward = append(forward, r.RuntimeID())
	}
	for r := range m.Backward() {
		backward = append(backward, r.RuntimeID())
	}
	require.Len(t, forward, m.Count())
	require.Len(t, backward, m.Count())
	for i := range forward {
		require.Equal(t, forward[i], backward[len(backward)-1-i])
	}
	for i := 1; i < len(forward); i++ {
		require.Less(t, forward[i-1], forward[i], "runtime ids increase in list order")
	}
}

func newCounting() *testutil.CountingBackend { return testutil.NewCountingBackend(nil) }
func newFailing() *testutil.FailingBackend   { return testutil.NewFailingBackend(nil) }

// seed stores a node envelope directly in b.
func seed(t *testing.T, b backend.Backend, id int64, value string, links ...int64) {
	t.Helper()
	arr := make(ir.Array, len(links))
	for i, l := range links {
		arr[i] = ir.Int(l)
	}
	payload, err := codec.JSON{}.Encode(ir.Object{
		"kind":          ir.String("node"),
		"persistent_id": ir.Int(id),
		"version":       ir.Int(ir.EnvelopeVersion),
		"fields":        ir.Object{"value": ir.String(value), "links": arr},
	})
	require.NoError(t, err)
	require.NoError(t, b.Save(context.Background(), "node", id, payload))
}

// decodeStored loads and decodes the stored envelope for id.
func decodeStored(t *testing.T, b backend.Backend, id int64) ir.Object {
	t.Helper()
	payload, ok, err := b.Load(context.Background(), "node", id)
	require.NoError(t, err)
	require.True(t, ok, "no stored copy for %d", id)
	env, err := codec.JSON{}.Decode(payload)
	require.NoError(t, err)
	return env
}
