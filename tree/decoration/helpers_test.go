package decoration

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/host/memhost"
	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/tree"
)

func newTree(t *testing.T) (*tree.Root, *memhost.Host) {
	t.Helper()
	h, err := memhost.LoadYAML([]byte(testutil.SampleAppYAML))
	require.NoError(t, err)
	r, err := tree.New(h, testutil.SampleAppRoot, tree.Options{Debug: true, FlushDelay: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.EnsureLoaded(context.Background(), r.Root()))
	return r, h
}

func newManager(t *testing.T, r *tree.Root, decos ...*Decoration) *Manager {
	t.Helper()
	m, err := NewManager(r)
	require.NoError(t, err)
	t.Cleanup(m.Dispose)
	for _, d := range decos {
		require.NoError(t, m.AddDecoration(d))
	}
	return m
}

// node loads every folder on the way to path.
func node(t *testing.T, r *tree.Root, path string) *tree.Node {
	t.Helper()
	n, err := r.ForceLoadItemEntryAtPath(context.Background(), path)
	require.NoError(t, err, path)
	return n
}

func classes(t *testing.T, m *Manager, n *tree.Node) []string {
	t.Helper()
	l, err := m.Decorations(n)
	require.NoError(t, err, n.Path())
	return l.Classes()
}

type recorder struct {
	mu    sync.Mutex
	calls int
	last  []string
}

func (r *recorder) DecorationsChanged(l *ClassList) {
	cls := l.Classes()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = cls
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func listen(t *testing.T, m *Manager, n *tree.Node) *recorder {
	t.Helper()
	l, err := m.Decorations(n)
	require.NoError(t, err)
	rec := &recorder{}
	l.AddChangeListener(rec)
	return rec
}
