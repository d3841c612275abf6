package tree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/host/memhost"
	"github.com/tinialabs/react-birch-sub000/internal/testutil"
)

// newSample loads the sample /app tree with its root children fetched.
func newSample(t *testing.T, opts Options) (*Root, *memhost.Host) {
	t.Helper()
	h, err := memhost.LoadYAML([]byte(testutil.SampleAppYAML))
	require.NoError(t, err)
	return newLoaded(t, h, opts), h
}

func newLoaded(t *testing.T, h Host, opts Options) *Root {
	t.Helper()
	r, err := New(h, "/app", opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.EnsureLoaded(context.Background(), r.Root()))
	return r
}

func debugOpts() Options { return Options{Debug: true, FlushDelay: -1} }

func find(t *testing.T, r *Root, path string) *Node {
	t.Helper()
	n, err := r.FindItemEntryInLoadedTree(path)
	require.NoError(t, err, path)
	return n
}

func expand(t *testing.T, r *Root, path string) *Node {
	t.Helper()
	n := find(t, r, path)
	require.NoError(t, r.ExpandFolder(context.Background(), n, false))
	return n
}

// surface lists surfaced nodes by path relative to the root.
func surface(r *Root) []string {
	out := []string{}
	prefix := r.Path() + "/"
	for i := range r.BranchSize() {
		out = append(out, strings.TrimPrefix(r.ItemEntryAtIndex(i).Path(), prefix))
	}
	return out
}

func move(r *Root, n, target *Node, label string) {
	r.mu.Lock()
	r.mv(n, target, label)
	r.unlock()
}

func verify(t *testing.T, r *Root) {
	t.Helper()
	require.NoError(t, r.Verify())

	seen := map[*Node]bool{}
	for i := range r.BranchSize() {
		n := r.ItemEntryAtIndex(i)
		require.NotNil(t, n, "index %d", i)
		require.False(t, n.Disposed(), "index %d", i)
		require.False(t, seen[n], "index %d repeats %s", i, n.Path())
		seen[n] = true
		require.Equal(t, i, r.IndexOfItemEntry(n))
		require.Same(t, n, r.Lookup(n.ID()))
	}
}

type snapshot struct {
	surface []ID
	sizes   map[ID]int
}

func takeSnapshot(r *Root) snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := snapshot{
		surface: append([]ID(nil), r.root.f.flat.ids...),
		sizes:   map[ID]int{},
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.f == nil {
			return
		}
		s.sizes[n.id] = n.f.branchSize
		for _, c := range n.f.children {
			walk(c)
		}
	}
	walk(r.root)
	return s
}

// nodes returns every live node, loaded or not, in depth-first order.
func nodes(r *Root) []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		if n.f != nil {
			for _, c := range n.f.children {
				walk(c)
			}
		}
	}
	walk(r.root)
	return out
}
