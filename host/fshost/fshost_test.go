package fshost

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
	"github.com/tinialabs/react-birch-sub000/tree"
)

func newHost(t *testing.T, opts Options) (*Host, string) {
	t.Helper()
	dir := testutil.WriteSampleApp(t)
	h, err := New(dir, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, dir
}

func open(t *testing.T, h *Host) *tree.Root {
	t.Helper()
	r, err := tree.New(h, h.Root(), tree.Options{Debug: true, FlushDelay: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.EnsureLoaded(context.Background(), r.Root()))
	return r
}

func labels(t *testing.T, h *Host, dir string) []string {
	t.Helper()
	ctx := context.Background()
	raws, err := h.GetChildren(ctx, types.ChildQuery{Path: dir})
	require.NoError(t, err)
	var out []string
	for _, raw := range raws {
		it, err := h.GetTreeItem(ctx, raw)
		require.NoError(t, err)
		out = append(out, it.Label)
	}
	slices.Sort(out)
	return out
}

func TestNew(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, types.ErrNotFound)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = New(f, Options{})
	assert.ErrorIs(t, err, types.ErrNotFolder)
}

func TestGetChildren(t *testing.T) {
	h, dir := newHost(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("x"), 0o644))

	assert.Equal(t, []string{"scripts", "src", "tests"}, labels(t, h, dir))
	assert.Equal(t, []string{"Header.css", "Header.tsx"}, labels(t, h, filepath.Join(dir, "src", "components", "Header")))
	assert.Empty(t, labels(t, h, filepath.Join(dir, "tests")))

	ctx := context.Background()
	_, err := h.GetChildren(ctx, types.ChildQuery{Path: filepath.Join(dir, "nope")})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = h.GetChildren(ctx, types.ChildQuery{Path: filepath.Join(dir, "src", "models", "user", "user.go")})
	assert.ErrorIs(t, err, types.ErrNotFolder)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = h.GetChildren(cancelled, types.ChildQuery{Path: dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListingOptions(t *testing.T) {
	h, dir := newHost(t, Options{Hidden: true, Ignore: []string{"*.css"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("x"), 0o644))

	assert.Equal(t, []string{".env", "scripts", "src", "tests"}, labels(t, h, dir))
	assert.Equal(t, []string{"Header.tsx"}, labels(t, h, filepath.Join(dir, "src", "components", "Header")))
}

func TestGetTreeItem(t *testing.T) {
	h, dir := newHost(t, Options{})
	ctx := context.Background()
	raws, err := h.GetChildren(ctx, types.ChildQuery{Path: filepath.Join(dir, "src", "models", "user")})
	require.NoError(t, err)
	require.Len(t, raws, 1)

	it, err := h.GetTreeItem(ctx, raws[0])
	require.NoError(t, err)
	assert.Equal(t, "user.go", it.Label)
	assert.Equal(t, types.TypeItem, it.Type)
	assert.Equal(t, "24 B", it.Description)
	assert.NotEmpty(t, it.TID)
	assert.Contains(t, it.Tooltip, "modified")

	again, err := h.GetTreeItem(ctx, it)
	require.NoError(t, err)
	assert.Equal(t, it.TID, again.TID)

	_, err = h.GetTreeItem(ctx, types.Item{TID: "unknown"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = h.GetTreeItem(ctx, 42)
	assert.ErrorIs(t, err, types.ErrMalformedItem)
}

func TestTreeOverDirectory(t *testing.T) {
	h, dir := newHost(t, Options{})
	r := open(t, h)
	ctx := context.Background()

	assert.Equal(t, 3, r.BranchSize())
	assert.True(t, h.Watching(dir))

	src, err := r.FindItemEntryInLoadedTree(filepath.Join(dir, "src"))
	require.NoError(t, err)
	require.NoError(t, r.ExpandFolder(ctx, src, false))
	assert.Equal(t, 5, r.BranchSize())
	assert.True(t, h.Watching(src.Path()))
	require.NoError(t, r.Verify())

	n, err := r.ForceLoadItemEntryAtPath(ctx, filepath.Join(dir, "scripts", "build", "release.sh"))
	require.NoError(t, err)
	assert.Equal(t, 3, n.Depth())

	require.NoError(t, r.Close())
	assert.False(t, h.Watching(dir))
}

func TestCommands(t *testing.T) {
	h, dir := newHost(t, Options{})
	r := open(t, h)
	ctx := context.Background()
	tests, err := r.FindItemEntryInLoadedTree(filepath.Join(dir, "tests"))
	require.NoError(t, err)
	require.NoError(t, r.ExpandFolder(ctx, tests, false))

	n, err := r.CreateItem(ctx, tests, "unit.go", types.TypeItem, []byte("package unit\n"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "tests", "unit.go"))
	require.NoError(t, err)
	assert.Equal(t, "package unit\n", string(data))
	assert.Equal(t, "13 B", n.Item().Description)

	require.NoError(t, r.MoveItem(ctx, n, r.Root(), "main_test.go"))
	assert.FileExists(t, filepath.Join(dir, "main_test.go"))
	assert.NoFileExists(t, filepath.Join(dir, "tests", "unit.go"))
	assert.Equal(t, filepath.Join(dir, "main_test.go"), n.Path())

	it, err := h.GetTreeItem(ctx, n.Item())
	require.NoError(t, err)
	assert.Equal(t, "main_test.go", it.Label)

	require.NoError(t, r.DeleteItem(ctx, n))
	assert.NoFileExists(t, filepath.Join(dir, "main_test.go"))
	assert.True(t, n.Disposed())
}

func TestExternalChanges(t *testing.T) {
	h, dir := newHost(t, Options{})
	r := open(t, h)
	p := filepath.Join(dir, "README.md")
	found := func() bool {
		_, err := r.FindItemEntryInLoadedTree(p)
		return err == nil
	}

	require.NoError(t, os.WriteFile(p, []byte("hi"), 0o644))
	require.Eventually(t, found, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(p, []byte("hello, world"), 0o644))
	require.Eventually(t, func() bool {
		n, err := r.FindItemEntryInLoadedTree(p)
		return err == nil && n.Item().Description == "12 B"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(p))
	require.Eventually(t, func() bool { return !found() }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Verify())
}
