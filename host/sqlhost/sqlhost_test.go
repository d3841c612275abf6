package sqlhost

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/host/memhost"
	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
	"github.com/tinialabs/react-birch-sub000/tree"
)

func openSample(t *testing.T) (*Host, *memhost.Host) {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "db", "birch.db"), testutil.SampleAppRoot)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	src, err := memhost.LoadYAML([]byte(testutil.SampleAppYAML))
	require.NoError(t, err)
	n, err := h.Import(context.Background(), src, src.RootPath(), "")
	require.NoError(t, err)
	require.Equal(t, 13, n)
	return h, src
}

func openTree(t *testing.T, h *Host) *tree.Root {
	t.Helper()
	r, err := tree.New(h, h.RootPath(), tree.Options{Debug: true, FlushDelay: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.EnsureLoaded(context.Background(), r.Root()))
	return r
}

func TestImportKeepsTIDs(t *testing.T) {
	h, src := openSample(t)
	ctx := context.Background()

	for _, p := range []string{"/app/src", "/app/src/models/user/user.go", "/app/scripts/build/release.sh"} {
		want, ok := src.TID(p)
		require.True(t, ok, p)
		got, err := h.Resolve(ctx, p)
		require.NoError(t, err, p)
		assert.Equal(t, want, got, p)
	}

	root, err := h.Resolve(ctx, "/app")
	require.NoError(t, err)
	assert.Empty(t, root)

	_, err = h.Resolve(ctx, "/app/nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = h.Resolve(ctx, "/elsewhere")
	assert.ErrorIs(t, err, types.ErrNotFound)

	tid, _ := src.TID("/app/src/components/Header/Header.tsx")
	it, err := h.Item(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, "component", it.Description)
	assert.Equal(t, types.TypeItem, it.Type)
}

func TestGetChildren(t *testing.T) {
	h, _ := openSample(t)
	ctx := context.Background()

	raws, err := h.GetChildren(ctx, types.ChildQuery{Path: "/app"})
	require.NoError(t, err)
	var got []string
	for _, raw := range raws {
		it, err := h.GetTreeItem(ctx, raw)
		require.NoError(t, err)
		got = append(got, it.Label)
	}
	assert.Equal(t, []string{"scripts", "src", "tests"}, got)

	userGo, err := h.Resolve(ctx, "/app/src/models/user/user.go")
	require.NoError(t, err)
	_, err = h.GetChildren(ctx, types.ChildQuery{Path: "/app/src/models/user/user.go", Item: &types.Item{TID: userGo}})
	assert.ErrorIs(t, err, types.ErrNotFolder)
	_, err = h.GetChildren(ctx, types.ChildQuery{Path: "/app/x", Item: &types.Item{TID: "missing"}})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = h.GetTreeItem(ctx, types.Item{TID: "missing"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = h.GetTreeItem(ctx, "raw")
	assert.ErrorIs(t, err, types.ErrMalformedItem)
}

func TestTreeCommands(t *testing.T) {
	h, _ := openSample(t)
	r := openTree(t, h)
	ctx := context.Background()

	src, err := r.ForceLoadItemEntryAtPath(ctx, "/app/src")
	require.NoError(t, err)
	require.NoError(t, r.ExpandFolder(ctx, src, false))

	n, err := r.CreateItem(ctx, src, "index.ts", types.TypeItem, []byte("export {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "/app/src/index.ts", n.Path())
	data, err := h.Content(ctx, n.Item().TID)
	require.NoError(t, err)
	assert.Equal(t, "export {}\n", string(data))

	build, err := r.ForceLoadItemEntryAtPath(ctx, "/app/scripts/build")
	require.NoError(t, err)
	scripts := build.Parent()
	components, err := r.FindItemEntryInLoadedTree("/app/src/components")
	require.NoError(t, err)
	require.NoError(t, r.MoveItem(ctx, components, scripts, "ui"))
	assert.Equal(t, "/app/scripts/ui", components.Path())
	tid, err := h.Resolve(ctx, "/app/scripts/ui/Header/Header.css")
	require.NoError(t, err)
	assert.NotEmpty(t, tid)

	// The host refuses a move into the moved folder's own subtree.
	header, err := h.Resolve(ctx, "/app/scripts/ui/Header")
	require.NoError(t, err)
	ok, err := h.MoveItem(ctx, components.Item(), types.ChildQuery{Path: "/app/scripts/ui/Header", Item: &types.Item{TID: header}}, "/app/scripts/ui/Header/ui")
	require.NoError(t, err)
	assert.False(t, ok)
	err = r.MoveItem(ctx, n, scripts, "build")
	assert.ErrorIs(t, err, types.ErrHostRejected)

	require.NoError(t, r.DeleteItem(ctx, scripts))
	_, err = h.Resolve(ctx, "/app/scripts/ui/Header/Header.css")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.True(t, components.Disposed())
	require.NoError(t, r.Verify())

	ok, err = h.DeleteItem(ctx, types.Item{TID: "missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetDescriptionRefreshesTree(t *testing.T) {
	h, src := openSample(t)
	r := openTree(t, h)
	ctx := context.Background()

	n, err := r.ForceLoadItemEntryAtPath(ctx, "/app/src/models/user/user.go")
	require.NoError(t, err)
	tid, _ := src.TID("/app/src/models/user/user.go")

	require.NoError(t, h.SetDescription(ctx, tid, "model"))
	assert.Equal(t, "model", n.Item().Description)
	assert.ErrorIs(t, h.SetDescription(ctx, "missing", "x"), types.ErrNotFound)
}

func TestRootIsStored(t *testing.T) {
	p := filepath.Join(t.TempDir(), "birch.db")
	h, err := Open(p, "/srv/app/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/app", h.RootPath())
	require.NoError(t, h.Close())

	h, err = Open(p, "")
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, "/srv/app", h.RootPath())
}

func TestInMemory(t *testing.T) {
	h, err := Open(":memory:", "")
	require.NoError(t, err)
	defer h.Close()
	ctx := context.Background()

	docs, err := h.Insert(ctx, "", types.Item{Label: "docs", Type: types.TypeFolder}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, docs.TID)
	_, err = h.Insert(ctx, docs.TID, types.Item{Label: "a.md", Type: types.TypeItem}, []byte("a"))
	require.NoError(t, err)
	_, err = h.Insert(ctx, docs.TID, types.Item{Label: "a.md", Type: types.TypeItem}, nil)
	assert.Error(t, err, "labels are unique per folder")
	_, err = h.Insert(ctx, "", types.Item{Label: "bad"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidItemType)

	r, err := tree.New(h, "/", tree.Options{FlushDelay: -1})
	require.NoError(t, err)
	defer r.Close()
	n, err := r.ForceLoadItemEntryAtPath(ctx, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n.Depth())
}
