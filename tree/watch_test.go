package tree

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

func TestRemovedWithoutMatchOnlyLogs(t *testing.T) {
	logs := testutil.CaptureLogs(t, slog.LevelDebug)
	r, _ := newSample(t, debugOpts())
	expand(t, r, "/app/src")
	before := takeSnapshot(r)

	err := r.Dispatch(context.Background(), Removed{TID: "not-a-tid", Path: "/app/src/ghost"})
	require.NoError(t, err)
	assert.Equal(t, before, takeSnapshot(r))
	assert.Contains(t, logs.String(), "tree: removed: no match")
	assert.Contains(t, logs.String(), "not-a-tid")
	assert.NotContains(t, logs.String(), "invariant violated")
}

func TestRemovedMatchesByTID(t *testing.T) {
	r, h := newSample(t, debugOpts())
	expand(t, r, "/app/src")
	tid, ok := h.TID("/app/src/models")
	require.True(t, ok)

	require.NoError(t, r.Dispatch(context.Background(), Removed{TID: tid, Path: "/app/src/old-name"}))
	assert.Equal(t, []string{"scripts", "src", "src/components", "tests"}, surface(r))
	verify(t, r)
}

func TestAddedEvent(t *testing.T) {
	logs := testutil.CaptureLogs(t, slog.LevelDebug)
	r, _ := newSample(t, debugOpts())
	ctx := context.Background()
	expand(t, r, "/app/src")

	api := types.Item{TID: "api", Label: "api", Type: types.TypeFolder}
	require.NoError(t, r.Dispatch(ctx, Added{Folder: "/app/src", Item: api}))
	assert.Equal(t, []string{"scripts", "src", "src/api", "src/components", "src/models", "tests"}, surface(r))

	require.NoError(t, r.Dispatch(ctx, Added{Folder: "/app/src", Item: api}))
	assert.Contains(t, logs.String(), "label already present")
	assert.Equal(t, 6, r.BranchSize())

	require.NoError(t, r.Dispatch(ctx, Added{Folder: "/app/scripts", Item: types.Item{Label: "x", Type: types.TypeItem}}))
	assert.Contains(t, logs.String(), "no loaded folder")

	err := r.Dispatch(ctx, Added{Folder: "/app/src", Item: types.Item{Label: "bad"}})
	assert.ErrorIs(t, err, types.ErrMalformedItem)
	verify(t, r)

	// Added into a collapsed folder stays buried.
	models := find(t, r, "/app/src/models")
	require.NoError(t, r.EnsureLoaded(ctx, models))
	require.NoError(t, r.Dispatch(ctx, Added{Folder: "/app/src/models", Item: types.Item{Label: "account", Type: types.TypeFolder}}))
	assert.Equal(t, 6, r.BranchSize())
	assert.Equal(t, 2, models.BranchSize())
	verify(t, r)
}

func TestMovedEvent(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	ctx := context.Background()
	expand(t, r, "/app/src")
	components := find(t, r, "/app/src/components")
	tid := components.Item().TID

	require.NoError(t, r.Dispatch(ctx, Moved{TID: tid, OldPath: "/app/src/components", NewPath: "/app/src/widgets"}))
	assert.Same(t, components, find(t, r, "/app/src/widgets"))
	assert.Equal(t, []string{"scripts", "src", "src/models", "src/widgets", "tests"}, surface(r))
	verify(t, r)

	require.NoError(t, r.Dispatch(ctx, Moved{TID: tid, OldPath: "/app/src/widgets", NewPath: "/app/widgets"}))
	assert.Equal(t, []string{"scripts", "src", "src/models", "tests", "widgets"}, surface(r))
	assert.Equal(t, 1, components.Depth())
	verify(t, r)

	// The destination folder is not loaded: the node leaves the tree.
	require.NoError(t, r.Dispatch(ctx, Moved{TID: tid, OldPath: "/app/widgets", NewPath: "/app/tests/widgets"}))
	assert.True(t, components.Disposed())
	assert.Equal(t, []string{"scripts", "src", "src/models", "tests"}, surface(r))
	verify(t, r)

	logs := testutil.CaptureLogs(t, slog.LevelDebug)
	require.NoError(t, r.Dispatch(ctx, Moved{OldPath: "/app/nothing", NewPath: "/app/else"}))
	assert.Contains(t, logs.String(), "tree: moved: no match")

	require.NoError(t, r.Dispatch(ctx, Moved{OldPath: "/app/src/models", NewPath: "/app/scripts"}))
	assert.Contains(t, logs.String(), "destination occupied")
	verify(t, r)
}

func TestWatchEventNotifications(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	var will, did []WatchEvent
	r.OnWillProcessWatchEvent(func(ev WatchEvent) { will = append(will, ev) })
	r.OnDidProcessWatchEvent(func(ev WatchEvent) { did = append(did, ev) })

	ev := Removed{Path: "/app/tests"}
	require.NoError(t, r.Dispatch(context.Background(), ev))
	assert.Equal(t, []WatchEvent{ev}, will)
	assert.Equal(t, []WatchEvent{ev}, did)

	assert.Error(t, r.Dispatch(context.Background(), nil))
}

func TestChangedFlushesAncestorsFirst(t *testing.T) {
	r, h := newSample(t, debugOpts())
	ctx := context.Background()
	expand(t, r, "/app/src")
	expand(t, r, "/app/src/models")
	require.Equal(t, 1, h.Calls("/app/src/models"))

	require.NoError(t, r.Dispatch(ctx, Changed{Folder: "/app/src/models"}))
	require.NoError(t, r.Dispatch(ctx, Changed{Folder: "/app"}))
	require.NoError(t, r.Dispatch(ctx, Changed{Folder: "/app"}))
	require.NoError(t, r.Dispatch(ctx, Changed{TID: "x", Folder: "/app/"}))
	assert.Equal(t, 3, r.PendingChanges())
	assert.Equal(t, 1, h.Calls("/app"), "Changed is queued, not applied")

	require.NoError(t, r.FlushEventQueue(ctx))
	assert.Equal(t, 0, r.PendingChanges())
	assert.Equal(t, 2, h.Calls("/app"), "one reload per folder")
	assert.Equal(t, 1, h.Calls("/app/src/models"), "descendant of a reloaded folder is skipped")
	assert.Equal(t, []string{"scripts", "src", "tests"}, surface(r), "reload does not restore expansion")
	verify(t, r)

	require.NoError(t, r.FlushEventQueue(ctx))
	assert.Equal(t, 2, h.Calls("/app"))
}

func TestChangedReloadsExpandedFolderInPlace(t *testing.T) {
	r, h := newSample(t, debugOpts())
	ctx := context.Background()
	src := expand(t, r, "/app/src")
	expand(t, r, "/app/src/models")
	oldModels := find(t, r, "/app/src/models")

	require.NoError(t, h.Put("/app/src", types.Item{Label: "hooks", Type: types.TypeFolder}))
	require.NoError(t, r.Dispatch(ctx, Changed{Folder: "/app/src"}))
	require.NoError(t, r.FlushEventQueue(ctx))

	assert.True(t, src.Expanded())
	assert.True(t, oldModels.Disposed())
	assert.Equal(t, []string{"scripts", "src", "src/components", "src/hooks", "src/models", "tests"}, surface(r))
	assert.Equal(t, 2, h.Calls("/app/src"))
	verify(t, r)
}

func TestChangedTimerFlush(t *testing.T) {
	r, h := newSample(t, Options{Debug: true, FlushDelay: 5 * time.Millisecond})
	require.NoError(t, r.Dispatch(context.Background(), Changed{Folder: "/app"}))
	require.Eventually(t, func() bool { return h.Calls("/app") == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return r.PendingChanges() == 0 }, time.Second, time.Millisecond)
	verify(t, r)
}

func TestDidChangeTreeDataRenamesAndReloads(t *testing.T) {
	r, h := newSample(t, debugOpts())
	src := expand(t, r, "/app/src")
	id := src.ID()
	oldComponents := find(t, r, "/app/src/components")
	tid := src.Item().TID

	require.NoError(t, h.Relabel(tid, "source"))
	h.Touch(tid)

	assert.Equal(t, id, find(t, r, "/app/source").ID())
	assert.Equal(t, "source", src.Item().Label)
	assert.True(t, oldComponents.Disposed(), "a changed folder refetches its children")
	assert.Equal(t, 1, h.Calls("/app/source"))
	assert.Equal(t, []string{"scripts", "source", "source/components", "source/models", "tests"}, surface(r))
	assert.True(t, h.Watching("/app/source"))
	assert.False(t, h.Watching("/app/src"))
	verify(t, r)
}

func TestDidChangeTreeDataForItemAndRoot(t *testing.T) {
	logs := testutil.CaptureLogs(t, slog.LevelDebug)
	r, h := newSample(t, debugOpts())
	ctx := context.Background()

	file, err := r.ForceLoadItemEntryAtPath(ctx, "/app/scripts/build/build.sh")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch(ctx, DidChangeTreeData{TID: file.Item().TID}))
	assert.False(t, file.Disposed())
	assert.Equal(t, "/app/scripts/build/build.sh", file.Path())

	require.NoError(t, r.Dispatch(ctx, DidChangeTreeData{TID: "unknown"}))
	assert.Contains(t, logs.String(), "tree data changed: no match")

	scripts := find(t, r, "/app/scripts")
	h.Touch("")
	assert.True(t, scripts.Disposed(), "root signal reloads the root")
	assert.Equal(t, 2, h.Calls("/app"))
	verify(t, r)
}
