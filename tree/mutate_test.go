package tree

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

func TestMoveExpandedEmptyFolder(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	ctx := context.Background()
	tests := expand(t, r, "/app/tests")
	scripts := expand(t, r, "/app/scripts")
	require.Equal(t, 0, tests.BranchSize())

	require.NoError(t, r.Dispatch(ctx, Moved{OldPath: "/app/tests", NewPath: "/app/scripts/tests"}))

	moved := find(t, r, "/app/scripts/tests")
	assert.Same(t, tests, moved)
	assert.Same(t, scripts, moved.Parent())
	assert.False(t, moved.Disposed())
	assert.True(t, moved.Expanded())
	assert.Equal(t, []string{"scripts", "scripts/build", "scripts/tests", "src"}, surface(r))
	verify(t, r)

	require.NoError(t, r.CollapseFolder(moved))
	require.NoError(t, r.ExpandFolder(ctx, moved, false))
	assert.Equal(t, []string{"scripts", "scripts/build", "scripts/tests", "src"}, surface(r))
	verify(t, r)
}

func TestRenameExpandedEmptyFolder(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	tests := expand(t, r, "/app/tests")

	move(r, tests, r.Root(), "zzz")
	assert.Same(t, tests, find(t, r, "/app/zzz"))
	assert.True(t, tests.Expanded())
	assert.Equal(t, []string{"scripts", "src", "zzz"}, surface(r))
	verify(t, r)

	move(r, tests, r.Root(), "aaa")
	assert.Equal(t, []string{"aaa", "scripts", "src"}, surface(r))
	verify(t, r)
}

func TestVerifyReportsUnreachableNodes(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	require.NoError(t, r.Verify())

	r.mu.Lock()
	stray := r.newNode(r.root, types.Item{Label: "stray", Type: types.TypeItem}, nil)
	r.mu.Unlock()

	err := r.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/app/stray: live node unreachable from the root")

	r.mu.Lock()
	r.arena.remove(stray.id)
	r.mu.Unlock()
	require.NoError(t, r.Verify())
}

func TestExpandBranchLeavesSizesOnMissingEntry(t *testing.T) {
	r, _ := newSample(t, debugOpts())
	src := expand(t, r, "/app/src")
	logs := testutil.CaptureLogs(t, slog.LevelError)

	r.mu.Lock()
	stray := r.newNode(src, types.Item{Label: "stray", Type: types.TypeFolder}, nil)
	stray.f.loaded = true
	stray.f.flat = newIDBuffer(nil)
	stray.f.branchSize = 2
	srcSize, rootSize := src.f.branchSize, r.root.f.branchSize
	r.expandBranch(stray)
	assert.Equal(t, srcSize, src.f.branchSize)
	assert.Equal(t, rootSize, r.root.f.branchSize)
	assert.NotNil(t, stray.f.flat, "stray keeps its branch")
	r.arena.remove(stray.id)
	r.mu.Unlock()

	assert.Contains(t, logs.String(), "folder missing from owning branch")
	verify(t, r)
}
