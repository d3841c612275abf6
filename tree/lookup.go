package tree

import (
	"context"

	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// BranchSize returns the number of surfaced nodes, the root excluded.
func (r *Root) BranchSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.f.flat.len()
}

// ItemEntryAtIndex returns the surfaced node at position i, or nil when i is
// out of range. O(1).
func (r *Root) ItemEntryAtIndex(i int) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	flat := r.root.f.flat
	if flat == nil || i < 0 || i >= flat.len() {
		return nil
	}
	return r.arena.get(flat.ids[i])
}

// IndexOfItemEntry returns n's position in the surfaced ordering, or -1.
// The scan is linear in BranchSize.
func (r *Root) IndexOfItemEntry(n *Node) int {
	if n == nil || n.tree != r {
		return -1
	}
	return r.IndexOfItemEntryID(n.id)
}

// IndexOfItemEntryID is IndexOfItemEntry keyed by id.
func (r *Root) IndexOfItemEntryID(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.root.f.flat == nil {
		return -1
	}
	return r.root.f.flat.indexOf(id)
}

// IsItemVisibleAtSurface reports whether n is the root or surfaced.
func (r *Root) IsItemVisibleAtSurface(n *Node) bool {
	if n == r.root {
		return true
	}
	return r.IndexOfItemEntry(n) >= 0
}

// Surface returns a copy of the surfaced ids in order.
func (r *Root) Surface() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.root.f.flat == nil {
		return nil
	}
	return append([]ID(nil), r.root.f.flat.ids...)
}

// FindItemEntryInLoadedTree resolves path without loading anything. It
// returns ErrNotFound when a segment is missing and ErrNotLoaded when the
// walk reaches a folder whose children were never fetched.
func (r *Root) FindItemEntryInLoadedTree(path string) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, types.ErrClosed
	}
	n, _, err := r.walk(path)
	return n, err
}

// walk follows path from the root through loaded folders. On ErrNotLoaded
// it also returns the unloaded folder. Must be called with the lock held.
func (r *Root) walk(path string) (*Node, *Node, error) {
	segs, ok := r.style.Relative(r.root.path, path)
	if !ok {
		return nil, nil, types.Errorf(types.ErrNotFound, "%s is outside %s", path, r.root.path)
	}
	cur := r.root
	for _, seg := range segs {
		if cur.f == nil {
			return nil, nil, types.Errorf(types.ErrNotFound, "%s: %s is not a folder", path, cur.path)
		}
		if !cur.f.loaded {
			return nil, cur, types.Errorf(types.ErrNotLoaded, "%s: %s", path, cur.path)
		}
		next := cur.childByLabel(seg)
		if next == nil {
			return nil, nil, types.Errorf(types.ErrNotFound, "%s", path)
		}
		cur = next
	}
	return cur, nil, nil
}

// lookFolder resolves path to a loaded folder, or nil.
func (r *Root) lookFolder(path string) *Node {
	n, _, err := r.walk(path)
	if err != nil || n.f == nil || !n.f.loaded {
		return nil
	}
	return n
}

// FindItemEntryInLoadedTreeByID finds the node whose host record has tid by
// walking the loaded tree. The root matches the empty tid.
func (r *Root) FindItemEntryInLoadedTreeByID(tid string) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, types.ErrClosed
	}
	if n := r.findTID(tid); n != nil {
		return n, nil
	}
	return nil, types.Errorf(types.ErrNotFound, "tid %q", tid)
}

func (r *Root) findTID(tid string) *Node {
	if tid == "" {
		return r.root
	}
	var found *Node
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if n.item.TID == tid {
			found = n
			return true
		}
		if n.f == nil {
			return false
		}
		for _, c := range n.f.children {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(r.root)
	return found
}

// ForceLoadItemEntryAtPath resolves path, fetching every unloaded folder
// on the way.
func (r *Root) ForceLoadItemEntryAtPath(ctx context.Context, path string) (*Node, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, types.ErrClosed
		}
		n, unloaded, err := r.walk(path)
		r.mu.Unlock()
		if unloaded == nil {
			return n, err
		}
		if err := r.load(ctx, unloaded); err != nil {
			return nil, err
		}
	}
}
