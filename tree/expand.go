package tree

import "context"

// ExpandFolder expands f, loading its children first if needed. When
// ensureVisible is set, collapsed ancestors are expanded too so f ends up
// surfaced. A CollapseFolder that lands while the load is in flight wins:
// the expand then stops without error.
func (r *Root) ExpandFolder(ctx context.Context, f *Node, ensureVisible bool) error {
	r.mu.Lock()
	if err := r.checkFolder(f); err != nil {
		r.unlock()
		return err
	}
	if f == r.root || f.f.expanded {
		r.unlock()
		return nil
	}
	if f.f.loaded {
		r.expandLoaded(f, ensureVisible)
		r.unlock()
		return nil
	}
	f.f.expanded = true
	r.unlock()

	if err := r.load(ctx, f); err != nil {
		r.mu.Lock()
		if !f.disposed && !f.f.loaded {
			f.f.expanded = false
		}
		r.unlock()
		return err
	}

	r.mu.Lock()
	defer r.unlock()
	if err := r.checkFolder(f); err != nil {
		return err
	}
	if !f.f.expanded {
		return nil
	}
	r.surface(f, ensureVisible)
	return nil
}

// expandLoaded expands a loaded, collapsed folder. Must be called with the
// lock held.
func (r *Root) expandLoaded(f *Node, ensureVisible bool) {
	f.f.expanded = true
	r.surface(f, ensureVisible)
}

// surface finishes an expand: ancestors first when asked, then f's own
// branch unless the load already merged it. Expansion notifications bracket
// the splice, so a folder whose load merged it reports nothing here.
func (r *Root) surface(f *Node, ensureVisible bool) {
	if ensureVisible {
		for a := f.parent; a != nil && a != r.root; a = a.parent {
			if !a.f.expanded {
				r.expandLoaded(a, true)
				break
			}
		}
	}
	if f.f.flat == nil {
		return
	}
	ev := ExpansionChange{Folder: f, Expanded: true}
	r.notifyExpansion(true, ev)
	r.expandBranch(f)
	r.notifyExpansion(false, ev)
}

// CollapseFolder collapses f. Its visible descendants stay in memory as f's
// own branch, so expanding it again needs no host fetch. Collapsing the root
// or a collapsed folder is a no-op.
func (r *Root) CollapseFolder(f *Node) error {
	r.mu.Lock()
	defer r.unlock()
	if err := r.checkFolder(f); err != nil {
		return err
	}
	if f == r.root || !f.f.expanded {
		return nil
	}
	if !f.f.loaded {
		// The pending expand never surfaced anything.
		f.f.expanded = false
		return nil
	}
	ev := ExpansionChange{Folder: f, Expanded: false}
	r.notifyExpansion(true, ev)
	if f.f.flat == nil {
		r.shrinkBranch(f)
	}
	f.f.expanded = false
	r.notifyExpansion(false, ev)
	return nil
}
