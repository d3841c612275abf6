package tree

import (
	"slices"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
)

// All functions in this file must be called with the tree lock held.

// insertItem adds n to p's sorted children and splices n (plus its visible
// descendants when it arrives expanded) into the owning branch. n must
// already point at p; otherwise the call is forwarded to mv.
func (r *Root) insertItem(p, n *Node) {
	if n.parent != p {
		r.mv(n, p, n.label)
		return
	}
	if !p.f.loaded || p.childIndex(n) >= 0 {
		return
	}

	block := []ID{n.id}
	carried := n.f != nil && n.f.loaded && n.f.expanded
	if carried {
		switch {
		case n.f.flat != nil:
			block = append(block, n.f.flat.ids...)
		case n.f.branchSize != 0:
			r.logInvariant("insert: expanded folder arrived without its branch", n, p)
			return
		}
	}
	delta := len(block)

	at, _ := slices.BinarySearchFunc(p.f.children, n, func(c, target *Node) int {
		if r.cmp(c.item, target.item) <= 0 {
			return -1
		}
		return 1
	})

	// Position in the owning branch: right after the sorted predecessor and
	// everything it surfaces, or right after p's own entry.
	own := owner(p, nil)
	var pos int
	if at > 0 {
		pred := p.f.children[at-1]
		i := own.f.flat.indexOf(pred.id)
		if i < 0 {
			r.logInvariant("insert: predecessor missing from owning branch", pred, own)
			return
		}
		pos = i + 1 + surfacedSize(pred)
	} else if own != p {
		i := own.f.flat.indexOf(p.id)
		if i < 0 {
			r.logInvariant("insert: folder missing from owning branch", p, own)
			return
		}
		pos = i + 1
	}

	p.f.children = slices.Insert(p.f.children, at, n)
	owner(p, func(a *Node) { a.f.branchSize += delta })
	own.f.branchSize += delta
	own.f.flat.insert(pos, block)
	if carried {
		n.f.flat = nil
	}
	r.dirty = true
}

// unlinkItem removes n from p's children and cuts its ids out of the owning
// branch. An expanded folder keeps its cut slice, empty or not, as its own
// branch so it can be inserted elsewhere intact. Unless reparenting, n is then detached and
// disposed.
func (r *Root) unlinkItem(p, n *Node, reparenting bool) {
	idx := -1
	if p.f != nil && p.f.loaded {
		idx = p.childIndex(n)
	}
	if idx < 0 {
		if !reparenting && n.parent == p {
			r.mv(n, nil, "")
		}
		return
	}

	carried := n.f != nil && n.f.loaded && n.f.expanded && n.f.flat == nil
	delta := 1 + surfacedSize(n)
	own := owner(p, nil)
	pos := own.f.flat.indexOf(n.id)
	if pos < 0 || pos+delta > own.f.flat.len() {
		r.logInvariant("unlink: node missing from owning branch", n, own)
		return
	}

	p.f.children = slices.Delete(p.f.children, idx, idx+1)
	owner(p, func(a *Node) { a.f.branchSize -= delta })
	own.f.branchSize -= delta
	cut := own.f.flat.remove(pos, delta)
	if carried {
		n.f.flat = newIDBuffer(cut[1:])
	}
	r.dirty = true

	if !reparenting && n.parent == p {
		r.mv(n, nil, "")
	}
}

// mv moves n under target with the given label, or detaches and disposes it
// when target is nil. A move into a folder that is not loaded detaches too.
func (r *Root) mv(n *Node, target *Node, label string) {
	if n == r.root {
		r.logInvariant("mv: root cannot move", n, nil)
		return
	}
	oldPath := n.path
	prev := n.parent

	if target == nil || target.f == nil || !target.f.loaded || target.disposed {
		n.parent = nil
		if prev != nil {
			r.unlinkItem(prev, n, true)
		}
		r.dispose(n)
		return
	}
	if label == "" {
		label = n.label
	}
	if prev == target && label == n.label {
		return
	}
	for a := target; a != nil; a = a.parent {
		if a == n {
			logger.Warn("tree: refusing to move folder into itself", "path", oldPath, "target", target.path)
			return
		}
	}

	ev := ParentChange{Node: n, OldParent: prev, NewParent: target}
	r.notifyParentChange(true, ev)
	if prev != nil {
		r.unlinkItem(prev, n, true)
	}
	n.label = label
	n.item.Label = label
	n.parent = target
	r.insertItem(target, n)
	r.notifyParentChange(false, ev)

	r.refreshPaths(n)
	if n.path != oldPath {
		r.notifyPathChange(PathChange{Node: n, OldPath: oldPath, NewPath: n.path})
	}
}

// refreshPaths recomputes path and depth for n and its loaded descendants,
// moving folder watches to the new paths.
func (r *Root) refreshPaths(n *Node) {
	n.depth = n.parent.depth + 1
	n.path = r.style.Join(n.parent.path, n.label)
	if n.f == nil {
		return
	}
	if n.f.stopWatch != nil && n.f.watchPath != n.path {
		r.watch(n)
	}
	for _, c := range n.f.children {
		r.refreshPaths(c)
	}
}

// dispose retires n and its loaded descendants: watches end, ids leave the
// arena and dispose listeners are notified children first.
func (r *Root) dispose(n *Node) {
	if n.disposed {
		return
	}
	if n.f != nil {
		r.unwatch(n)
		for _, c := range n.f.children {
			r.dispose(c)
		}
		n.f.flat = nil
	}
	n.disposed = true
	r.arena.remove(n.id)
	r.notifyDispose(n)
}
