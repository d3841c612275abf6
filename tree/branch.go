package tree

import "slices"

// idBuffer is a flattened branch: the visible, depth-first ordering of the
// ids a folder is responsible for.
type idBuffer struct {
	ids []ID
}

func newIDBuffer(ids []ID) *idBuffer { return &idBuffer{ids: ids} }

func (b *idBuffer) len() int { return len(b.ids) }

// insert splices block in at position at with a single copy.
func (b *idBuffer) insert(at int, block []ID) {
	b.ids = slices.Insert(b.ids, at, block...)
}

// remove cuts n ids starting at position at and returns them as a new slice.
func (b *idBuffer) remove(at, n int) []ID {
	out := slices.Clone(b.ids[at : at+n])
	b.ids = slices.Delete(b.ids, at, at+n)
	return out
}

func (b *idBuffer) indexOf(id ID) int {
	return slices.Index(b.ids, id)
}

// owner returns the nearest folder from n upward that owns a flattened
// branch, calling visit on every delegating folder passed on the way.
// n itself is visited only when it delegates.
func owner(n *Node, visit func(*Node)) *Node {
	cur := n
	for cur.f.flat == nil {
		if visit != nil {
			visit(cur)
		}
		cur = cur.parent
	}
	return cur
}

// surfacedSize is the number of ids a child contributes to its parent's
// ordering beyond its own: its branch size when it is an expanded folder
// merged into an ancestor's branch.
func surfacedSize(n *Node) int {
	if n.f == nil || !n.f.loaded || !n.f.expanded || n.f.flat != nil {
		return 0
	}
	return n.f.branchSize
}

// expandBranch moves f's owned branch into the nearest owning ancestor right
// after f's own entry, and grows every folder on the way by f's size.
// f must be a loaded non-root folder that owns its branch.
func (r *Root) expandBranch(f *Node) {
	block := f.f.flat
	size := f.f.branchSize
	own := owner(f.parent, nil)
	at := own.f.flat.indexOf(f.id)
	if at < 0 {
		r.logInvariant("expand: folder missing from owning branch", f, own)
		return
	}
	owner(f.parent, func(a *Node) { a.f.branchSize += size })
	own.f.branchSize += size
	own.f.flat.insert(at+1, block.ids)
	f.f.flat = nil
	r.dirty = true
}

// shrinkBranch is the inverse of expandBranch: f reclaims its slice from the
// owning ancestor and every folder on the way shrinks by f's size.
func (r *Root) shrinkBranch(f *Node) {
	size := f.f.branchSize
	own := owner(f.parent, nil)
	at := own.f.flat.indexOf(f.id)
	if at < 0 || at+1+size > own.f.flat.len() {
		r.logInvariant("shrink: folder slice out of range", f, own)
		return
	}
	owner(f.parent, func(a *Node) { a.f.branchSize -= size })
	own.f.branchSize -= size
	f.f.flat = newIDBuffer(own.f.flat.remove(at+1, size))
	r.dirty = true
}
