package tree

import (
	"errors"
	"fmt"
	"slices"
)

const maxViolations = 16

// Verify checks the tree's structural invariants and returns every
// violation found, joined:
//
//   - each folder's branch size equals its children plus the branch sizes
//     of its merged expanded children;
//   - every owned branch lists exactly the visible depth-first order of its
//     folder's subtree, and a loaded non-root folder owns its branch exactly
//     when it is collapsed;
//   - every surfaced id resolves to a distinct live node whose index maps
//     back to its position;
//   - children are sorted, and depth and path follow the parent chain;
//   - every live node is reachable from the root through child lists.
func (r *Root) Verify() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verifyLocked()
}

func (r *Root) verifyLocked() error {
	var errs []error
	report := func(format string, args ...any) {
		if len(errs) < maxViolations {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	var visit func(f *Node)
	visit = func(f *Node) {
		fd := f.f
		if !fd.loaded {
			return
		}
		size := 0
		for i, c := range fd.children {
			if c.disposed {
				report("%s: disposed child %s", f.path, c.label)
			}
			if c.parent != f {
				report("%s: child %s points at another parent", f.path, c.label)
			}
			if c.depth != f.depth+1 {
				report("%s: depth %d, want %d", c.path, c.depth, f.depth+1)
			}
			if want := r.style.Join(f.path, c.label); c.path != want {
				report("%s: path, want %s", c.path, want)
			}
			if i > 0 && r.cmp(fd.children[i-1].item, c.item) > 0 {
				report("%s: children out of order at %s", f.path, c.label)
			}
			size += 1 + surfacedSize(c)
			if c.f != nil {
				visit(c)
			}
		}
		if fd.branchSize != size {
			report("%s: branch size %d, want %d", f.path, fd.branchSize, size)
		}

		owns := fd.flat != nil
		switch {
		case f == r.root && !owns:
			report("root does not own its branch")
		case f != r.root && owns == fd.expanded:
			report("%s: expanded=%v but owns=%v", f.path, fd.expanded, owns)
		}
		if owns {
			want := r.expectedOrder(f, nil)
			if !slices.Equal(fd.flat.ids, want) {
				report("%s: owned branch %v, want %v", f.path, fd.flat.ids, want)
			}
		}
	}
	visit(r.root)

	reached := make(map[*Node]bool, r.arena.len())
	var reach func(n *Node)
	reach = func(n *Node) {
		reached[n] = true
		if n.f != nil {
			for _, c := range n.f.children {
				reach(c)
			}
		}
	}
	reach(r.root)
	for _, sl := range r.arena.slots {
		if sl.node != nil && !reached[sl.node] {
			report("%s: live node unreachable from the root", sl.node.path)
		}
	}

	seen := make(map[ID]int, r.root.f.flat.len())
	for i, id := range r.root.f.flat.ids {
		n := r.arena.get(id)
		switch {
		case n == nil:
			report("surface[%d]: id %s does not resolve", i, id)
		case n.disposed:
			report("surface[%d]: %s is disposed", i, n.path)
		}
		if j, dup := seen[id]; dup {
			report("surface[%d]: id %s repeats position %d", i, id, j)
		}
		seen[id] = i
		if k := r.root.f.flat.indexOf(id); k != i && n != nil {
			report("surface[%d]: %s indexes back to %d", i, n.path, k)
		}
	}
	return errors.Join(errs...)
}

// expectedOrder lists f's visible subtree depth first, descending into
// merged expanded children only.
func (r *Root) expectedOrder(f *Node, out []ID) []ID {
	for _, c := range f.f.children {
		out = append(out, c.id)
		if c.f != nil && c.f.loaded && c.f.expanded && c.f.flat == nil {
			out = r.expectedOrder(c, out)
		}
	}
	return out
}
