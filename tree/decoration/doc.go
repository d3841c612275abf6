// Package decoration resolves class names ("decorations") onto the nodes of
// a tree.Root.
//
// A Decoration carries class names and a set of targets. Each target has a
// MatchMode: Self decorates the node, Children decorates everything below
// it, SelfAndChildren does both. NegateTarget cancels a decoration at a node
// (and, per mode, below it) even when an ancestor passes it down. Disabling a
// decoration keeps its targets but removes its classes everywhere.
//
// A Manager binds decorations to one tree. Manager.Decorations returns the
// ClassList of a node; listeners on the list hear about every change to its
// resolved classes, whether it came from a decoration, a move or a dispose:
//
//	active := decoration.New("active")
//	active.AddTarget(src, decoration.SelfAndChildren)
//	m, _ := decoration.NewManager(root)
//	_ = m.AddDecoration(active)
//	list, _ := m.Decorations(header)
//	list.Has("active") // true while header is below src
//
// Only nodes something targets directly carry their own resolution state.
// Every other node shares its nearest targeted ancestor's, so a change
// touches no more than the decorated region of the tree. Disposed targets
// are dropped without error.
package decoration
