package tree

import (
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// Node is a member of a Root: a leaf item or a folder. The root of the tree
// is a folder with no parent.
//
// Accessors take the tree lock and are safe for concurrent use. A Node's
// identity is its ID; the host record returned by Item is plain data.
type Node struct {
	tree     *Root
	id       ID
	kind     types.ItemType
	label    string
	depth    int
	parent   *Node
	path     string
	item     types.Item
	raw      any
	disposed bool

	f *folder // nil for items
}

// folder carries the folder-only state of a Node.
type folder struct {
	children []*Node // nil until loaded
	loaded   bool
	expanded bool

	// branchSize counts the ids this folder is responsible for in the
	// flattened ordering, including merged expanded descendants.
	branchSize int

	// flat is non-nil while this folder owns its flattened branch: always for
	// the root, and for collapsed loaded folders holding buried descendants.
	// It is nil while the branch is merged into an ancestor's.
	flat *idBuffer

	stopWatch func(string)
	watchPath string
}

func (r *Root) newNode(parent *Node, it types.Item, raw any) *Node {
	kind := types.TypeItem
	if it.Type == types.TypeFolder {
		kind = types.TypeFolder
	}
	n := &Node{
		tree:   r,
		kind:   kind,
		label:  it.Label,
		parent: parent,
		item:   it,
		raw:    raw,
	}
	if kind == types.TypeFolder {
		n.f = &folder{}
	}
	if parent != nil {
		n.depth = parent.depth + 1
		n.path = r.style.Join(parent.path, n.label)
	}
	n.id = r.arena.insert(n)
	return n
}

func (n *Node) isFolder() bool { return n.f != nil }

func (n *Node) query() types.ChildQuery {
	q := types.ChildQuery{Path: n.path}
	if n.parent != nil {
		it := n.item
		q.Item = &it
	}
	return q
}

func (n *Node) childByLabel(label string) *Node {
	if n.f == nil {
		return nil
	}
	for _, c := range n.f.children {
		if c.label == label {
			return c
		}
	}
	return nil
}

func (n *Node) childByTID(tid string) *Node {
	if n.f == nil || tid == "" {
		return nil
	}
	for _, c := range n.f.children {
		if c.item.TID == tid {
			return c
		}
	}
	return nil
}

func (n *Node) childIndex(c *Node) int {
	for i, x := range n.f.children {
		if x == c {
			return i
		}
	}
	return -1
}

// ID returns the node's tree-local identity.
func (n *Node) ID() ID { return n.id }

// Tree returns the Root the node belongs to.
func (n *Node) Tree() *Root { return n.tree }

// Kind reports whether the node is an item or a folder.
func (n *Node) Kind() types.ItemType { return n.kind }

// IsFolder reports whether the node can hold children.
func (n *Node) IsFolder() bool { return n.f != nil }

// IsRoot reports whether n is the tree's root.
func (n *Node) IsRoot() bool { return n.tree.root == n }

// Label returns the node's current basename.
func (n *Node) Label() string {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.label
}

// Depth returns 0 for the root and parent depth + 1 otherwise.
func (n *Node) Depth() int {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.depth
}

// Path returns the node's full path.
func (n *Node) Path() string {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.path
}

// Parent returns the node's parent, or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.parent
}

// Item returns a copy of the host record.
func (n *Node) Item() types.Item {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.item
}

// Disposed reports whether the node has left the tree.
func (n *Node) Disposed() bool {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.disposed
}

// Loaded reports whether a folder's children have been fetched.
func (n *Node) Loaded() bool {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.f != nil && n.f.loaded
}

// Expanded reports whether a folder is expanded. The root always is.
func (n *Node) Expanded() bool {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	return n.f != nil && (n.tree.root == n || n.f.expanded)
}

// BranchSize returns the number of ids a folder is responsible for; 0 for
// items.
func (n *Node) BranchSize() int {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	if n.f == nil {
		return 0
	}
	return n.f.branchSize
}

// Children returns a copy of a loaded folder's sorted children, or nil.
func (n *Node) Children() []*Node {
	n.tree.mu.Lock()
	defer n.tree.mu.Unlock()
	if n.f == nil || !n.f.loaded {
		return nil
	}
	out := make([]*Node, len(n.f.children))
	copy(out, n.f.children)
	return out
}

// String returns the node's path.
func (n *Node) String() string { return n.Path() }
