package decoration

import (
	"sync"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
	"github.com/tinialabs/react-birch-sub000/tree"
)

// entry holds both views of one node.
type entry struct {
	applicable  *composite
	inheritable *composite
}

// Manager resolves registered decorations against one tree and keeps the
// result current as decorations and the tree change.
//
// ChangeListener callbacks run after the manager's lock is released, so
// they may call back into the manager.
type Manager struct {
	mu      sync.Mutex
	tree    *tree.Root
	nodes   map[*tree.Node]*entry
	decos   map[*Decoration]func()
	renders map[*Decoration]map[*composite]struct{}

	unsubs   []func()
	pending  []func()
	disposed bool
}

// NewManager returns a manager bound to t.
func NewManager(t *tree.Root) (*Manager, error) {
	if t == nil {
		return nil, types.Errorf(types.ErrNotFound, "nil tree")
	}
	m := &Manager{
		tree:    t,
		nodes:   make(map[*tree.Node]*entry),
		decos:   make(map[*Decoration]func()),
		renders: make(map[*Decoration]map[*composite]struct{}),
	}
	m.mu.Lock()
	m.entryFor(t.Root())
	m.mu.Unlock()
	m.unsubs = append(m.unsubs,
		t.OnDidChangeParent(m.parentChanged),
		t.OnWillDispose(m.nodeDisposed),
	)
	return m, nil
}

// Tree returns the tree the manager resolves against.
func (m *Manager) Tree() *tree.Root { return m.tree }

func (m *Manager) queue(fn func()) { m.pending = append(m.pending, fn) }

// unlock releases m.mu and then delivers queued listener callbacks.
func (m *Manager) unlock() {
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (m *Manager) render(d *Decoration, c *composite) {
	set := m.renders[d]
	if set == nil {
		set = make(map[*composite]struct{})
		m.renders[d] = set
	}
	set[c] = struct{}{}
}

func (m *Manager) unrender(d *Decoration, c *composite) {
	if set := m.renders[d]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(m.renders, d)
		}
	}
}

// entryFor returns the composites of n, creating them and any missing
// ancestors' composites on first use.
func (m *Manager) entryFor(n *tree.Node) *entry {
	if e := m.nodes[n]; e != nil {
		return e
	}
	var pin *composite
	if p := n.Parent(); p != nil {
		pin = m.entryFor(p).inheritable
	}
	e := &entry{
		applicable:  &composite{m: m, node: n, view: applicable, parent: pin},
		inheritable: &composite{m: m, node: n, view: inheritable, parent: pin},
	}
	e.applicable.list = &ClassList{c: e.applicable}
	if pin == nil {
		e.applicable.selfOwned = true
		e.inheritable.selfOwned = true
	} else {
		pin.link(e.applicable)
		pin.link(e.inheritable)
	}
	e.applicable.seen = e.applicable.classes()
	e.inheritable.seen = e.inheritable.classes()
	m.nodes[n] = e
	return e
}

// forget drops n's composites.
func (m *Manager) forget(n *tree.Node) {
	e := m.nodes[n]
	if e == nil {
		return
	}
	delete(m.nodes, n)
	for _, c := range []*composite{e.applicable, e.inheritable} {
		if c.parent != nil {
			c.parent.unlink(c)
		}
		for _, d := range c.rendered {
			m.unrender(d, c)
		}
		for _, l := range c.linked {
			l.parent = nil
		}
		c.linked = nil
		if c.list != nil {
			c.list.listeners = nil
		}
	}
}

// AddDecoration registers d. Its existing targets take effect at once and
// later changes to d are tracked until RemoveDecoration.
func (m *Manager) AddDecoration(d *Decoration) error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return types.ErrClosed
	}
	if _, ok := m.decos[d]; ok {
		m.mu.Unlock()
		return nil
	}
	m.decos[d] = func() {}
	m.mu.Unlock()

	unsub := d.subscribe(m.handle)

	m.mu.Lock()
	defer m.unlock()
	if _, ok := m.decos[d]; !ok || m.disposed {
		unsub()
		return nil
	}
	m.decos[d] = unsub
	for n, mode := range d.AppliedTargets() {
		m.target(d, n, mode)
	}
	for n, mode := range d.NegatedTargets() {
		m.negate(d, n, mode)
	}
	return nil
}

// RemoveDecoration unregisters d and undoes everything it contributed.
func (m *Manager) RemoveDecoration(d *Decoration) {
	m.mu.Lock()
	unsub, ok := m.decos[d]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.decos, d)
	m.mu.Unlock()
	unsub()

	m.mu.Lock()
	defer m.unlock()
	for n := range d.AppliedTargets() {
		m.untarget(d, n)
	}
	for n := range d.NegatedTargets() {
		m.unnegate(d, n)
	}
}

// Decorations returns the class list rendered on n.
func (m *Manager) Decorations(n *tree.Node) (*ClassList, error) {
	if n == nil {
		return nil, types.Errorf(types.ErrNotFound, "nil node")
	}
	if n.Tree() != m.tree {
		return nil, types.Errorf(types.ErrForeignNode, "%s", n.Label())
	}
	m.mu.Lock()
	defer m.unlock()
	if m.disposed {
		return nil, types.ErrClosed
	}
	if n.Disposed() {
		return nil, types.Errorf(types.ErrDisposed, "%s", n.Label())
	}
	return m.entryFor(n).applicable.list, nil
}

// Dispose unregisters every decoration and stops tracking the tree.
// Class lists handed out earlier stop receiving notifications.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	decos := m.decos
	m.decos = make(map[*Decoration]func())
	for n := range m.nodes {
		m.forget(n)
	}
	m.renders = make(map[*Decoration]map[*composite]struct{})
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()
	for _, fn := range decos {
		fn()
	}
	for _, fn := range unsubs {
		fn()
	}
}

// handle applies one decoration change. It runs with d.mu released.
func (m *Manager) handle(d *Decoration, ev event) {
	m.mu.Lock()
	defer m.unlock()
	if _, ok := m.decos[d]; !ok || m.disposed {
		return
	}
	switch ev.kind {
	case evTarget:
		m.target(d, ev.node, ev.mode)
	case evUntarget:
		m.untarget(d, ev.node)
	case evNegate:
		m.negate(d, ev.node, ev.mode)
	case evUnNegate:
		m.unnegate(d, ev.node)
	case evClasses, evDisabled:
		for c := range m.renders[d] {
			c.update(false)
		}
	}
}

// usable reports whether n can carry targets in this manager.
func (m *Manager) usable(n *tree.Node) bool {
	return n != nil && n.Tree() == m.tree && !n.Disposed()
}

func (m *Manager) target(d *Decoration, n *tree.Node, mode MatchMode) {
	if !m.usable(n) {
		m.forget(n)
		return
	}
	e := m.entryFor(n)
	e.applicable.applied = toggle(e.applicable.applied, d, mode.self())
	e.inheritable.applied = toggle(e.inheritable.applied, d, mode.children())
	e.inheritable.settle()
	e.applicable.settle()
}

func (m *Manager) untarget(d *Decoration, n *tree.Node) {
	e := m.nodes[n]
	if e == nil {
		return
	}
	if !m.usable(n) {
		m.forget(n)
		return
	}
	e.applicable.applied, _ = remove(e.applicable.applied, d)
	e.inheritable.applied, _ = remove(e.inheritable.applied, d)
	e.inheritable.settle()
	e.applicable.settle()
}

func (m *Manager) negate(d *Decoration, n *tree.Node, mode MatchMode) {
	if !m.usable(n) {
		m.forget(n)
		return
	}
	e := m.entryFor(n)
	e.applicable.negated = toggle(e.applicable.negated, d, mode.self())
	e.inheritable.negated = toggle(e.inheritable.negated, d, mode.children())
	e.inheritable.settle()
	e.applicable.settle()
}

func (m *Manager) unnegate(d *Decoration, n *tree.Node) {
	e := m.nodes[n]
	if e == nil {
		return
	}
	if !m.usable(n) {
		m.forget(n)
		return
	}
	e.applicable.negated, _ = remove(e.applicable.negated, d)
	e.inheritable.negated, _ = remove(e.inheritable.negated, d)
	e.inheritable.settle()
	e.applicable.settle()
}

func toggle(s []*Decoration, d *Decoration, on bool) []*Decoration {
	if on {
		s, _ = addUnique(s, d)
		return s
	}
	s, _ = remove(s, d)
	return s
}

// parentChanged relinks a moved node's composites under its new parent.
func (m *Manager) parentChanged(ev tree.ParentChange) {
	m.mu.Lock()
	defer m.unlock()
	if m.disposed || ev.OldParent == ev.NewParent {
		return
	}
	e := m.nodes[ev.Node]
	if e == nil {
		return
	}
	if ev.NewParent == nil || ev.NewParent.Disposed() {
		m.forget(ev.Node)
		return
	}
	pin := m.entryFor(ev.NewParent).inheritable
	e.inheritable.reparent(pin)
	e.applicable.reparent(pin)
	logger.Debug("decoration: relinked", "node", ev.Node.Path())
}

func (m *Manager) nodeDisposed(n *tree.Node) {
	m.mu.Lock()
	defer m.unlock()
	m.forget(n)
}
