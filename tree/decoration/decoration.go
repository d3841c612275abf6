package decoration

import (
	"slices"
	"sync"

	"github.com/tinialabs/react-birch-sub000/tree"
)

// MatchMode selects which resolution views a (decoration, target) pair
// feeds.
type MatchMode uint8

const (
	// None removes the pair.
	None MatchMode = iota
	// Self affects the target only.
	Self
	// Children affects the target's descendants only.
	Children
	// SelfAndChildren affects the target and its descendants.
	SelfAndChildren
)

// String implements the Stringer interface for MatchMode.
func (m MatchMode) String() string {
	switch m {
	case None:
		return "none"
	case Self:
		return "self"
	case Children:
		return "children"
	case SelfAndChildren:
		return "self+children"
	default:
		return "unknown"
	}
}

func (m MatchMode) self() bool     { return m == Self || m == SelfAndChildren }
func (m MatchMode) children() bool { return m == Children || m == SelfAndChildren }

type eventKind uint8

const (
	evTarget eventKind = iota // applied target set or changed
	evUntarget
	evNegate
	evUnNegate
	evClasses
	evDisabled
)

type event struct {
	kind eventKind
	node *tree.Node
	mode MatchMode
}

// Decoration is a set of class names applied to, inherited by and negated
// for tree nodes. It has no effect until added to a Manager.
//
// Decoration is safe for concurrent use.
type Decoration struct {
	mu       sync.Mutex
	classes  []string
	disabled bool
	applied  map[*tree.Node]MatchMode
	negated  map[*tree.Node]MatchMode
	hooks    map[*tree.Node]func() // cancels the once-disposed hook per node

	subs    []subscription
	nextSub int
}

type subscription struct {
	id int
	fn func(*Decoration, event)
}

// New returns a decoration carrying classes.
func New(classes ...string) *Decoration {
	d := &Decoration{
		applied: make(map[*tree.Node]MatchMode),
		negated: make(map[*tree.Node]MatchMode),
		hooks:   make(map[*tree.Node]func()),
	}
	for _, c := range classes {
		if c != "" && !slices.Contains(d.classes, c) {
			d.classes = append(d.classes, c)
		}
	}
	return d
}

func (d *Decoration) subscribe(fn func(*Decoration, event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSub++
	id := d.nextSub
	d.subs = append(d.subs, subscription{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

// emit delivers ev to subscribed managers. Must be called without d.mu.
func (d *Decoration) emit(ev event) {
	d.mu.Lock()
	subs := d.subs
	d.mu.Unlock()
	for _, s := range subs {
		s.fn(d, ev)
	}
}

// AddTarget applies the decoration at n. Calling it again with another mode
// replaces the mode; None removes the target.
func (d *Decoration) AddTarget(n *tree.Node, mode MatchMode) {
	if mode == None {
		d.RemoveTarget(n)
		return
	}
	d.mu.Lock()
	if d.applied[n] == mode {
		d.mu.Unlock()
		return
	}
	d.applied[n] = mode
	d.mu.Unlock()
	d.watchNode(n)
	d.emit(event{kind: evTarget, node: n, mode: mode})
}

// RemoveTarget drops the applied target at n.
func (d *Decoration) RemoveTarget(n *tree.Node) {
	d.mu.Lock()
	if _, ok := d.applied[n]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.applied, n)
	d.mu.Unlock()
	d.unwatchNode(n)
	d.emit(event{kind: evUntarget, node: n})
}

// NegateTarget cancels the decoration at n (and, per mode, below n), even
// where it is inherited from an ancestor.
func (d *Decoration) NegateTarget(n *tree.Node, mode MatchMode) {
	if mode == None {
		d.UnNegateTarget(n)
		return
	}
	d.mu.Lock()
	if d.negated[n] == mode {
		d.mu.Unlock()
		return
	}
	d.negated[n] = mode
	d.mu.Unlock()
	d.watchNode(n)
	d.emit(event{kind: evNegate, node: n, mode: mode})
}

// UnNegateTarget drops the negation at n.
func (d *Decoration) UnNegateTarget(n *tree.Node) {
	d.mu.Lock()
	if _, ok := d.negated[n]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.negated, n)
	d.mu.Unlock()
	d.unwatchNode(n)
	d.emit(event{kind: evUnNegate, node: n})
}

// watchNode makes sure a disposed target is dropped silently.
func (d *Decoration) watchNode(n *tree.Node) {
	d.mu.Lock()
	_, ok := d.hooks[n]
	if !ok {
		d.hooks[n] = func() {}
	}
	d.mu.Unlock()
	if ok {
		return
	}
	cancel := n.Tree().OnceDisposed(n, func() { d.dropNode(n) })
	d.mu.Lock()
	if _, still := d.hooks[n]; still {
		d.hooks[n] = cancel
		cancel = nil
	}
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (d *Decoration) unwatchNode(n *tree.Node) {
	d.mu.Lock()
	_, applied := d.applied[n]
	_, negated := d.negated[n]
	cancel, ok := d.hooks[n]
	if applied || negated || !ok {
		d.mu.Unlock()
		return
	}
	delete(d.hooks, n)
	d.mu.Unlock()
	cancel()
}

func (d *Decoration) dropNode(n *tree.Node) {
	d.mu.Lock()
	_, applied := d.applied[n]
	_, negated := d.negated[n]
	delete(d.applied, n)
	delete(d.negated, n)
	delete(d.hooks, n)
	d.mu.Unlock()
	if applied {
		d.emit(event{kind: evUntarget, node: n})
	}
	if negated {
		d.emit(event{kind: evUnNegate, node: n})
	}
}

// AddCSSClass adds cls to every node the decoration currently renders on.
func (d *Decoration) AddCSSClass(cls string) {
	d.mu.Lock()
	if cls == "" || slices.Contains(d.classes, cls) {
		d.mu.Unlock()
		return
	}
	d.classes = append(d.classes, cls)
	d.mu.Unlock()
	d.emit(event{kind: evClasses})
}

// RemoveCSSClass removes cls.
func (d *Decoration) RemoveCSSClass(cls string) {
	d.mu.Lock()
	i := slices.Index(d.classes, cls)
	if i < 0 {
		d.mu.Unlock()
		return
	}
	d.classes = slices.Delete(d.classes, i, i+1)
	d.mu.Unlock()
	d.emit(event{kind: evClasses})
}

// Disabled reports whether the decoration is switched off. A disabled
// decoration keeps its targets but contributes no classes.
func (d *Decoration) Disabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disabled
}

// SetDisabled switches the decoration off or back on.
func (d *Decoration) SetDisabled(disabled bool) {
	d.mu.Lock()
	if d.disabled == disabled {
		d.mu.Unlock()
		return
	}
	d.disabled = disabled
	d.mu.Unlock()
	d.emit(event{kind: evDisabled})
}

// Classes returns a copy of the decoration's class names.
func (d *Decoration) Classes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.classes)
}

// AppliedTargets returns a copy of the applied targets.
func (d *Decoration) AppliedTargets() map[*tree.Node]MatchMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[*tree.Node]MatchMode, len(d.applied))
	for n, m := range d.applied {
		out[n] = m
	}
	return out
}

// NegatedTargets returns a copy of the negated targets.
func (d *Decoration) NegatedTargets() map[*tree.Node]MatchMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[*tree.Node]MatchMode, len(d.negated))
	for n, m := range d.negated {
		out[n] = m
	}
	return out
}

// contribution returns the classes d adds to a node that renders it.
func (d *Decoration) contribution() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disabled {
		return nil
	}
	return d.classes
}
