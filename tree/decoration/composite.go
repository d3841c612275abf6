package decoration

import (
	"slices"

	"github.com/tinialabs/react-birch-sub000/tree"
)

// view names which half of a node's resolution a composite holds.
type view uint8

const (
	applicable  view = iota // classes rendered on the node itself
	inheritable             // classes passed to the node's descendants
)

// composite is one view of one node's resolved decorations.
//
// A composite is self-owned when something targets or negates its node for
// its view, or when its node is the root. Otherwise it aliases the parent
// node's inheritable composite and resolves to the nearest self-owned
// composite above it.
type composite struct {
	m      *Manager
	node   *tree.Node
	view   view
	parent *composite // parent node's inheritable composite; nil at the root
	linked []*composite

	selfOwned bool
	applied   []*Decoration
	negated   []*Decoration
	rendered  []*Decoration // valid when selfOwned

	seen []string // classes last reported
	list *ClassList
}

func (c *composite) direct() bool { return len(c.applied) > 0 || len(c.negated) > 0 }

// effective returns the self-owned composite c resolves to.
func (c *composite) effective() *composite {
	for !c.selfOwned && c.parent != nil {
		c = c.parent
	}
	return c
}

// classes resolves the class names c shows now.
func (c *composite) classes() []string {
	e := c.effective()
	if !e.selfOwned {
		return nil
	}
	var out []string
	for _, d := range e.rendered {
		for _, cls := range d.contribution() {
			if !slices.Contains(out, cls) {
				out = append(out, cls)
			}
		}
	}
	return out
}

// rebuild recomputes the rendered set of a self-owned composite from its
// parent and its direct targets. It reports whether the set changed.
func (c *composite) rebuild() bool {
	var next []*Decoration
	if c.parent != nil {
		for _, d := range c.parent.effective().rendered {
			if !slices.Contains(c.negated, d) {
				next = append(next, d)
			}
		}
	}
	for _, d := range c.applied {
		if !slices.Contains(c.negated, d) && !slices.Contains(next, d) {
			next = append(next, d)
		}
	}
	if slices.Equal(next, c.rendered) {
		return false
	}
	for _, d := range c.rendered {
		if !slices.Contains(next, d) {
			c.m.unrender(d, c)
		}
	}
	for _, d := range next {
		if !slices.Contains(c.rendered, d) {
			c.m.render(d, c)
		}
	}
	c.rendered = next
	return true
}

// update re-derives c after a change at c or above it and pushes the
// result down to linked composites. upstream marks a change in what c
// inherits.
func (c *composite) update(upstream bool) {
	changed := upstream && !c.selfOwned
	if c.selfOwned && c.rebuild() {
		changed = true
	}
	cls := c.classes()
	if !slices.Equal(cls, c.seen) {
		c.seen = cls
		c.notify()
		changed = true
	}
	if !changed {
		return
	}
	for _, l := range slices.Clone(c.linked) {
		l.update(true)
	}
}

// settle promotes or demotes c after its direct targets changed.
func (c *composite) settle() {
	want := c.parent == nil || c.direct()
	if want != c.selfOwned {
		c.selfOwned = want
		if !want {
			for _, d := range c.rendered {
				c.m.unrender(d, c)
			}
			c.rendered = nil
		}
	}
	c.update(true)
}

func (c *composite) notify() {
	if c.list == nil {
		return
	}
	l := c.list
	for _, ln := range l.listeners {
		c.m.queue(func() { ln.DecorationsChanged(l) })
	}
}

func (c *composite) link(l *composite) { c.linked = append(c.linked, l) }

func (c *composite) unlink(l *composite) {
	if i := slices.Index(c.linked, l); i >= 0 {
		c.linked = slices.Delete(c.linked, i, i+1)
	}
}

// reparent links c under p, which may be nil only for the root.
func (c *composite) reparent(p *composite) {
	if c.parent == p {
		return
	}
	if c.parent != nil {
		c.parent.unlink(c)
	}
	c.parent = p
	if p != nil {
		p.link(c)
	}
	c.update(true)
}

func addUnique(s []*Decoration, d *Decoration) ([]*Decoration, bool) {
	if slices.Contains(s, d) {
		return s, false
	}
	return append(s, d), true
}

func remove(s []*Decoration, d *Decoration) ([]*Decoration, bool) {
	i := slices.Index(s, d)
	if i < 0 {
		return s, false
	}
	return slices.Delete(s, i, i+1), true
}
