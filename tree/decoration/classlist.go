package decoration

import (
	"slices"

	"github.com/tinialabs/react-birch-sub000/tree"
)

// ChangeListener is told when a ClassList's resolved classes change.
// Listeners are compared by identity, so register pointer values.
type ChangeListener interface {
	DecorationsChanged(l *ClassList)
}

// ChangeListenerFunc adapts a function to ChangeListener. Function values
// are not comparable; take the address of a ChangeListenerFunc variable
// to register one.
type ChangeListenerFunc func(l *ClassList)

// DecorationsChanged calls f(l).
func (f *ChangeListenerFunc) DecorationsChanged(l *ClassList) { (*f)(l) }

// ClassList is the resolved class names rendered on one node.
type ClassList struct {
	c         *composite
	listeners []ChangeListener
}

// Node returns the node the list belongs to.
func (l *ClassList) Node() *tree.Node { return l.c.node }

// Classes returns the resolved class names, inherited ones first.
func (l *ClassList) Classes() []string {
	m := l.c.m
	m.mu.Lock()
	defer m.unlock()
	return l.c.classes()
}

// Has reports whether cls is among the resolved class names.
func (l *ClassList) Has(cls string) bool {
	return slices.Contains(l.Classes(), cls)
}

// AddChangeListener registers ln. Registering the same listener twice is a
// no-op.
func (l *ClassList) AddChangeListener(ln ChangeListener) {
	m := l.c.m
	m.mu.Lock()
	defer m.unlock()
	if ln == nil || slices.Contains(l.listeners, ln) {
		return
	}
	l.listeners = append(l.listeners, ln)
}

// RemoveChangeListener unregisters ln.
func (l *ClassList) RemoveChangeListener(ln ChangeListener) {
	m := l.c.m
	m.mu.Lock()
	defer m.unlock()
	if i := slices.Index(l.listeners, ln); i >= 0 {
		l.listeners = slices.Delete(l.listeners, i, i+1)
	}
}
