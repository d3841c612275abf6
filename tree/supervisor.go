package tree

import "sync"

// ParentChange describes a node moving between folders or being renamed in
// place (OldParent == NewParent).
type ParentChange struct {
	Node      *Node
	OldParent *Node
	NewParent *Node
}

// PathChange describes a node whose full path changed.
type PathChange struct {
	Node    *Node
	OldPath string
	NewPath string
}

// ExpansionChange describes a folder being expanded or collapsed.
type ExpansionChange struct {
	Folder   *Node
	Expanded bool
}

// observers is an ordered listener list for one event category.
type observers[E any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[E]
}

type subscriber[E any] struct {
	id int
	fn func(E)
}

// add registers fn and returns a func that removes it again.
func (o *observers[E]) add(fn func(E)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	id := o.next
	o.subs = append(o.subs, subscriber[E]{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[E]) emit(e E) {
	o.mu.Lock()
	subs := o.subs
	o.mu.Unlock()
	for _, s := range subs {
		s.fn(e)
	}
}

func (o *observers[E]) clear() {
	o.mu.Lock()
	o.subs = nil
	o.mu.Unlock()
}

// supervisor routes structural notifications from nodes to the Root's
// public subscriptions.
type supervisor struct {
	willChangeParent    observers[ParentChange]
	didChangeParent     observers[ParentChange]
	didChangePath       observers[PathChange]
	willDispose         observers[*Node]
	didDispose          observers[*Node]
	willChangeExpansion observers[ExpansionChange]
	didChangeExpansion  observers[ExpansionChange]
	branchDidUpdate     observers[struct{}]
	willProcessWatch    observers[WatchEvent]
	didProcessWatch     observers[WatchEvent]

	hooksMu      sync.Mutex
	disposeHooks map[ID][]func()
}

func (s *supervisor) clear() {
	s.willChangeParent.clear()
	s.didChangeParent.clear()
	s.didChangePath.clear()
	s.willDispose.clear()
	s.didDispose.clear()
	s.willChangeExpansion.clear()
	s.didChangeExpansion.clear()
	s.branchDidUpdate.clear()
	s.willProcessWatch.clear()
	s.didProcessWatch.clear()
}

// queue defers fn until the tree lock is released, so listeners may call
// back into the Root. Must be called with the lock held.
func (r *Root) queue(fn func()) { r.pending = append(r.pending, fn) }

// unlock releases the tree lock and then delivers every queued notification
// in the order it was raised.
func (r *Root) unlock() {
	if r.dirty {
		r.dirty = false
		if r.opts.Debug {
			if err := r.verifyLocked(); err != nil {
				r.logInvariant("verify: "+err.Error(), nil, nil)
			}
		}
		r.pending = append(r.pending, func() { r.sup.branchDidUpdate.emit(struct{}{}) })
	}
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (r *Root) notifyParentChange(will bool, ev ParentChange) {
	if will {
		r.queue(func() { r.sup.willChangeParent.emit(ev) })
		return
	}
	r.queue(func() { r.sup.didChangeParent.emit(ev) })
}

func (r *Root) notifyPathChange(ev PathChange) {
	r.queue(func() { r.sup.didChangePath.emit(ev) })
}

func (r *Root) notifyExpansion(will bool, ev ExpansionChange) {
	if will {
		r.queue(func() { r.sup.willChangeExpansion.emit(ev) })
		return
	}
	r.queue(func() { r.sup.didChangeExpansion.emit(ev) })
}

func (r *Root) notifyDispose(n *Node) {
	r.sup.hooksMu.Lock()
	hooks := r.sup.disposeHooks[n.id]
	delete(r.sup.disposeHooks, n.id)
	r.sup.hooksMu.Unlock()

	r.queue(func() {
		r.sup.willDispose.emit(n)
		for _, h := range hooks {
			h()
		}
		r.sup.didDispose.emit(n)
	})
}

// OnWillChangeParent subscribes fn to moves and renames before they are
// applied. Like every subscription, fn runs after the tree lock is released
// and the returned func unsubscribes.
func (r *Root) OnWillChangeParent(fn func(ParentChange)) func() {
	return r.sup.willChangeParent.add(fn)
}

// OnDidChangeParent subscribes fn to completed moves and renames.
func (r *Root) OnDidChangeParent(fn func(ParentChange)) func() {
	return r.sup.didChangeParent.add(fn)
}

// OnDidChangePath subscribes fn to path changes.
func (r *Root) OnDidChangePath(fn func(PathChange)) func() {
	return r.sup.didChangePath.add(fn)
}

// OnWillDispose subscribes fn to nodes about to leave the tree.
func (r *Root) OnWillDispose(fn func(*Node)) func() {
	return r.sup.willDispose.add(fn)
}

// OnDidDispose subscribes fn to nodes that left the tree.
func (r *Root) OnDidDispose(fn func(*Node)) func() {
	return r.sup.didDispose.add(fn)
}

// OnWillChangeExpansion subscribes fn to expand/collapse before the branch
// is spliced.
func (r *Root) OnWillChangeExpansion(fn func(ExpansionChange)) func() {
	return r.sup.willChangeExpansion.add(fn)
}

// OnDidChangeExpansion subscribes fn to completed expand/collapse.
func (r *Root) OnDidChangeExpansion(fn func(ExpansionChange)) func() {
	return r.sup.didChangeExpansion.add(fn)
}

// OnBranchDidUpdate subscribes fn to any change of the flattened ordering.
func (r *Root) OnBranchDidUpdate(fn func()) func() {
	return r.sup.branchDidUpdate.add(func(struct{}) { fn() })
}

// OnWillProcessWatchEvent subscribes fn to events entering Dispatch.
func (r *Root) OnWillProcessWatchEvent(fn func(WatchEvent)) func() {
	return r.sup.willProcessWatch.add(fn)
}

// OnDidProcessWatchEvent subscribes fn to events Dispatch has applied.
func (r *Root) OnDidProcessWatchEvent(fn func(WatchEvent)) func() {
	return r.sup.didProcessWatch.add(fn)
}

// OnceDisposed runs fn once when n is disposed. If n is already disposed fn
// runs immediately. The returned func cancels the hook.
func (r *Root) OnceDisposed(n *Node, fn func()) func() {
	r.mu.Lock()
	if n.disposed || n.tree != r {
		r.mu.Unlock()
		fn()
		return func() {}
	}
	r.sup.hooksMu.Lock()
	if r.sup.disposeHooks == nil {
		r.sup.disposeHooks = make(map[ID][]func())
	}
	idx := len(r.sup.disposeHooks[n.id])
	r.sup.disposeHooks[n.id] = append(r.sup.disposeHooks[n.id], fn)
	r.sup.hooksMu.Unlock()
	r.mu.Unlock()

	return func() {
		r.sup.hooksMu.Lock()
		defer r.sup.hooksMu.Unlock()
		if hooks := r.sup.disposeHooks[n.id]; idx < len(hooks) {
			hooks[idx] = func() {}
		}
	}
}
