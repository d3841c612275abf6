package tree

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/internal/pathfx"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// DefaultFlushDelay is how long queued Changed events must stay quiet before
// they are flushed.
const DefaultFlushDelay = 100 * time.Millisecond

// Options configures a Root.
type Options struct {
	// Debug validates every host record (a malformed record fails the load)
	// and checks the tree's structural invariants after each mutation,
	// logging violations.
	Debug bool

	// FlushDelay is the quiescence delay for queued Changed events. Zero
	// selects DefaultFlushDelay; a negative value disables the timer so
	// events are only applied by FlushEventQueue.
	FlushDelay time.Duration

	// Comparator overrides both the host's Sorter and DefaultComparator.
	Comparator Comparator
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{FlushDelay: DefaultFlushDelay}
}

// Root is a lazily loaded tree with a flattened index of its visible nodes.
//
// Root is safe for concurrent use. Host calls are made without the tree lock
// held; every splice and size update runs to completion under it, so no
// caller observes a half-applied change. Subscribed listeners run after the
// lock is released and may call back into the Root.
type Root struct {
	mu      sync.Mutex
	host    Host
	style   pathfx.Style
	opts    Options
	cmp     Comparator
	arena   arena
	root    *Node
	loads   singleflight.Group
	sup     supervisor
	changes changeQueue
	closed  bool
	unsubs  []func()

	pending []func()
	dirty   bool
}

// New builds a tree over host rooted at rootPath. It performs no I/O: the
// root's children are fetched on the first EnsureLoaded or lookup.
func New(host Host, rootPath string, opts Options) (*Root, error) {
	if host == nil {
		return nil, fmt.Errorf("tree: nil host")
	}
	style, err := pathfx.ParseStyle(host.PathStyle())
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	if opts.FlushDelay == 0 {
		opts.FlushDelay = DefaultFlushDelay
	}

	r := &Root{host: host, style: style, opts: opts}
	switch {
	case opts.Comparator != nil:
		r.cmp = opts.Comparator
	default:
		if s, ok := host.(Sorter); ok {
			r.cmp = s.Compare
		} else {
			r.cmp = DefaultComparator
		}
	}

	rootPath = style.Clean(rootPath)
	label := style.Base(rootPath)
	if label == "" {
		label = rootPath
	}
	root := r.newNode(nil, types.Item{Label: label, Type: types.TypeFolder}, nil)
	root.path = rootPath
	root.f.expanded = true
	root.f.flat = newIDBuffer(nil)
	r.root = root

	if cn, ok := host.(ChangeNotifier); ok {
		r.unsubs = append(r.unsubs, cn.OnChangeTreeData(func(tid string) {
			if err := r.Dispatch(context.Background(), DidChangeTreeData{TID: tid}); err != nil {
				logger.Warn("tree: change notification failed", "tid", tid, "error", err)
			}
		}))
	}
	if es, ok := host.(EventSource); ok {
		r.unsubs = append(r.unsubs, es.Subscribe(func(ev WatchEvent) {
			if err := r.Dispatch(context.Background(), ev); err != nil {
				logger.Warn("tree: host event failed", "event", ev, "error", err)
			}
		}))
	}
	return r, nil
}

// Root returns the root folder.
func (r *Root) Root() *Node { return r.root }

// Path returns the root path.
func (r *Root) Path() string { return r.root.path }

// Style returns the path style selected by the host.
func (r *Root) Style() pathfx.Style { return r.style }

// Host returns the tree's host.
func (r *Root) Host() Host { return r.host }

// Lookup resolves a tree-local id. Ids of disposed nodes resolve to nil.
func (r *Root) Lookup(id ID) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena.get(id)
}

// Len returns the number of live nodes, the root included.
func (r *Root) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena.len()
}

// checkFolder validates a folder argument. Must be called with the lock held.
func (r *Root) checkFolder(f *Node) error {
	if err := r.checkNode(f); err != nil {
		return err
	}
	if f.f == nil {
		return types.Errorf(types.ErrNotFolder, "%s", f.path)
	}
	return nil
}

func (r *Root) checkNode(n *Node) error {
	switch {
	case r.closed:
		return types.ErrClosed
	case n == nil:
		return types.Errorf(types.ErrNotFound, "nil node")
	case n.tree != r:
		return types.ErrForeignNode
	case n.disposed:
		return types.Errorf(types.ErrDisposed, "%s", n.path)
	}
	return nil
}

// EnsureLoaded fetches f's children unless they are already loaded.
// Concurrent calls for the same folder share one host fetch.
func (r *Root) EnsureLoaded(ctx context.Context, f *Node) error {
	r.mu.Lock()
	if err := r.checkFolder(f); err != nil {
		r.mu.Unlock()
		return err
	}
	loaded := f.f.loaded
	r.mu.Unlock()
	if loaded {
		return nil
	}
	return r.load(ctx, f)
}

// load runs the single in-flight fetch for f, starting it if needed. The
// fetch itself is not bound to ctx; ctx only limits how long this caller
// waits for it.
func (r *Root) load(ctx context.Context, f *Node) error {
	ch := r.loads.DoChan(f.id.String(), func() (any, error) {
		return nil, r.hardReload(context.WithoutCancel(ctx), f)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fetched struct {
	item types.Item
	raw  any
}

// hardReload fetches f's children from the host and replaces whatever was
// loaded before.
func (r *Root) hardReload(ctx context.Context, f *Node) error {
	r.mu.Lock()
	if err := r.checkFolder(f); err != nil {
		r.mu.Unlock()
		return err
	}
	q := f.query()
	r.mu.Unlock()

	raws, err := r.host.GetChildren(ctx, q)
	if err != nil {
		return fmt.Errorf("tree: get children of %s: %w", q.Path, err)
	}
	items := make([]fetched, 0, len(raws))
	for _, raw := range raws {
		it, err := r.host.GetTreeItem(ctx, raw)
		if err != nil {
			return fmt.Errorf("tree: normalize child of %s: %w", q.Path, err)
		}
		if r.opts.Debug {
			if err := it.Validate(); err != nil {
				return fmt.Errorf("tree: child of %s: %w", q.Path, err)
			}
		}
		items = append(items, fetched{item: it, raw: raw})
	}

	r.mu.Lock()
	defer r.unlock()
	if err := r.checkFolder(f); err != nil {
		return err
	}
	r.applyChildren(f, items)
	return nil
}

// applyChildren replaces f's children with items. Must be called with the
// lock held.
func (r *Root) applyChildren(f *Node, items []fetched) {
	fd := f.f
	first := !fd.loaded
	merged := f != r.root && fd.loaded && fd.expanded && fd.flat == nil
	if merged {
		r.shrinkBranch(f)
	}
	if fd.loaded {
		for _, c := range fd.children {
			r.dispose(c)
		}
	}

	children := make([]*Node, 0, len(items))
	for _, it := range items {
		children = append(children, r.newNode(f, it.item, it.raw))
	}
	slices.SortStableFunc(children, func(a, b *Node) int { return r.cmp(a.item, b.item) })

	ids := make([]ID, len(children))
	for i, c := range children {
		ids[i] = c.id
	}
	fd.children = children
	fd.loaded = true
	fd.flat = newIDBuffer(ids)
	fd.branchSize = len(ids)
	r.dirty = true

	if f != r.root && fd.expanded {
		// A first load completes a pending expand; a reload only restores
		// the merge it undid above.
		ev := ExpansionChange{Folder: f, Expanded: true}
		if first {
			r.notifyExpansion(true, ev)
		}
		r.expandBranch(f)
		if first {
			r.notifyExpansion(false, ev)
		}
	}
	r.watch(f)
	logger.Debug("tree: loaded", "path", f.path, "children", len(children))
}

// watch (re)establishes the watch subscription for f's current path.
func (r *Root) watch(f *Node) {
	r.unwatch(f)
	f.f.watchPath = f.path
	w, ok := r.host.(Watcher)
	if !ok {
		f.f.stopWatch = func(string) {}
		return
	}
	stop, err := w.Watch(f.path)
	if err != nil {
		logger.Warn("tree: watch failed", "path", f.path, "error", err)
		f.f.stopWatch = func(string) {}
		return
	}
	f.f.stopWatch = stop
}

func (r *Root) unwatch(f *Node) {
	if f.f.stopWatch != nil {
		f.f.stopWatch(f.f.watchPath)
		f.f.stopWatch = nil
		f.f.watchPath = ""
	}
}

// Close ends every watch, unsubscribes from the host and disposes the tree.
// Later calls that would mutate the tree return ErrClosed.
func (r *Root) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.changes.stop()
	r.dispose(r.root)
	unsubs := r.unsubs
	r.unsubs = nil
	r.unlock()

	for _, u := range unsubs {
		u()
	}
	r.sup.clear()
	return nil
}

func (r *Root) logInvariant(msg string, n, owner *Node) {
	args := []any{}
	if n != nil {
		args = append(args, "node", n.path, "id", n.id.String())
	}
	if owner != nil {
		args = append(args, "owner", owner.path)
	}
	logger.Error("tree: invariant violated: "+msg, args...)
}
