// Package fshost serves a local directory as a tree host.
//
// Children are listed one level at a time with fastwalk. Folders the tree
// watches are registered with fsnotify and filesystem changes are turned
// into tree watch events. Records are identified by device and inode where
// the platform has them, so a renamed file keeps its tid.
package fshost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
	"github.com/tinialabs/react-birch-sub000/tree"
)

// selfEventWindow is how long filesystem events caused by the host's own
// create/move/delete are ignored. The tree already mirrors those.
const selfEventWindow = time.Second

// Options controls which entries a Host lists.
type Options struct {
	// Hidden lists dot files.
	Hidden bool
	// Ignore holds filepath.Match patterns matched against base names.
	Ignore []string
}

// entry is the raw descriptor handed to the tree.
type entry struct {
	tid  string
	path string
}

// Host serves the directory tree below Root.
type Host struct {
	root string
	opts Options

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  sync.Once

	mu       sync.Mutex
	watching map[string]int
	paths    map[string]string // tid -> current path
	tids     map[string]string // path -> tid
	expect   map[string]time.Time
	subs     map[int]func(tree.WatchEvent)
	nextSub  int
}

// New returns a host serving dir. Close releases its watcher.
func New(dir string, opts Options) (*Host, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, types.Errorf(types.ErrNotFound, "%s: %v", abs, err)
	}
	if !info.IsDir() {
		return nil, types.Errorf(types.ErrNotFolder, "%s", abs)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fshost: watcher: %w", err)
	}
	h := &Host{
		root:     abs,
		opts:     opts,
		watcher:  w,
		done:     make(chan struct{}),
		watching: make(map[string]int),
		paths:    make(map[string]string),
		tids:     make(map[string]string),
		expect:   make(map[string]time.Time),
		subs:     make(map[int]func(tree.WatchEvent)),
	}
	go h.run()
	return h, nil
}

// Root returns the absolute path the host serves.
func (h *Host) Root() string { return h.root }

// PathStyle reports the local platform's path style.
func (h *Host) PathStyle() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "posix"
}

func (h *Host) listed(name string) bool {
	if !h.opts.Hidden && strings.HasPrefix(name, ".") {
		return false
	}
	for _, pat := range h.opts.Ignore {
		if ok, _ := filepath.Match(pat, name); ok {
			return false
		}
	}
	return true
}

func (h *Host) remember(tid, p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.paths[tid]; ok && h.tids[old] == tid {
		delete(h.tids, old)
	}
	h.paths[tid] = p
	h.tids[p] = tid
}

func (h *Host) forget(p string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	tid := h.tids[p]
	delete(h.tids, p)
	if tid != "" && h.paths[tid] == p {
		delete(h.paths, tid)
	}
	return tid
}

// GetChildren lists the direct children of q.Path.
func (h *Host) GetChildren(ctx context.Context, q types.ChildQuery) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := q.Path
	info, err := os.Stat(dir)
	if err != nil {
		return nil, types.Errorf(types.ErrNotFound, "%s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, types.Errorf(types.ErrNotFolder, "%s", dir)
	}

	var (
		mu  sync.Mutex
		out []any
	)
	conf := &fastwalk.Config{Follow: true}
	err = fastwalk.Walk(conf, dir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("fshost: walk error", "path", full, "error", err)
			return nil
		}
		if full == dir {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if filepath.Dir(full) != dir {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if h.listed(d.Name()) {
			tid, err := fileTID(full)
			if err != nil {
				logger.Debug("fshost: skipping entry", "path", full, "error", err)
			} else {
				h.remember(tid, full)
				mu.Lock()
				out = append(out, entry{tid: tid, path: full})
				mu.Unlock()
			}
		}
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetTreeItem stats the entry behind raw. It accepts the descriptors
// GetChildren returns and items previously produced by the host.
func (h *Host) GetTreeItem(_ context.Context, raw any) (types.Item, error) {
	var tid, p string
	switch v := raw.(type) {
	case entry:
		tid, p = v.tid, v.path
	case types.Item:
		tid = v.TID
	default:
		return types.Item{}, types.Errorf(types.ErrMalformedItem, "unexpected descriptor %T", raw)
	}
	h.mu.Lock()
	if cur, ok := h.paths[tid]; ok {
		p = cur
	}
	h.mu.Unlock()
	if p == "" {
		return types.Item{}, types.Errorf(types.ErrNotFound, "tid %s", tid)
	}
	return h.stat(p)
}

func (h *Host) stat(p string) (types.Item, error) {
	info, err := os.Stat(p)
	if err != nil {
		return types.Item{}, types.Errorf(types.ErrNotFound, "%s: %v", p, err)
	}
	tid, err := fileTID(p)
	if err != nil {
		return types.Item{}, err
	}
	h.remember(tid, p)
	it := types.Item{
		TID:     tid,
		Label:   filepath.Base(p),
		Type:    types.TypeItem,
		Tooltip: fmt.Sprintf("%s, modified %s", p, humanize.Time(info.ModTime())),
	}
	if info.IsDir() {
		it.Type = types.TypeFolder
	} else {
		it.Description = humanize.Bytes(uint64(max(info.Size(), 0)))
	}
	return it, nil
}

// Watch registers p with fsnotify. Calls are counted; the returned func
// releases one.
func (h *Host) Watch(p string) (func(string), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watching[p] == 0 {
		if err := h.watcher.Add(p); err != nil {
			return nil, fmt.Errorf("fshost: watch %s: %w", p, err)
		}
		logger.Debug("fshost: watching", "path", p)
	}
	h.watching[p]++
	return h.unwatch, nil
}

func (h *Host) unwatch(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watching[p] == 0 {
		return
	}
	h.watching[p]--
	if h.watching[p] == 0 {
		delete(h.watching, p)
		if err := h.watcher.Remove(p); err != nil {
			// Path may already be gone
			logger.Debug("fshost: unwatch", "path", p, "error", err)
		}
	}
}

// Watching reports whether p is registered with fsnotify.
func (h *Host) Watching(p string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.watching[p] > 0
}

// Subscribe delivers translated filesystem events to fn on the host's
// event goroutine.
func (h *Host) Subscribe(fn func(tree.WatchEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *Host) emit(ev tree.WatchEvent) {
	h.mu.Lock()
	subs := make([]func(tree.WatchEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// selfInflicted reports whether p was recently changed through the host.
func (h *Host) selfInflicted(p string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	for k, until := range h.expect {
		if now.After(until) {
			delete(h.expect, k)
		}
	}
	_, ok := h.expect[p]
	return ok
}

func (h *Host) expectEvents(paths ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	until := time.Now().Add(selfEventWindow)
	for _, p := range paths {
		h.expect[p] = until
	}
}

// run translates fsnotify events until Close.
func (h *Host) run() {
	for {
		select {
		case <-h.done:
			return
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.translate(ev)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("fshost: watcher error", "error", err)
		}
	}
}

func (h *Host) translate(ev fsnotify.Event) {
	p := filepath.Clean(ev.Name)
	if !h.listed(filepath.Base(p)) || h.selfInflicted(p) {
		return
	}
	dir := filepath.Dir(p)
	switch {
	case ev.Has(fsnotify.Create):
		it, err := h.stat(p)
		if err != nil {
			logger.Debug("fshost: created entry vanished", "path", p, "error", err)
			return
		}
		h.emit(tree.Added{Folder: dir, Item: it})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		tid := h.forget(p)
		h.emit(tree.Removed{TID: tid, Path: p})
	case ev.Has(fsnotify.Write):
		h.mu.Lock()
		tid := h.tids[p]
		h.mu.Unlock()
		if tid != "" {
			h.emit(tree.DidChangeTreeData{TID: tid})
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (h *Host) Close() error {
	var err error
	h.closed.Do(func() {
		close(h.done)
		err = h.watcher.Close()
	})
	return err
}

func (h *Host) pathOf(it *types.Item, fallback string) string {
	if it == nil {
		return h.root
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.paths[it.TID]; ok {
		return p
	}
	return fallback
}

// CreateItem creates a file holding content, or a directory.
func (h *Host) CreateItem(_ context.Context, parent types.ChildQuery, label, fullPath string, typ types.ItemType, content []byte) (types.Item, error) {
	dir := h.pathOf(parent.Item, parent.Path)
	p := filepath.Join(dir, label)
	if _, err := os.Lstat(p); err == nil {
		return types.Item{}, fmt.Errorf("fshost: create %s: %w", fullPath, fs.ErrExist)
	}
	h.expectEvents(p)
	switch typ {
	case types.TypeFolder:
		if err := os.Mkdir(p, 0o755); err != nil {
			return types.Item{}, fmt.Errorf("fshost: create %s: %w", fullPath, err)
		}
	case types.TypeItem:
		if err := os.WriteFile(p, content, 0o644); err != nil {
			return types.Item{}, fmt.Errorf("fshost: create %s: %w", fullPath, err)
		}
	default:
		return types.Item{}, types.Errorf(types.ErrInvalidItemType, "%s", typ)
	}
	return h.stat(p)
}

// MoveItem renames the entry behind item to newPath.
func (h *Host) MoveItem(_ context.Context, item types.Item, newParent types.ChildQuery, newPath string) (bool, error) {
	h.mu.Lock()
	from, ok := h.paths[item.TID]
	h.mu.Unlock()
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "tid %s", item.TID)
	}
	to := filepath.Join(h.pathOf(newParent.Item, newParent.Path), filepath.Base(newPath))
	if _, err := os.Lstat(to); err == nil {
		return false, nil
	}
	h.expectEvents(from, to)
	if err := os.Rename(from, to); err != nil {
		return false, fmt.Errorf("fshost: move %s: %w", from, err)
	}
	h.forget(from)
	if tid, err := fileTID(to); err == nil {
		h.remember(tid, to)
	}
	return true, nil
}

// DeleteItem removes the entry behind item, recursively for directories.
func (h *Host) DeleteItem(_ context.Context, item types.Item) (bool, error) {
	h.mu.Lock()
	p, ok := h.paths[item.TID]
	h.mu.Unlock()
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "tid %s", item.TID)
	}
	if p == h.root {
		return false, nil
	}
	h.expectEvents(p)
	if err := os.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("fshost: delete %s: %w", p, err)
	}
	h.forget(p)
	return true, nil
}
