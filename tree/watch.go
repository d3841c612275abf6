package tree

import (
	"context"
	"fmt"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// WatchEvent is an out-of-band change fed back into the tree through
// Dispatch. The set of events is closed: Added, Removed, Moved, Changed and
// DidChangeTreeData.
type WatchEvent interface {
	watchEvent()
}

// Added reports a new record under the folder at path Folder.
type Added struct {
	Folder string
	Item   types.Item
}

// Removed reports that the record at Path is gone.
type Removed struct {
	TID  string
	Path string
}

// Moved reports a record moving or being renamed from OldPath to NewPath.
type Moved struct {
	TID     string
	OldPath string
	NewPath string
}

// Changed reports that the children of the folder at path Folder changed in
// some unspecified way. It is queued and applied as a full reload.
type Changed struct {
	TID    string
	Folder string
}

// DidChangeTreeData reports that the record for TID changed. An empty TID
// means the root.
type DidChangeTreeData struct {
	TID string
}

func (Added) watchEvent()             {}
func (Removed) watchEvent()           {}
func (Moved) watchEvent()             {}
func (Changed) watchEvent()           {}
func (DidChangeTreeData) watchEvent() {}

// Dispatch applies a watch event. Events that reference paths or records the
// loaded tree does not have are logged and dropped; only host failures while
// re-fetching, malformed records, and a closed tree are returned as errors.
func (r *Root) Dispatch(ctx context.Context, ev WatchEvent) error {
	if ev == nil {
		return fmt.Errorf("tree: nil watch event")
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return types.ErrClosed
	}
	r.mu.Unlock()

	r.sup.willProcessWatch.emit(ev)
	var err error
	switch e := ev.(type) {
	case Added:
		err = r.handleAdded(e)
	case Removed:
		r.handleRemoved(e)
	case Moved:
		r.handleMoved(e)
	case Changed:
		r.enqueueChanged(e)
	case DidChangeTreeData:
		err = r.handleDidChangeTreeData(ctx, e)
	default:
		return fmt.Errorf("tree: unknown watch event %T", ev)
	}
	r.sup.didProcessWatch.emit(ev)
	return err
}

func (r *Root) handleAdded(e Added) error {
	if r.opts.Debug {
		if err := e.Item.Validate(); err != nil {
			return fmt.Errorf("tree: added under %s: %w", e.Folder, err)
		}
	}
	r.mu.Lock()
	defer r.unlock()

	f := r.lookFolder(e.Folder)
	if f == nil {
		logger.Warn("tree: added: no loaded folder", "folder", e.Folder, "label", e.Item.Label)
		return nil
	}
	if f.childByLabel(e.Item.Label) != nil {
		logger.Warn("tree: added: label already present", "folder", e.Folder, "label", e.Item.Label)
		return nil
	}
	n := r.newNode(f, e.Item, e.Item)
	r.insertItem(f, n)
	return nil
}

// resolve finds the child at path, preferring a label match and falling
// back to tid among the same folder's children.
func (r *Root) resolve(path, tid string) (*Node, *Node) {
	f := r.lookFolder(r.style.Dir(path))
	if f == nil {
		return nil, nil
	}
	n := f.childByLabel(r.style.Base(path))
	if n != nil && tid != "" && n.item.TID != "" && n.item.TID != tid {
		n = nil
	}
	if n == nil {
		n = f.childByTID(tid)
	}
	return f, n
}

func (r *Root) handleRemoved(e Removed) {
	r.mu.Lock()
	defer r.unlock()

	f, n := r.resolve(e.Path, e.TID)
	if n == nil {
		logger.Warn("tree: removed: no match", "path", e.Path, "tid", e.TID, "folder_loaded", f != nil)
		return
	}
	r.unlinkItem(f, n, false)
}

func (r *Root) handleMoved(e Moved) {
	r.mu.Lock()
	defer r.unlock()

	_, n := r.resolve(e.OldPath, e.TID)
	if n == nil {
		logger.Warn("tree: moved: no match", "old_path", e.OldPath, "tid", e.TID)
		return
	}
	dest := r.lookFolder(r.style.Dir(e.NewPath))
	if dest == nil {
		logger.Debug("tree: moved: destination not loaded, detaching", "old_path", e.OldPath, "new_path", e.NewPath)
		r.mv(n, nil, "")
		return
	}
	label := r.style.Base(e.NewPath)
	if existing := dest.childByLabel(label); existing != nil && existing != n {
		logger.Warn("tree: moved: destination occupied", "new_path", e.NewPath)
		return
	}
	r.mv(n, dest, label)
}

func (r *Root) handleDidChangeTreeData(ctx context.Context, e DidChangeTreeData) error {
	r.mu.Lock()
	n := r.findTID(e.TID)
	if n == nil {
		r.mu.Unlock()
		logger.Warn("tree: tree data changed: no match", "tid", e.TID)
		return nil
	}
	if n == r.root {
		r.mu.Unlock()
		return r.load(ctx, n)
	}
	raw, oldPath := n.raw, n.path
	if raw == nil {
		raw = n.item
	}
	r.mu.Unlock()

	it, err := r.host.GetTreeItem(ctx, raw)
	if err != nil {
		return fmt.Errorf("tree: refetch %s: %w", oldPath, err)
	}
	if r.opts.Debug {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("tree: refetch %s: %w", oldPath, err)
		}
	}

	r.mu.Lock()
	if n.disposed {
		r.mu.Unlock()
		return nil
	}
	oldLabel, newLabel := n.label, it.Label
	it.Label = oldLabel
	n.item = it
	isFolder, loaded := n.f != nil, n.f != nil && n.f.loaded
	cur := n.path
	r.mu.Unlock()

	if newLabel != "" && newLabel != oldLabel {
		if err := r.Dispatch(ctx, Moved{TID: e.TID, OldPath: cur, NewPath: r.style.Join(r.style.Dir(cur), newLabel)}); err != nil {
			return err
		}
	}
	if isFolder && loaded {
		return r.load(ctx, n)
	}
	return nil
}
