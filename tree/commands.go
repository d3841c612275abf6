package tree

import (
	"context"
	"fmt"

	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// CreateItem asks the host to create a record under parent and returns the
// new node. Nothing changes locally unless the host succeeds.
func (r *Root) CreateItem(ctx context.Context, parent *Node, label string, typ types.ItemType, content []byte) (*Node, error) {
	if !typ.Valid() {
		return nil, types.Errorf(types.ErrInvalidItemType, "%s", typ)
	}
	c, ok := r.host.(Creator)
	if !ok {
		return nil, types.Errorf(types.ErrUnsupported, "create")
	}

	r.mu.Lock()
	if err := r.checkFolder(parent); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	q := parent.query()
	full := r.style.Join(parent.path, label)
	loaded := parent.f.loaded
	r.mu.Unlock()

	it, err := c.CreateItem(ctx, q, label, full, typ, content)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindHost, Msg: "create " + full, Err: err}
	}
	if !loaded {
		if err := r.EnsureLoaded(ctx, parent); err != nil {
			return nil, err
		}
	} else if err := r.Dispatch(ctx, Added{Folder: q.Path, Item: it}); err != nil {
		return nil, err
	}
	return r.FindItemEntryInLoadedTree(r.style.Join(q.Path, it.Label))
}

// MoveItem asks the host to move n under newParent as newName (empty keeps
// the label) and mirrors the move locally once the host confirms.
func (r *Root) MoveItem(ctx context.Context, n, newParent *Node, newName string) error {
	m, ok := r.host.(Mover)
	if !ok {
		return types.Errorf(types.ErrUnsupported, "move")
	}

	r.mu.Lock()
	if err := r.checkNode(n); err != nil {
		r.mu.Unlock()
		return err
	}
	if n == r.root {
		r.mu.Unlock()
		return types.ErrRootImmutable
	}
	if err := r.checkFolder(newParent); err != nil {
		r.mu.Unlock()
		return err
	}
	if newName == "" {
		newName = n.label
	}
	item, oldPath := n.item, n.path
	q := newParent.query()
	newPath := r.style.Join(newParent.path, newName)
	r.mu.Unlock()

	if oldPath == newPath {
		return nil
	}
	done, err := m.MoveItem(ctx, item, q, newPath)
	if err != nil {
		return &types.Error{Kind: types.ErrKindHost, Msg: "move " + oldPath, Err: err}
	}
	if !done {
		return types.Errorf(types.ErrHostRejected, "move %s to %s", oldPath, newPath)
	}
	return r.Dispatch(ctx, Moved{TID: item.TID, OldPath: oldPath, NewPath: newPath})
}

// RenameItem is MoveItem within the node's current folder.
func (r *Root) RenameItem(ctx context.Context, n *Node, newName string) error {
	if n == r.root {
		return types.ErrRootImmutable
	}
	if newName == "" {
		return fmt.Errorf("tree: rename %s: empty name", n.Path())
	}
	parent := n.Parent()
	if parent == nil {
		return types.Errorf(types.ErrDisposed, "%s", n.Path())
	}
	return r.MoveItem(ctx, n, parent, newName)
}

// DeleteItem asks the host to delete n and removes it locally once the host
// confirms.
func (r *Root) DeleteItem(ctx context.Context, n *Node) error {
	d, ok := r.host.(Deleter)
	if !ok {
		return types.Errorf(types.ErrUnsupported, "delete")
	}

	r.mu.Lock()
	if err := r.checkNode(n); err != nil {
		r.mu.Unlock()
		return err
	}
	if n == r.root {
		r.mu.Unlock()
		return types.ErrRootImmutable
	}
	item, p := n.item, n.path
	r.mu.Unlock()

	done, err := d.DeleteItem(ctx, item)
	if err != nil {
		return &types.Error{Kind: types.ErrKindHost, Msg: "delete " + p, Err: err}
	}
	if !done {
		return types.Errorf(types.ErrHostRejected, "delete %s", p)
	}
	return r.Dispatch(ctx, Removed{TID: item.TID, Path: p})
}
