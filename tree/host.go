package tree

import (
	"context"

	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// Host supplies the tree's data. The tree never touches storage directly.
//
// GetChildren returns raw child descriptors for a folder; the root is queried
// with a nil Item. GetTreeItem normalizes a raw descriptor. The tree also
// hands previously normalized types.Item values back to GetTreeItem when it
// re-fetches a record it did not receive from GetChildren, so hosts should
// resolve those by TID.
type Host interface {
	PathStyle() string
	GetChildren(ctx context.Context, q types.ChildQuery) ([]any, error)
	GetTreeItem(ctx context.Context, raw any) (types.Item, error)
}

// Watcher is implemented by hosts that can watch a folder path. The returned
// func is called with the same path to end the subscription. Watch is called
// with the tree lock held and must not call back into the Root.
type Watcher interface {
	Watch(path string) (stop func(path string), err error)
}

// ChangeNotifier is implemented by hosts that signal record changes. An
// empty tid means the root. Each signal becomes a DidChangeTreeData event.
type ChangeNotifier interface {
	OnChangeTreeData(fn func(tid string)) (unsubscribe func())
}

// EventSource is implemented by hosts that produce watch events themselves.
type EventSource interface {
	Subscribe(fn func(WatchEvent)) (unsubscribe func())
}

// Creator is implemented by hosts that can create records.
type Creator interface {
	CreateItem(ctx context.Context, parent types.ChildQuery, label, fullPath string, typ types.ItemType, content []byte) (types.Item, error)
}

// Mover is implemented by hosts that can move or rename records. Only a
// true result counts as success.
type Mover interface {
	MoveItem(ctx context.Context, item types.Item, newParent types.ChildQuery, newPath string) (bool, error)
}

// Deleter is implemented by hosts that can delete records. Only a true
// result counts as success.
type Deleter interface {
	DeleteItem(ctx context.Context, item types.Item) (bool, error)
}

// Sorter is implemented by hosts that override the default child order.
type Sorter interface {
	Compare(a, b types.Item) int
}
