// Package tree implements a lazily loaded tree with a flattened index of its
// visible nodes, the data model behind a virtualized tree view.
//
// # Overview
//
// A Root wraps a Host, which supplies children on demand. Folders start
// unloaded; EnsureLoaded, ExpandFolder and ForceLoadItemEntryAtPath fetch
// them. The Root keeps one flat array of node ids covering every surfaced
// node (the root's children plus the children of every expanded folder on
// the way down), so a renderer maps a row index to a node in O(1):
//
//	for i := range r.BranchSize() {
//	    n := r.ItemEntryAtIndex(i)
//	    fmt.Println(strings.Repeat("  ", n.Depth()-1) + n.Label())
//	}
//
// # Flattened branches
//
// Each folder is responsible for a contiguous slice of ids. While a folder
// is expanded its slice lives inside its nearest owning ancestor's array.
// Collapsing cuts the slice out and hands it to the folder, so its buried
// expanded descendants survive and expanding again needs no host fetch. The
// slice moves between owners; it is never copied, and at any instant exactly
// one folder on the chain to the root owns it.
//
// # Mutations
//
// External changes arrive through Dispatch as one of five watch events:
// Added, Removed, Moved, Changed and DidChangeTreeData. Events that refer to
// something the loaded tree does not have are logged and dropped. Changed
// events are coalesced and flushed shallowest folder first after a quiet
// period (see Options.FlushDelay and FlushEventQueue).
//
// CreateItem, MoveItem, RenameItem and DeleteItem ask the host first and
// mirror the change locally only once the host confirms it.
//
// # Identity
//
// Node ids come from a generation-checked arena owned by the Root: an id of
// a disposed node resolves to nil, never to a different node.
//
// # Concurrency
//
// Root is safe for concurrent use. Host calls are made without the tree lock
// held, and concurrent loads of the same folder share one host fetch. A
// CollapseFolder that lands while an ExpandFolder is waiting for its load
// cancels the rest of the expand. Subscriptions (OnDidChangeParent,
// OnBranchDidUpdate, ...) are delivered after the lock is released, in the
// order the changes were made.
package tree
