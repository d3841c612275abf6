package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindContract    ErrKind = iota // collaborator bug: malformed record, root rename, bad item type
	ErrKindNotFound                   // path/tid/id not present in the loaded tree
	ErrKindNotLoaded                  // lookup would require loading an unloaded folder
	ErrKindState                      // invalid operation for current state (disposed node, closed tree)
	ErrKindHost                       // host rejected or failed an operation
	ErrKindUnsupported                // host lacks the optional capability
)

// String implements the Stringer interface for ErrKind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindContract:
		return "contract"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindNotLoaded:
		return "not-loaded"
	case ErrKindState:
		return "state"
	case ErrKindHost:
		return "host"
	case ErrKindUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("UNKNOWN_KIND_%d", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies produced by
// Errorf still compare equal to the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// Errorf derives a new error from a sentinel, keeping its kind and message and
// attaching a formatted cause.
func Errorf(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Msg: sentinel.Msg, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k ErrKind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == k
	}
	return false
}

// Sentinels commonly returned by the tree engine and hosts.
var (
	// ErrMalformedItem indicates a host record without a string label or a valid type.
	ErrMalformedItem = &Error{Kind: ErrKindContract, Msg: "malformed host item record"}
	// ErrInvalidItemType indicates an item type other than Item or Folder.
	ErrInvalidItemType = &Error{Kind: ErrKindContract, Msg: "invalid item type"}
	// ErrRootImmutable indicates an attempt to rename, move or delete the root.
	ErrRootImmutable = &Error{Kind: ErrKindContract, Msg: "root cannot be renamed, moved or deleted"}
	// ErrNotFolder indicates a folder operation on a leaf item.
	ErrNotFolder = &Error{Kind: ErrKindContract, Msg: "node is not a folder"}
	// ErrForeignNode indicates a node that belongs to a different tree.
	ErrForeignNode = &Error{Kind: ErrKindContract, Msg: "node belongs to a different tree"}
	// ErrNotFound indicates a missing path, tid or id.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrNotLoaded indicates a lookup that stopped at an unloaded folder.
	ErrNotLoaded = &Error{Kind: ErrKindNotLoaded, Msg: "folder not loaded"}
	// ErrDisposed indicates an operation on a node that has been disposed.
	ErrDisposed = &Error{Kind: ErrKindState, Msg: "node is disposed"}
	// ErrClosed indicates an operation on a closed tree.
	ErrClosed = &Error{Kind: ErrKindState, Msg: "tree is closed"}
	// ErrHostRejected indicates the host did not confirm a create/move/delete.
	ErrHostRejected = &Error{Kind: ErrKindHost, Msg: "host rejected operation"}
	// ErrUnsupported indicates the host does not implement the requested capability.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "host does not support operation"}
)

// -----------------------------------------------------------------------------
// Host item records
// -----------------------------------------------------------------------------

// ItemType tags a host record as a leaf item or a folder.
type ItemType uint8

const (
	TypeInvalid ItemType = iota
	TypeItem
	TypeFolder
)

// String implements the Stringer interface for ItemType.
func (t ItemType) String() string {
	switch t {
	case TypeItem:
		return "item"
	case TypeFolder:
		return "folder"
	default:
		return fmt.Sprintf("UNKNOWN_ITEM_TYPE_%d", uint8(t))
	}
}

// Valid reports whether t is Item or Folder.
func (t ItemType) Valid() bool {
	return t == TypeItem || t == TypeFolder
}

// ParseItemType maps "item"/"file" and "folder"/"dir" to an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "item", "file", "leaf":
		return TypeItem, nil
	case "folder", "dir", "directory":
		return TypeFolder, nil
	default:
		return TypeInvalid, Errorf(ErrInvalidItemType, "%q", s)
	}
}

// Item is the normalized record a host returns for a raw child descriptor.
// It is data, not identity: the tree assigns its own IDs.
type Item struct {
	TID          string   // stable external identifier
	Label        string   // basename shown to the user
	Type         ItemType // Item or Folder
	IconPath     string
	Description  string
	Tooltip      string
	Command      string
	ContextValue string
}

// Validate reports a contract error when the record lacks a label or a valid type.
func (it Item) Validate() error {
	if it.Label == "" {
		return Errorf(ErrMalformedItem, "tid %q: empty label", it.TID)
	}
	if !it.Type.Valid() {
		return Errorf(ErrMalformedItem, "tid %q label %q: type %s", it.TID, it.Label, it.Type)
	}
	return nil
}

// ChildQuery describes the folder whose children a host is asked for.
// Item is nil for the root sentinel query.
type ChildQuery struct {
	Path string
	Item *Item
}

// IsRoot reports whether q is the root sentinel query.
func (q ChildQuery) IsRoot() bool { return q.Item == nil }
