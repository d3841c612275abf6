// Package memhost is an in-memory tree host.
//
// A Host is built empty with New or from a YAML fixture with LoadYAML. It
// serves children, normalizes records, supports create/move/delete and
// records every GetChildren call so tests can assert on host traffic.
//
// All methods are safe for concurrent use.
package memhost

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tinialabs/react-birch-sub000/internal/pathfx"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// Record is one node of a YAML fixture.
type Record struct {
	TID          string    `yaml:"tid,omitempty"`
	Label        string    `yaml:"label"`
	Type         string    `yaml:"type"`
	IconPath     string    `yaml:"icon,omitempty"`
	Description  string    `yaml:"description,omitempty"`
	Tooltip      string    `yaml:"tooltip,omitempty"`
	Command      string    `yaml:"command,omitempty"`
	ContextValue string    `yaml:"context,omitempty"`
	Children     []*Record `yaml:"children,omitempty"`
}

// Fixture is the top-level YAML document.
type Fixture struct {
	Root     string    `yaml:"root"`
	Style    string    `yaml:"style"`
	Children []*Record `yaml:"children"`
}

// entry is the raw descriptor handed to the tree by GetChildren.
type entry struct {
	item     types.Item
	parent   *entry // nil for top-level entries
	children []*entry
	content  []byte
}

// Host is an in-memory tree host.
type Host struct {
	mu      sync.Mutex
	style   pathfx.Style
	root    string
	top     []*entry
	byTID   map[string]*entry
	calls   map[string]int
	watches map[string]int
	reject  bool
	latency time.Duration
	gate    chan struct{}

	listeners map[int]func(tid string)
	nextLis   int
}

// New returns an empty host rooted at root.
func New(style pathfx.Style, root string) *Host {
	return &Host{
		style:     style,
		root:      style.Clean(root),
		byTID:     make(map[string]*entry),
		calls:     make(map[string]int),
		watches:   make(map[string]int),
		listeners: make(map[int]func(string)),
	}
}

// LoadYAML builds a host from a YAML fixture.
func LoadYAML(data []byte) (*Host, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("memhost: parse fixture: %w", err)
	}
	style, err := pathfx.ParseStyle(fx.Style)
	if err != nil {
		return nil, fmt.Errorf("memhost: %w", err)
	}
	if fx.Root == "" {
		return nil, fmt.Errorf("memhost: fixture has no root")
	}
	h := New(style, fx.Root)
	for _, rec := range fx.Children {
		if err := h.addRecord(nil, h.root, rec); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// LoadFile reads and parses a YAML fixture file.
func LoadFile(path string) (*Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memhost: %w", err)
	}
	return LoadYAML(data)
}

func (h *Host) addRecord(parent *entry, parentPath string, rec *Record) error {
	typ, err := types.ParseItemType(rec.Type)
	if err != nil {
		return fmt.Errorf("memhost: %s: %w", h.style.Join(parentPath, rec.Label), err)
	}
	p := h.style.Join(parentPath, rec.Label)
	tid := rec.TID
	if tid == "" {
		tid = stableTID(p)
	}
	e := &entry{
		item: types.Item{
			TID:          tid,
			Label:        rec.Label,
			Type:         typ,
			IconPath:     rec.IconPath,
			Description:  rec.Description,
			Tooltip:      rec.Tooltip,
			Command:      rec.Command,
			ContextValue: rec.ContextValue,
		},
		parent: parent,
	}
	if err := e.item.Validate(); err != nil {
		return err
	}
	if _, dup := h.byTID[tid]; dup {
		return fmt.Errorf("memhost: duplicate tid %q at %s", tid, p)
	}
	h.link(parent, e)
	for _, c := range rec.Children {
		if err := h.addRecord(e, p, c); err != nil {
			return err
		}
	}
	return nil
}

// stableTID derives a deterministic tid from a fixture path.
func stableTID(p string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("memhost:"+p)).String()
}

func (h *Host) link(parent *entry, e *entry) {
	e.parent = parent
	if parent == nil {
		h.top = append(h.top, e)
	} else {
		parent.children = append(parent.children, e)
	}
	h.byTID[e.item.TID] = e
}

func (h *Host) unlink(e *entry) {
	list := &h.top
	if e.parent != nil {
		list = &e.parent.children
	}
	for i, c := range *list {
		if c == e {
			*list = append((*list)[:i], (*list)[i+1:]...)
			break
		}
	}
	e.parent = nil
}

func (h *Host) forget(e *entry) {
	delete(h.byTID, e.item.TID)
	for _, c := range e.children {
		h.forget(c)
	}
}

// pathOf builds the path of e from its parent chain.
func (h *Host) pathOf(e *entry) string {
	if e == nil {
		return h.root
	}
	return h.style.Join(h.pathOf(e.parent), e.item.Label)
}

// find resolves a path to an entry; the root resolves to (nil, true).
func (h *Host) find(p string) (*entry, bool) {
	rel, ok := h.style.Relative(h.root, p)
	if !ok {
		return nil, false
	}
	var cur *entry
	list := h.top
	for _, seg := range rel {
		var next *entry
		for _, c := range list {
			if c.item.Label == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
		list = next.children
	}
	return cur, true
}

// RootPath returns the root path the host serves.
func (h *Host) RootPath() string { return h.root }

// PathStyle implements the tree host contract.
func (h *Host) PathStyle() string { return h.style.String() }

// GetChildren returns raw descriptors for the queried folder.
func (h *Host) GetChildren(ctx context.Context, q types.ChildQuery) ([]any, error) {
	h.mu.Lock()
	h.calls[q.Path]++
	gate, latency := h.gate, h.latency
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.top
	if !q.IsRoot() {
		e, ok := h.byTID[q.Item.TID]
		if !ok {
			return nil, types.Errorf(types.ErrNotFound, "memhost: tid %q", q.Item.TID)
		}
		if e.item.Type != types.TypeFolder {
			return nil, types.Errorf(types.ErrNotFolder, "memhost: %s", h.pathOf(e))
		}
		list = e.children
	}
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out, nil
}

// GetTreeItem normalizes a raw descriptor. It accepts the descriptors
// returned by GetChildren and previously normalized types.Item values.
func (h *Host) GetTreeItem(_ context.Context, raw any) (types.Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch r := raw.(type) {
	case *entry:
		return r.item, nil
	case types.Item:
		e, ok := h.byTID[r.TID]
		if !ok {
			return types.Item{}, types.Errorf(types.ErrNotFound, "memhost: tid %q", r.TID)
		}
		return e.item, nil
	default:
		return types.Item{}, types.Errorf(types.ErrMalformedItem, "memhost: raw %T", raw)
	}
}

// Watch records a watch subscription for path.
func (h *Host) Watch(p string) (func(string), error) {
	h.mu.Lock()
	h.watches[p]++
	h.mu.Unlock()
	return func(p string) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.watches[p] <= 1 {
			delete(h.watches, p)
			return
		}
		h.watches[p]--
	}, nil
}

// Watching reports whether path has a live watch subscription.
func (h *Host) Watching(p string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.watches[p] > 0
}

// OnChangeTreeData registers fn for Touch signals.
func (h *Host) OnChangeTreeData(fn func(tid string)) func() {
	h.mu.Lock()
	id := h.nextLis
	h.nextLis++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Touch signals listeners that the record for tid changed. An empty tid
// signals the root.
func (h *Host) Touch(tid string) {
	h.mu.Lock()
	fns := make([]func(string), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(tid)
	}
}

// Calls returns how many times GetChildren was asked for path.
func (h *Host) Calls(p string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[p]
}

// TotalCalls returns the number of GetChildren calls for all paths.
func (h *Host) TotalCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		n += c
	}
	return n
}

// Hold blocks GetChildren until the returned release func is called.
func (h *Host) Hold() (release func()) {
	ch := make(chan struct{})
	h.mu.Lock()
	h.gate = ch
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if h.gate == ch {
				h.gate = nil
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// SetLatency delays every GetChildren call by d.
func (h *Host) SetLatency(d time.Duration) {
	h.mu.Lock()
	h.latency = d
	h.mu.Unlock()
}

// SetReject makes MoveItem and DeleteItem report false without mutating.
func (h *Host) SetReject(reject bool) {
	h.mu.Lock()
	h.reject = reject
	h.mu.Unlock()
}

// TID returns the tid of the record at path.
func (h *Host) TID(p string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.find(p)
	if !ok || e == nil {
		return "", false
	}
	return e.item.TID, true
}

// Put stores it under the folder at parentPath without validating it.
// Tests use it to serve malformed records.
func (h *Host) Put(parentPath string, it types.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	parent, ok := h.find(parentPath)
	if !ok {
		return types.Errorf(types.ErrNotFound, "memhost: %s", parentPath)
	}
	if it.TID == "" {
		it.TID = uuid.NewString()
	}
	h.link(parent, &entry{item: it})
	return nil
}

// Relabel renames the record for tid in place.
func (h *Host) Relabel(tid, label string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byTID[tid]
	if !ok {
		return types.Errorf(types.ErrNotFound, "memhost: tid %q", tid)
	}
	e.item.Label = label
	return nil
}

// Remove drops the record at path and its descendants.
func (h *Host) Remove(p string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.find(p)
	if !ok || e == nil {
		return types.Errorf(types.ErrNotFound, "memhost: %s", p)
	}
	h.unlink(e)
	h.forget(e)
	return nil
}

func (h *Host) parentEntry(q types.ChildQuery) (*entry, error) {
	if q.IsRoot() {
		return nil, nil
	}
	e, ok := h.byTID[q.Item.TID]
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "memhost: tid %q", q.Item.TID)
	}
	if e.item.Type != types.TypeFolder {
		return nil, types.Errorf(types.ErrNotFolder, "memhost: %s", h.pathOf(e))
	}
	return e, nil
}

// CreateItem adds a record under parent and returns it.
func (h *Host) CreateItem(_ context.Context, parent types.ChildQuery, label, fullPath string, typ types.ItemType, content []byte) (types.Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pe, err := h.parentEntry(parent)
	if err != nil {
		return types.Item{}, err
	}
	if _, exists := h.find(fullPath); exists {
		return types.Item{}, fmt.Errorf("memhost: %s already exists", fullPath)
	}
	e := &entry{
		item:    types.Item{TID: uuid.NewString(), Label: label, Type: typ},
		content: content,
	}
	h.link(pe, e)
	return e.item, nil
}

// MoveItem reparents and renames the record for item.
func (h *Host) MoveItem(_ context.Context, item types.Item, newParent types.ChildQuery, newPath string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reject {
		return false, nil
	}
	e, ok := h.byTID[item.TID]
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "memhost: tid %q", item.TID)
	}
	pe, err := h.parentEntry(newParent)
	if err != nil {
		return false, err
	}
	h.unlink(e)
	e.item.Label = h.style.Base(newPath)
	h.link(pe, e)
	return true, nil
}

// DeleteItem removes the record for item and its descendants.
func (h *Host) DeleteItem(_ context.Context, item types.Item) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reject {
		return false, nil
	}
	e, ok := h.byTID[item.TID]
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "memhost: tid %q", item.TID)
	}
	h.unlink(e)
	h.forget(e)
	return true, nil
}

// Content returns the bytes a record was created with.
func (h *Host) Content(tid string) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.byTID[tid]; ok {
		return e.content
	}
	return nil
}

// SortedHost overrides the tree's default sort order with Cmp.
type SortedHost struct {
	*Host
	Cmp func(a, b types.Item) int
}

// Compare implements the optional sorter capability.
func (s SortedHost) Compare(a, b types.Item) int { return s.Cmp(a, b) }
