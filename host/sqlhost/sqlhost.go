// Package sqlhost stores a tree in a SQLite database.
//
// Every record is a row of the items table keyed by tid, with its parent's
// tid ('' for children of the root) and its label. The host supports the
// tree's create, move and delete commands and signals description updates
// through the change notifier.
package sqlhost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/tinialabs/react-birch-sub000/internal/logger"
	"github.com/tinialabs/react-birch-sub000/internal/pathfx"
	"github.com/tinialabs/react-birch-sub000/pkg/types"
	"github.com/tinialabs/react-birch-sub000/tree"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	tid         TEXT PRIMARY KEY,
	parent_tid  TEXT NOT NULL DEFAULT '',
	label       TEXT NOT NULL,
	type        TEXT NOT NULL CHECK (type IN ('item', 'folder')),
	description TEXT NOT NULL DEFAULT '',
	content     BLOB,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (parent_tid, label)
);
CREATE INDEX IF NOT EXISTS items_parent ON items (parent_tid);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// record is the raw descriptor handed to the tree.
type record struct {
	tid         string
	label       string
	typ         types.ItemType
	description string
}

func (r record) item() types.Item {
	return types.Item{TID: r.tid, Label: r.label, Type: r.typ, Description: r.description}
}

// Host serves the items table of one database.
type Host struct {
	conn *sql.DB
	root string

	mu        sync.Mutex
	listeners map[int]func(string)
	nextID    int
}

// Open opens (creating if needed) the database at dbPath. root is the path
// the tree will use for the table's root; it is stored, and an empty root
// reuses the stored one (or "/"). ":memory:" opens a private in-memory
// database.
func Open(dbPath, root string) (*Host, error) {
	memory := dbPath == ":memory:"
	if !memory {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if memory {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		// WAL mode allows simultaneous readers and writers
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, err
		}
		if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlhost: schema: %w", err)
	}
	root, err = storedRoot(db, root)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Host{conn: db, root: root, listeners: make(map[int]func(string))}, nil
}

func storedRoot(db *sql.DB, root string) (string, error) {
	if root != "" {
		root = pathfx.Posix.Clean(root)
		_, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('root', ?)", root)
		return root, err
	}
	err := db.QueryRow("SELECT value FROM meta WHERE key = 'root'").Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return "/", nil
	}
	return root, err
}

// Close closes the database.
func (h *Host) Close() error { return h.conn.Close() }

// RootPath returns the path of the table's root.
func (h *Host) RootPath() string { return h.root }

// PathStyle reports posix; paths are virtual.
func (h *Host) PathStyle() string { return pathfx.Posix.String() }

func parentTID(q types.ChildQuery) string {
	if q.IsRoot() {
		return ""
	}
	return q.Item.TID
}

func scanType(s string) types.ItemType {
	t, err := types.ParseItemType(s)
	if err != nil {
		return types.TypeInvalid
	}
	return t
}

// checkFolder verifies tid names a folder ('' is the root).
func (h *Host) checkFolder(ctx context.Context, q queryer, tid string) error {
	if tid == "" {
		return nil
	}
	var typ string
	err := q.QueryRowContext(ctx, "SELECT type FROM items WHERE tid = ?", tid).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Errorf(types.ErrNotFound, "tid %s", tid)
	}
	if err != nil {
		return err
	}
	if scanType(typ) != types.TypeFolder {
		return types.Errorf(types.ErrNotFolder, "tid %s", tid)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetChildren lists the rows whose parent is q's folder.
func (h *Host) GetChildren(ctx context.Context, q types.ChildQuery) ([]any, error) {
	pt := parentTID(q)
	if err := h.checkFolder(ctx, h.conn, pt); err != nil {
		return nil, err
	}
	rows, err := h.conn.QueryContext(ctx,
		"SELECT tid, label, type, description FROM items WHERE parent_tid = ? ORDER BY label ASC", pt)
	if err != nil {
		return nil, fmt.Errorf("sqlhost: children of %s: %w", q.Path, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var r record
		var typ string
		if err := rows.Scan(&r.tid, &r.label, &typ, &r.description); err != nil {
			return nil, err
		}
		r.typ = scanType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTreeItem re-reads the row behind raw, so a refetch sees updates made
// since the listing.
func (h *Host) GetTreeItem(ctx context.Context, raw any) (types.Item, error) {
	switch v := raw.(type) {
	case record:
		return h.Item(ctx, v.tid)
	case types.Item:
		return h.Item(ctx, v.TID)
	default:
		return types.Item{}, types.Errorf(types.ErrMalformedItem, "unexpected descriptor %T", raw)
	}
}

// Item reads the row for tid.
func (h *Host) Item(ctx context.Context, tid string) (types.Item, error) {
	r := record{tid: tid}
	var typ string
	err := h.conn.QueryRowContext(ctx,
		"SELECT label, type, description FROM items WHERE tid = ?", tid).Scan(&r.label, &typ, &r.description)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Item{}, types.Errorf(types.ErrNotFound, "tid %s", tid)
	}
	if err != nil {
		return types.Item{}, err
	}
	r.typ = scanType(typ)
	return r.item(), nil
}

// Insert adds a row under parentTID ('' for the root). An empty it.TID
// gets a random one.
func (h *Host) Insert(ctx context.Context, parentTID string, it types.Item, content []byte) (types.Item, error) {
	if !it.Type.Valid() {
		return types.Item{}, types.Errorf(types.ErrInvalidItemType, "%s", it.Type)
	}
	if it.TID == "" {
		it.TID = uuid.NewString()
	}
	if err := h.checkFolder(ctx, h.conn, parentTID); err != nil {
		return types.Item{}, err
	}
	_, err := h.conn.ExecContext(ctx,
		"INSERT INTO items (tid, parent_tid, label, type, description, content) VALUES (?, ?, ?, ?, ?, ?)",
		it.TID, parentTID, it.Label, it.Type.String(), it.Description, content)
	if err != nil {
		return types.Item{}, fmt.Errorf("sqlhost: insert %q: %w", it.Label, err)
	}
	return types.Item{TID: it.TID, Label: it.Label, Type: it.Type, Description: it.Description}, nil
}

// Resolve maps a path below the root to a tid. The root resolves to ''.
func (h *Host) Resolve(ctx context.Context, p string) (string, error) {
	rel, ok := pathfx.Posix.Relative(h.root, p)
	if !ok {
		return "", types.Errorf(types.ErrNotFound, "%s is outside %s", p, h.root)
	}
	tid := ""
	for _, label := range rel {
		err := h.conn.QueryRowContext(ctx,
			"SELECT tid FROM items WHERE parent_tid = ? AND label = ?", tid, label).Scan(&tid)
		if errors.Is(err, sql.ErrNoRows) {
			return "", types.Errorf(types.ErrNotFound, "%s", p)
		}
		if err != nil {
			return "", err
		}
	}
	return tid, nil
}

// Import copies every record src serves below root into the table, under
// parentTID, keeping tids.
func (h *Host) Import(ctx context.Context, src tree.Host, root, parentTID string) (int, error) {
	style, err := pathfx.ParseStyle(src.PathStyle())
	if err != nil {
		return 0, err
	}
	n := 0
	var walk func(q types.ChildQuery, parent string) error
	walk = func(q types.ChildQuery, parent string) error {
		raws, err := src.GetChildren(ctx, q)
		if err != nil {
			return err
		}
		for _, raw := range raws {
			it, err := src.GetTreeItem(ctx, raw)
			if err != nil {
				return err
			}
			if _, err := h.Insert(ctx, parent, it, nil); err != nil {
				return err
			}
			n++
			if it.Type == types.TypeFolder {
				if err := walk(types.ChildQuery{Path: style.Join(q.Path, it.Label), Item: &it}, it.TID); err != nil {
					return err
				}
			}
		}
		return nil
	}
	err = walk(types.ChildQuery{Path: root}, parentTID)
	logger.Debug("sqlhost: imported", "root", root, "records", n)
	return n, err
}

// OnChangeTreeData subscribes fn to record updates made through the host.
func (h *Host) OnChangeTreeData(fn func(tid string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *Host) changed(tid string) {
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

// SetDescription updates a row's description and signals the change.
func (h *Host) SetDescription(ctx context.Context, tid, description string) error {
	res, err := h.conn.ExecContext(ctx, "UPDATE items SET description = ? WHERE tid = ?", description, tid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.Errorf(types.ErrNotFound, "tid %s", tid)
	}
	h.changed(tid)
	return nil
}

// Content returns a row's stored content.
func (h *Host) Content(ctx context.Context, tid string) ([]byte, error) {
	var data []byte
	err := h.conn.QueryRowContext(ctx, "SELECT content FROM items WHERE tid = ?", tid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.Errorf(types.ErrNotFound, "tid %s", tid)
	}
	return data, err
}

// CreateItem inserts a new row under parent.
func (h *Host) CreateItem(ctx context.Context, parent types.ChildQuery, label, fullPath string, typ types.ItemType, content []byte) (types.Item, error) {
	if label == "" || strings.Contains(label, "/") {
		return types.Item{}, fmt.Errorf("sqlhost: create %s: bad label %q", fullPath, label)
	}
	return h.Insert(ctx, parentTID(parent), types.Item{Label: label, Type: typ}, content)
}

// MoveItem reparents and relabels item's row. It reports false when the
// destination label is taken or the destination lies inside item.
func (h *Host) MoveItem(ctx context.Context, item types.Item, newParent types.ChildQuery, newPath string) (bool, error) {
	label := pathfx.Posix.Base(newPath)
	dest := parentTID(newParent)

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := h.checkFolder(ctx, tx, dest); err != nil {
		return false, err
	}
	var inside int
	err = tx.QueryRowContext(ctx, `
		WITH RECURSIVE anc(tid) AS (
			SELECT ?
			UNION ALL
			SELECT i.parent_tid FROM items i JOIN anc ON i.tid = anc.tid WHERE i.parent_tid != ''
		)
		SELECT COUNT(*) FROM anc WHERE tid = ?`, dest, item.TID).Scan(&inside)
	if err != nil {
		return false, err
	}
	if inside > 0 {
		logger.Debug("sqlhost: refusing move into own subtree", "tid", item.TID, "dest", newPath)
		return false, nil
	}
	var taken int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE parent_tid = ? AND label = ? AND tid != ?", dest, label, item.TID).Scan(&taken)
	if err != nil {
		return false, err
	}
	if taken > 0 {
		return false, nil
	}
	res, err := tx.ExecContext(ctx, "UPDATE items SET parent_tid = ?, label = ? WHERE tid = ?", dest, label, item.TID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, types.Errorf(types.ErrNotFound, "tid %s", item.TID)
	}
	return true, tx.Commit()
}

// DeleteItem removes item's row and everything below it.
func (h *Host) DeleteItem(ctx context.Context, item types.Item) (bool, error) {
	res, err := h.conn.ExecContext(ctx, `
		WITH RECURSIVE sub(tid) AS (
			SELECT ?
			UNION ALL
			SELECT i.tid FROM items i JOIN sub ON i.parent_tid = sub.tid
		)
		DELETE FROM items WHERE tid IN (SELECT tid FROM sub)`, item.TID)
	if err != nil {
		return false, fmt.Errorf("sqlhost: delete %s: %w", item.TID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
