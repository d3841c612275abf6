package tree

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
)

type changeKey struct {
	folder string
	tid    string
}

// changeQueue coalesces Changed events until the tree has been quiet for the
// flush delay.
type changeQueue struct {
	keys  map[changeKey]struct{}
	timer *time.Timer
}

func (q *changeQueue) stop() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.keys = nil
}

func (q *changeQueue) len() int { return len(q.keys) }

func (r *Root) enqueueChanged(e Changed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	q := &r.changes
	if q.keys == nil {
		q.keys = make(map[changeKey]struct{})
	}
	q.keys[changeKey{folder: r.style.Clean(e.Folder), tid: e.TID}] = struct{}{}

	if r.opts.FlushDelay < 0 {
		return
	}
	if q.timer == nil {
		q.timer = time.AfterFunc(r.opts.FlushDelay, func() {
			if err := r.FlushEventQueue(context.Background()); err != nil {
				logger.Warn("tree: flush failed", "error", err)
			}
		})
		return
	}
	q.timer.Reset(r.opts.FlushDelay)
}

// PendingChanges returns the number of queued Changed events.
func (r *Root) PendingChanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes.len()
}

// FlushEventQueue applies every queued Changed event now. Each affected
// folder is reloaded once, shallowest path first, so an ancestor is never
// reloaded after one of its descendants. Folders that are no longer loaded
// when their turn comes are skipped.
func (r *Root) FlushEventQueue(ctx context.Context) error {
	r.mu.Lock()
	keys := r.changes.keys
	r.changes.stop()
	r.mu.Unlock()
	if len(keys) == 0 {
		return nil
	}

	folders := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for k := range keys {
		if !seen[k.folder] {
			seen[k.folder] = true
			folders = append(folders, k.folder)
		}
	}
	slices.SortFunc(folders, func(a, b string) int {
		if c := cmp.Compare(r.style.Depth(a), r.style.Depth(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	logger.Debug("tree: flushing changes", "events", len(keys), "folders", len(folders))

	var errs []error
	for _, p := range folders {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return errors.Join(errs...)
		}
		f := r.lookFolder(p)
		r.mu.Unlock()
		if f == nil {
			logger.Debug("tree: changed: folder not loaded", "folder", p)
			continue
		}
		if err := r.load(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
