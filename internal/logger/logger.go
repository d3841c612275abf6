// Package logger holds the process-wide slog logger used by the tree engine,
// the hosts and birchctl. Nothing is written until Init or SetOutput is
// called.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// L receives every record. It discards output until configured.
var L = discard()

// DefaultRetention is how long dated log files are kept.
const DefaultRetention = 14 * 24 * time.Hour

const dayLayout = "2006-01-02"

var (
	mu   sync.Mutex
	file *os.File // current log file, closed on re-Init
)

// Options selects where records go.
type Options struct {
	Enabled   bool
	LogDir    string        // empty means <user cache dir>/birch/logs
	Level     slog.Level    // LevelInfo is the zero value
	Retention time.Duration // zero means DefaultRetention
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// logName is the file records of day go to: birch-2026-03-20.log.
func logName(day time.Time) string { return "birch-" + day.Format(dayLayout) + ".log" }

// Init points L at today's JSON log file under opts.LogDir, or back at a
// discarding handler when logging is disabled. Files past the retention
// window are removed first.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	if !opts.Enabled {
		L = discard()
		return nil
	}

	dir := opts.LogDir
	if dir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(cache, "birch", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := time.Now()
	prune(dir, now.Add(-retention))

	f, err := os.OpenFile(filepath.Join(dir, logName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	return nil
}

// SetOutput sends text records at or above level to w.
func SetOutput(w io.Writer, level slog.Level) {
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to a slog level; unknown names give info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// prune deletes dated log files from before cutoff's day. Other files in dir
// are left alone.
func prune(dir string, cutoff time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	limit := cutoff.Format(dayLayout)
	for _, e := range entries {
		day, ok := strings.CutPrefix(e.Name(), "birch-")
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, ".log")
		if !ok {
			continue
		}
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		// Zero-padded dates sort lexically.
		if day < limit {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
