package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputFiltersByLevel(t *testing.T) {
	orig := L
	t.Cleanup(func() { L = orig })

	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelWarn)

	Debug("hidden", "k", 1)
	Warn("watch event: no match", "label", "ghost")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "no match")
	assert.Contains(t, out, "label=ghost")
}

func TestInitDisabledDiscards(t *testing.T) {
	orig := L
	t.Cleanup(func() { L = orig })

	require.NoError(t, Init(Options{Enabled: false}))
	assert.NotNil(t, L)
	assert.False(t, L.Enabled(context.Background(), slog.LevelDebug))
}

func TestInitWritesDatedFile(t *testing.T) {
	orig := L
	t.Cleanup(func() {
		_ = Init(Options{})
		L = orig
	})

	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir, Level: slog.LevelDebug}))
	Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, logName(time.Now())))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestPruneRemovesExpiredDays(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	old := filepath.Join(dir, logName(now.AddDate(0, 0, -30)))
	edge := filepath.Join(dir, logName(now.Add(-DefaultRetention)))
	fresh := filepath.Join(dir, logName(now.AddDate(0, 0, -1)))
	other := filepath.Join(dir, "notes.txt")
	odd := filepath.Join(dir, "birch-latest.log")
	for _, p := range []string{old, edge, fresh, other, odd} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	prune(dir, now.Add(-DefaultRetention))

	assert.NoFileExists(t, old)
	assert.FileExists(t, edge)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.FileExists(t, odd)
}

func TestReinitClosesPreviousFile(t *testing.T) {
	orig := L
	t.Cleanup(func() {
		_ = Init(Options{})
		L = orig
	})

	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	first := file
	require.NotNil(t, first)

	require.NoError(t, Init(Options{Enabled: false}))
	assert.Nil(t, file)
	assert.Error(t, first.Close(), "already closed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
