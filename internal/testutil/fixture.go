// Package testutil holds fixtures and helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tinialabs/react-birch-sub000/internal/logger"
)

// SampleAppRoot is the root path of the sample fixture.
const SampleAppRoot = "/app"

// SampleAppYAML is the sample /app tree:
//
//	/app
//	  scripts/build/{build.sh,release.sh}
//	  src/components/Header/{Header.css,Header.tsx}
//	  src/models/user/user.go
//	  tests/
//
// Loading /app surfaces 3 entries, expanding src adds 2 and expanding
// src/models adds 1 more.
const SampleAppYAML = `root: /app
style: posix
children:
  - label: tests
    type: folder
  - label: src
    type: folder
    children:
      - label: components
        type: folder
        children:
          - label: Header
            type: folder
            children:
              - label: Header.tsx
                type: item
                description: component
              - label: Header.css
                type: item
      - label: models
        type: folder
        children:
          - label: user
            type: folder
            children:
              - label: user.go
                type: item
  - label: scripts
    type: folder
    children:
      - label: build
        type: folder
        children:
          - label: build.sh
            type: item
          - label: release.sh
            type: item
`

// sampleFiles lists the sample tree's files relative to the root; empty
// directories end with a slash.
var sampleFiles = []string{
	"tests/",
	"src/components/Header/Header.tsx",
	"src/components/Header/Header.css",
	"src/models/user/user.go",
	"scripts/build/build.sh",
	"scripts/build/release.sh",
}

// WriteSampleApp materializes the sample tree under a temporary directory
// and returns the path of its "app" root.
func WriteSampleApp(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "app")
	for _, rel := range sampleFiles {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", p, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(rel+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root
}

// LogBuffer is a goroutine-safe buffer for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogs redirects the package logger to a buffer for the duration of
// the test.
func CaptureLogs(t *testing.T, level slog.Level) *LogBuffer {
	t.Helper()

	prev := logger.L
	buf := &LogBuffer{}
	logger.SetOutput(buf, level)
	t.Cleanup(func() { logger.L = prev })
	return buf
}
