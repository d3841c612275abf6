package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/tinialabs/react-birch-sub000/internal/testutil"
)

// resetConfig clears viper and every global flag so each case starts from
// the built-in defaults.
func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	setDefaults()

	quiet = false
	verbose = false
	jsonOut = false
	treeDepth = 0
	treeExpand = nil
	treeMark = nil
	treeIDs = false
	treeFull = false
	treeVerify = false
	treeCompact = false
	findReveal = true
	t.Cleanup(viper.Reset)
}

// sampleYAML writes the sample fixture and returns its path.
func sampleYAML(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(p, []byte(testutil.SampleAppYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

// sampleDB imports the sample fixture into a fresh database and returns its path.
func sampleDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "app.db")
	if _, err := captureOutput(t, func() error {
		return runImport(t.Context(), []string{sampleYAML(t), db})
	}); err != nil {
		t.Fatalf("import fixture: %v", err)
	}
	return db
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}
