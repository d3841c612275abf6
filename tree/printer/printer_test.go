package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinialabs/react-birch-sub000/host/memhost"
	"github.com/tinialabs/react-birch-sub000/internal/testutil"
	"github.com/tinialabs/react-birch-sub000/tree"
	"github.com/tinialabs/react-birch-sub000/tree/decoration"
)

func openSample(t *testing.T) *tree.Root {
	t.Helper()
	h, err := memhost.LoadYAML([]byte(testutil.SampleAppYAML))
	require.NoError(t, err)
	r, err := tree.New(h, testutil.SampleAppRoot, tree.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	src, err := r.ForceLoadItemEntryAtPath(context.Background(), "/app/src")
	require.NoError(t, err)
	require.NoError(t, r.ExpandFolder(context.Background(), src, false))
	return r
}

func TestPrinter_PrintSurface_Text(t *testing.T) {
	r := openSample(t)

	var buf bytes.Buffer
	p := New(r, &buf, DefaultOptions())
	require.NoError(t, p.PrintSurface())

	require.Equal(t, "> scripts/\nv src/\n  > components/\n  > models/\n> tests/\n", buf.String())
}

func TestPrinter_PrintRange(t *testing.T) {
	r := openSample(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.ShowIDs = true
	p := New(r, &buf, opts)
	require.NoError(t, p.PrintRange(1, 3))

	src, err := r.FindItemEntryInLoadedTree("/app/src")
	require.NoError(t, err)
	components, err := r.FindItemEntryInLoadedTree("/app/src/components")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, fmt.Sprintf("   1 %-8s v src/", src.ID()), lines[0])
	require.Equal(t, fmt.Sprintf("   2 %-8s   > components/", components.ID()), lines[1])

	buf.Reset()
	require.NoError(t, p.PrintRange(-4, 100))
	require.Equal(t, 5, bytes.Count(buf.Bytes(), []byte("\n")))

	require.Error(t, p.PrintRange(4, 2))
}

func TestPrinter_Decorations(t *testing.T) {
	r := openSample(t)
	m, err := decoration.NewManager(r)
	require.NoError(t, err)
	t.Cleanup(m.Dispose)

	src, err := r.FindItemEntryInLoadedTree("/app/src")
	require.NoError(t, err)
	active := decoration.New("active")
	active.AddTarget(src, decoration.SelfAndChildren)
	require.NoError(t, m.AddDecoration(active))

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Decorations = m
	require.NoError(t, New(r, &buf, opts).PrintSurface())

	out := buf.String()
	require.Contains(t, out, "v src/  [active]\n")
	require.Contains(t, out, "  > models/  [active]\n")
	require.Contains(t, out, "> tests/\n")
}

func TestPrinter_PrintSurface_JSON(t *testing.T) {
	r := openSample(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	opts.ShowIDs = true
	require.NoError(t, New(r, &buf, opts).PrintSurface())

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 5)
	require.Equal(t, "src", rows[1]["label"])
	require.Equal(t, true, rows[1]["expanded"])
	require.Equal(t, "/app/src/components", rows[2]["path"])
	require.EqualValues(t, 2, rows[2]["depth"])
	require.EqualValues(t, 2, rows[2]["index"])
	require.Equal(t, "folder", rows[2]["type"])
	require.Equal(t, false, rows[4]["loaded"])
}

func TestPrinter_PrintTree(t *testing.T) {
	r := openSample(t)
	header, err := r.ForceLoadItemEntryAtPath(context.Background(), "/app/src/components/Header/Header.tsx")
	require.NoError(t, err)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.MaxDepth = 1
	p := New(r, &buf, opts)
	require.NoError(t, p.PrintTree(r.Root()))
	require.Equal(t, "v app/\n  > scripts/\n  v src/\n  > tests/\n", buf.String())

	buf.Reset()
	require.NoError(t, New(r, &buf, DefaultOptions()).PrintTree(header.Parent()))
	require.Equal(t, "> Header/\n    Header.css\n    Header.tsx  (component)\n", buf.String())

	buf.Reset()
	opts = DefaultOptions()
	opts.Format = FormatJSON
	require.NoError(t, New(r, &buf, opts).PrintTree(r.Root()))
	var root map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &root))
	require.Equal(t, "app", root["label"])
	require.Len(t, root["children"], 3)

	other := openSample(t)
	require.Error(t, p.PrintTree(other.Root()))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("reg")
	require.Error(t, err)
}
