package printer

import (
	"fmt"
	"io"

	"github.com/tinialabs/react-birch-sub000/tree"
	"github.com/tinialabs/react-birch-sub000/tree/decoration"
)

const (
	DefaultIndentSize = 2
	DefaultMaxDepth   = 0
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs an indented text tree.
	FormatText Format = "text"

	// FormatJSON outputs JSON.
	FormatJSON Format = "json"
)

// ParseFormat maps "text" and "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("printer: unknown format %q", s)
	}
}

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per depth level (text format only).
	// Default: 2
	IndentSize int

	// MaxDepth limits PrintTree recursion below the root (0 = unlimited).
	// Default: 0
	MaxDepth int

	// ShowIDs includes node ids and surface indexes.
	// Default: false
	ShowIDs bool

	// ShowDescriptions includes host descriptions.
	// Default: true
	ShowDescriptions bool

	// Decorations, when set, adds each node's resolved classes.
	Decorations *decoration.Manager
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:           FormatText,
		IndentSize:       DefaultIndentSize,
		MaxDepth:         DefaultMaxDepth,
		ShowDescriptions: true,
	}
}

// Printer renders a tree's surfaced rows or its loaded nodes.
type Printer struct {
	opts   Options
	writer io.Writer
	tree   *tree.Root
}

// New creates a new Printer.
//
// Example:
//
//	p := printer.New(root, os.Stdout, printer.DefaultOptions())
//	p.PrintSurface()
func New(t *tree.Root, w io.Writer, opts Options) *Printer {
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	return &Printer{tree: t, writer: w, opts: opts}
}

// PrintSurface prints every surfaced row, in index order.
func (p *Printer) PrintSurface() error {
	return p.PrintRange(0, p.tree.BranchSize())
}

// PrintRange prints surfaced rows [start, end), clamped to the surface.
// It is what a windowed renderer asks for.
func (p *Printer) PrintRange(start, end int) error {
	rows, err := p.rows(start, end)
	if err != nil {
		return err
	}
	switch p.opts.Format {
	case FormatJSON:
		return p.printRowsJSON(rows)
	default:
		return p.printRowsText(rows)
	}
}

// PrintTree prints the loaded subtree under n, whether surfaced or not.
// Unloaded folders print without children.
func (p *Printer) PrintTree(n *tree.Node) error {
	if n == nil || n.Tree() != p.tree {
		return fmt.Errorf("printer: node not in tree")
	}
	switch p.opts.Format {
	case FormatJSON:
		return p.printTreeJSON(n)
	default:
		return p.printTreeText(n, 0)
	}
}

// row is one surfaced node.
type row struct {
	index int
	node  *tree.Node
}

func (p *Printer) rows(start, end int) ([]row, error) {
	size := p.tree.BranchSize()
	start = max(start, 0)
	end = min(end, size)
	if start > end {
		return nil, fmt.Errorf("printer: bad range [%d, %d)", start, end)
	}
	out := make([]row, 0, end-start)
	for i := start; i < end; i++ {
		n := p.tree.ItemEntryAtIndex(i)
		if n == nil {
			return nil, fmt.Errorf("printer: no node at index %d", i)
		}
		out = append(out, row{index: i, node: n})
	}
	return out, nil
}

func (p *Printer) classes(n *tree.Node) []string {
	if p.opts.Decorations == nil {
		return nil
	}
	l, err := p.opts.Decorations.Decorations(n)
	if err != nil {
		return nil
	}
	return l.Classes()
}
