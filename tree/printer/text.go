package printer

import (
	"fmt"
	"strings"

	"github.com/tinialabs/react-birch-sub000/tree"
)

// marker returns the expansion marker shown before a label.
func marker(n *tree.Node) string {
	switch {
	case !n.IsFolder():
		return " "
	case n.Expanded():
		return "v"
	default:
		return ">"
	}
}

// line renders one node without indentation.
func (p *Printer) line(n *tree.Node) string {
	var b strings.Builder
	b.WriteString(marker(n))
	b.WriteByte(' ')
	b.WriteString(n.Label())
	if n.IsFolder() {
		b.WriteByte('/')
	}
	if p.opts.ShowDescriptions {
		if d := n.Item().Description; d != "" {
			fmt.Fprintf(&b, "  (%s)", d)
		}
	}
	if cls := p.classes(n); len(cls) > 0 {
		fmt.Fprintf(&b, "  [%s]", strings.Join(cls, " "))
	}
	return b.String()
}

func (p *Printer) printRowsText(rows []row) error {
	for _, r := range rows {
		indent := strings.Repeat(" ", (r.node.Depth()-1)*p.opts.IndentSize)
		prefix := ""
		if p.opts.ShowIDs {
			prefix = fmt.Sprintf("%4d %-8s ", r.index, r.node.ID())
		}
		if _, err := fmt.Fprintf(p.writer, "%s%s%s\n", prefix, indent, p.line(r.node)); err != nil {
			return err
		}
	}
	return nil
}

// printTreeText recursively prints a loaded subtree in text format.
func (p *Printer) printTreeText(n *tree.Node, depth int) error {
	indent := strings.Repeat(" ", depth*p.opts.IndentSize)
	prefix := ""
	if p.opts.ShowIDs {
		prefix = fmt.Sprintf("%-8s ", n.ID())
	}
	if _, err := fmt.Fprintf(p.writer, "%s%s%s\n", prefix, indent, p.line(n)); err != nil {
		return err
	}

	// Check depth limit
	if p.opts.MaxDepth > 0 && depth >= p.opts.MaxDepth {
		return nil
	}
	for _, c := range n.Children() {
		if err := p.printTreeText(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
