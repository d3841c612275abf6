package printer

import (
	"encoding/json"
	"fmt"

	"github.com/tinialabs/react-birch-sub000/tree"
)

// jsonNode represents a node in JSON format.
type jsonNode struct {
	Index       *int       `json:"index,omitempty"`
	ID          string     `json:"id,omitempty"`
	TID         string     `json:"tid,omitempty"`
	Label       string     `json:"label"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	Depth       int        `json:"depth"`
	Expanded    *bool      `json:"expanded,omitempty"`
	Loaded      *bool      `json:"loaded,omitempty"`
	Description string     `json:"description,omitempty"`
	Classes     []string   `json:"classes,omitempty"`
	Children    []jsonNode `json:"children,omitempty"`
}

func (p *Printer) jsonNode(n *tree.Node) jsonNode {
	it := n.Item()
	out := jsonNode{
		TID:   it.TID,
		Label: n.Label(),
		Path:  n.Path(),
		Type:  n.Kind().String(),
		Depth: n.Depth(),
	}
	if p.opts.ShowIDs {
		out.ID = n.ID().String()
	}
	if n.IsFolder() {
		expanded, loaded := n.Expanded(), n.Loaded()
		out.Expanded = &expanded
		out.Loaded = &loaded
	}
	if p.opts.ShowDescriptions {
		out.Description = it.Description
	}
	out.Classes = p.classes(n)
	return out
}

// printRowsJSON prints surfaced rows as a JSON array.
func (p *Printer) printRowsJSON(rows []row) error {
	out := make([]jsonNode, 0, len(rows))
	for _, r := range rows {
		jn := p.jsonNode(r.node)
		if p.opts.ShowIDs {
			idx := r.index
			jn.Index = &idx
		}
		out = append(out, jn)
	}
	return p.write(out)
}

func (p *Printer) buildJSONTree(n *tree.Node, depth int) jsonNode {
	jn := p.jsonNode(n)
	if p.opts.MaxDepth > 0 && depth >= p.opts.MaxDepth {
		return jn
	}
	for _, c := range n.Children() {
		jn.Children = append(jn.Children, p.buildJSONTree(c, depth+1))
	}
	return jn
}

// printTreeJSON prints a loaded subtree as nested JSON.
func (p *Printer) printTreeJSON(n *tree.Node) error {
	return p.write(p.buildJSONTree(n, 0))
}

func (p *Printer) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.writer, "%s\n", data)
	return err
}
