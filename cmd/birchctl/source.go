package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinialabs/react-birch-sub000/host/fshost"
	"github.com/tinialabs/react-birch-sub000/host/memhost"
	"github.com/tinialabs/react-birch-sub000/host/sqlhost"
	"github.com/tinialabs/react-birch-sub000/tree"
)

const (
	sourceFS     = "fs"
	sourceYAML   = "yaml"
	sourceSQLite = "sqlite"
)

// source is an opened host plus the root path the tree should use.
type source struct {
	kind  string
	host  tree.Host
	root  string
	close func() error
}

// detectSource guesses the source kind of location.
func detectSource(location string) (string, error) {
	info, err := os.Stat(location)
	if err != nil {
		return "", fmt.Errorf("source %s: %w", location, err)
	}
	if info.IsDir() {
		return sourceFS, nil
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return sourceYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return sourceSQLite, nil
	default:
		return "", fmt.Errorf("source %s: cannot tell the kind, pass --source", location)
	}
}

func openSource(s settings, location string) (*source, error) {
	kind := s.Source
	if kind == "" || kind == "auto" {
		var err error
		if kind, err = detectSource(location); err != nil {
			return nil, err
		}
	}
	printVerbose("Opening %s source: %s\n", kind, location)

	switch kind {
	case sourceFS:
		h, err := fshost.New(location, fshost.Options{Hidden: s.FSHidden, Ignore: s.FSIgnore})
		if err != nil {
			return nil, err
		}
		return &source{kind: kind, host: h, root: h.Root(), close: h.Close}, nil
	case sourceYAML:
		h, err := memhost.LoadFile(location)
		if err != nil {
			return nil, err
		}
		return &source{kind: kind, host: h, root: h.RootPath(), close: func() error { return nil }}, nil
	case sourceSQLite:
		h, err := sqlhost.Open(location, "")
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return &source{kind: kind, host: h, root: h.RootPath(), close: h.Close}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
}

// openTree opens location and loads the root's children. The returned
// func closes the tree and the source.
func openTree(ctx context.Context, s settings, location string) (*tree.Root, *source, func(), error) {
	src, err := openSource(s, location)
	if err != nil {
		return nil, nil, nil, err
	}
	opts, err := s.treeOptions()
	if err != nil {
		src.close()
		return nil, nil, nil, err
	}
	r, err := tree.New(src.host, src.root, opts)
	if err != nil {
		src.close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		_ = r.Close()
		_ = src.close()
	}
	if err := r.EnsureLoaded(ctx, r.Root()); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("load %s: %w", src.root, err)
	}
	return r, src, cleanup, nil
}

// resolvePath makes p absolute against the tree root.
func resolvePath(r *tree.Root, p string) string {
	if p == "" || p == "." {
		return r.Path()
	}
	if r.Style().IsAbs(p) {
		return r.Style().Clean(p)
	}
	return r.Style().Join(r.Path(), p)
}

// expandToDepth expands every folder shallower than depth below n.
func expandToDepth(ctx context.Context, r *tree.Root, n *tree.Node, depth int) error {
	for _, c := range n.Children() {
		if !c.IsFolder() || c.Depth() > depth {
			continue
		}
		if err := r.ExpandFolder(ctx, c, false); err != nil {
			return err
		}
		if err := expandToDepth(ctx, r, c, depth); err != nil {
			return err
		}
	}
	return nil
}

// expandPaths loads and expands each path, surfacing it.
func expandPaths(ctx context.Context, r *tree.Root, paths []string) error {
	for _, p := range paths {
		n, err := r.ForceLoadItemEntryAtPath(ctx, resolvePath(r, p))
		if err != nil {
			return fmt.Errorf("expand %s: %w", p, err)
		}
		f := n
		if !n.IsFolder() {
			if f = n.Parent(); f == nil || f.IsRoot() {
				continue
			}
		}
		if f.IsRoot() {
			continue
		}
		if err := r.ExpandFolder(ctx, f, true); err != nil {
			return fmt.Errorf("expand %s: %w", p, err)
		}
	}
	return nil
}
