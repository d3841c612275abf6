// Package pathfx provides path utilities parameterized by a path style.
//
// The tree engine never touches the local filesystem through these helpers;
// they only manipulate the strings hosts hand back, so the style is chosen at
// runtime from the host instead of from GOOS.
package pathfx

import (
	"fmt"
	"path"
	"strings"
)

// Style selects the separator and volume rules used for path strings.
type Style uint8

const (
	Posix Style = iota
	Windows
)

// ParseStyle maps "posix" and "windows" (case-insensitive) to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "", "posix", "unix":
		return Posix, nil
	case "windows", "win32":
		return Windows, nil
	default:
		return Posix, fmt.Errorf("unknown path style %q", s)
	}
}

// String implements the Stringer interface for Style.
func (s Style) String() string {
	if s == Windows {
		return "windows"
	}
	return "posix"
}

// Sep returns the separator for the style.
func (s Style) Sep() string {
	if s == Windows {
		return `\`
	}
	return "/"
}

// toSlash splits a windows volume ("C:") off and converts separators.
func (s Style) toSlash(p string) (vol, rest string) {
	if s != Windows {
		return "", p
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' && isLetter(p[0]) {
		return p[:2], p[2:]
	}
	return "", p
}

func (s Style) fromSlash(vol, p string) string {
	if s != Windows {
		return p
	}
	return vol + strings.ReplaceAll(p, "/", `\`)
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Clean returns the shortest equivalent path.
func (s Style) Clean(p string) string {
	vol, rest := s.toSlash(p)
	if rest == "" {
		return s.fromSlash(vol, "")
	}
	return s.fromSlash(vol, path.Clean(rest))
}

// Join joins elements with the style separator and cleans the result.
// Empty elements are ignored.
func (s Style) Join(elem ...string) string {
	var vol string
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		v, rest := s.toSlash(e)
		if i == 0 {
			vol = v
		}
		if rest != "" {
			parts = append(parts, rest)
		}
	}
	if len(parts) == 0 {
		return s.fromSlash(vol, "")
	}
	return s.fromSlash(vol, path.Join(parts...))
}

// Dir returns all but the last element of p.
func (s Style) Dir(p string) string {
	vol, rest := s.toSlash(p)
	return s.fromSlash(vol, path.Dir(rest))
}

// Base returns the last element of p. Trailing separators are removed.
func (s Style) Base(p string) string {
	_, rest := s.toSlash(p)
	if rest == "" {
		return ""
	}
	b := path.Base(rest)
	if b == "/" || b == "." {
		return ""
	}
	return b
}

// Split returns the non-empty elements of p, without the volume.
func (s Style) Split(p string) []string {
	_, rest := s.toSlash(p)
	fields := strings.Split(rest, "/")
	out := fields[:0]
	for _, f := range fields {
		if f != "" && f != "." {
			out = append(out, f)
		}
	}
	return out
}

// Depth returns the number of elements in p.
func (s Style) Depth(p string) int {
	return len(s.Split(p))
}

// IsAbs reports whether p is rooted.
func (s Style) IsAbs(p string) bool {
	_, rest := s.toSlash(p)
	return strings.HasPrefix(rest, "/")
}

// Relative returns the elements leading from base to target, and false when
// target is not base itself or inside it.
func (s Style) Relative(base, target string) ([]string, bool) {
	bv, _ := s.toSlash(base)
	tv, _ := s.toSlash(target)
	if !strings.EqualFold(bv, tv) {
		return nil, false
	}
	b := s.Split(s.Clean(base))
	t := s.Split(s.Clean(target))
	if len(t) < len(b) {
		return nil, false
	}
	for i := range b {
		if !s.equal(b[i], t[i]) {
			return nil, false
		}
	}
	return t[len(b):], true
}

func (s Style) equal(a, b string) bool {
	if s == Windows {
		return strings.EqualFold(a, b)
	}
	return a == b
}
