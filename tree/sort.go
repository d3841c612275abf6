package tree

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tinialabs/react-birch-sub000/pkg/types"
)

// Comparator orders sibling records. It must be a total order.
type Comparator func(a, b types.Item) int

// DefaultComparator sorts folders before items, then by label bytes.
func DefaultComparator(a, b types.Item) int {
	if c := kindRank(a) - kindRank(b); c != 0 {
		return c
	}
	return strings.Compare(a.Label, b.Label)
}

func kindRank(it types.Item) int {
	if it.Type == types.TypeFolder {
		return 0
	}
	return 1
}

// CollatedComparator sorts folders before items, then by label using the
// collation rules of tag. Labels that collate equal fall back to byte order
// so the result stays total.
func CollatedComparator(tag language.Tag) Comparator {
	var mu sync.Mutex
	c := collate.New(tag, collate.IgnoreCase)
	return func(a, b types.Item) int {
		if k := kindRank(a) - kindRank(b); k != 0 {
			return k
		}
		mu.Lock()
		r := c.CompareString(a.Label, b.Label)
		mu.Unlock()
		if r != 0 {
			return r
		}
		return strings.Compare(a.Label, b.Label)
	}
}
