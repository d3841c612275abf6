package tree

import "strconv"

// ID identifies a node within one Root. The low 32 bits hold the slot index
// plus one and the high 32 bits hold the slot generation, so an ID taken from
// a disposed node never resolves to the node that later reuses its slot.
//
// The zero ID never refers to a node.
type ID uint64

func makeID(index, gen uint32) ID { return ID(uint64(gen)<<32 | uint64(index+1)) }

func (id ID) index() (uint32, bool) {
	lo := uint32(id)
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (id ID) generation() uint32 { return uint32(id >> 32) }

// String renders the id as "index.generation".
func (id ID) String() string {
	idx, ok := id.index()
	if !ok {
		return "nil"
	}
	return strconv.FormatUint(uint64(idx), 10) + "." + strconv.FormatUint(uint64(id.generation()), 10)
}

type slot struct {
	gen  uint32
	node *Node
}

// arena is a dense slot map from ID to live node.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) insert(n *Node) ID {
	var idx uint32
	if k := len(a.free); k > 0 {
		idx = a.free[k-1]
		a.free = a.free[:k-1]
	} else {
		a.slots = append(a.slots, slot{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.node = n
	a.live++
	return makeID(idx, s.gen)
}

func (a *arena) get(id ID) *Node {
	idx, ok := id.index()
	if !ok || int(idx) >= len(a.slots) {
		return nil
	}
	s := a.slots[idx]
	if s.gen != id.generation() {
		return nil
	}
	return s.node
}

// remove frees the slot for id and bumps its generation.
func (a *arena) remove(id ID) {
	idx, ok := id.index()
	if !ok || int(idx) >= len(a.slots) {
		return
	}
	s := &a.slots[idx]
	if s.gen != id.generation() || s.node == nil {
		return
	}
	s.node = nil
	s.gen++
	a.live--
	a.free = append(a.free, idx)
}

func (a *arena) len() int { return a.live }
