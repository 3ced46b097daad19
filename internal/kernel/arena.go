package kernel

// Handle addresses a process slot. A handle whose generation no longer
// matches its slot is stale and resolves to nothing.
type Handle struct {
	index      uint32
	generation uint32
}

type slot struct {
	generation uint32
	proc       *Process
}

// arena owns every process in the table.
type arena struct {
	slots []slot
	free  []uint32
	byID  map[string]Handle
	// order holds live handles in arrival order.
	order []Handle
}

func newArena() *arena {
	return &arena{byID: make(map[string]Handle)}
}

func (a *arena) insert(p *Process) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	a.slots[idx].proc = p
	h := Handle{index: idx, generation: a.slots[idx].generation}
	a.byID[p.ID] = h
	a.order = append(a.order, h)
	return h
}

func (a *arena) get(h Handle) (*Process, bool) {
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[h.index]
	if s.generation != h.generation || s.proc == nil {
		return nil, false
	}
	return s.proc, true
}

func (a *arena) lookup(id string) (*Process, bool) {
	h, ok := a.byID[id]
	if !ok {
		return nil, false
	}
	return a.get(h)
}

func (a *arena) handle(id string) (Handle, bool) {
	h, ok := a.byID[id]
	return h, ok
}

// release frees the slot and bumps its generation so outstanding handles
// go stale.
func (a *arena) release(id string) bool {
	h, ok := a.byID[id]
	if !ok {
		return false
	}
	delete(a.byID, id)
	a.slots[h.index].proc = nil
	a.slots[h.index].generation++
	a.free = append(a.free, h.index)
	for i, oh := range a.order {
		if oh == h {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// each visits live processes in arrival order.
func (a *arena) each(fn func(*Process)) {
	for _, h := range a.order {
		if p, ok := a.get(h); ok {
			fn(p)
		}
	}
}

func (a *arena) len() int {
	return len(a.byID)
}
