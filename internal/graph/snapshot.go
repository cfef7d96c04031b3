package graph

// Snapshot is a consistent, read-only copy of a Graph's nodes at one
// instant (spec.md §5: "external readers read a consistent snapshot
// between records"). It shares no state with the Graph it was taken
// from and is safe to read from any number of goroutines.
type Snapshot struct {
	nodes map[uint32]*Value
}

// Snapshot copies the current state of g into an independent Snapshot.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[uint32]*Value, len(g.nodes))
	for id, v := range g.nodes {
		cp[id] = v.clone()
	}
	return &Snapshot{nodes: cp}
}

// Get returns the node at id, or (nil, false) if unknown.
func (s *Snapshot) Get(id uint32) (*Value, bool) {
	v, ok := s.nodes[id]
	return v, ok
}

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Root returns the root OBJECT node (id 0), or (nil, false) if no
// snapshot has arrived yet.
func (s *Snapshot) Root() (*Value, bool) {
	return s.Get(Root)
}
