package fdt

// checkWritable returns an error if the tree was not opened with
// Config.Writable set, gating the mutation API behind an explicit opt-in.
func (t *Tree) checkWritable() error {
	if !t.config.Writable {
		return t.report(KindCallerError, "mutation API called on a tree opened without Config.Writable")
	}
	return nil
}

// CreateSibling allocates a new node named name and links it immediately
// after node in node's sibling chain, erroring if a sibling with that
// name already exists.
func (t *Tree) CreateSibling(node NodeID, name string) (NodeID, error) {
	if err := t.checkWritable(); err != nil {
		return InvalidNodeID, err
	}
	if node == InvalidNodeID {
		return InvalidNodeID, t.report(KindCallerError, "cannot create sibling of an invalid node")
	}
	if name == "" {
		return InvalidNodeID, t.report(KindCallerError, "sibling cannot have an empty name")
	}
	first := t.roots
	if parent := t.arena.nodes[node].Parent; parent != InvalidNodeID {
		first = t.arena.nodes[parent].FirstChild
	}
	for scan := first; scan != InvalidNodeID; scan = t.arena.nodes[scan].NextSibling {
		if t.arena.nodes[scan].Name == name {
			return InvalidNodeID, t.report(KindCallerError, "node name %q already in use", name)
		}
	}

	id := t.arena.allocMutNode()
	n := t.arena.nodes[id]
	n.Name = t.arena.ownName(name)
	n.Parent = t.arena.nodes[node].Parent
	n.NextSibling = t.arena.nodes[node].NextSibling
	t.arena.nodes[id] = n
	t.arena.nodes[node].NextSibling = id
	return id, nil
}

// CreateChild allocates a new node named name and prepends it to node's
// child list, erroring if a child with that name already exists.
func (t *Tree) CreateChild(node NodeID, name string) (NodeID, error) {
	if err := t.checkWritable(); err != nil {
		return InvalidNodeID, err
	}
	if node == InvalidNodeID {
		return InvalidNodeID, t.report(KindCallerError, "cannot create child of an invalid node")
	}
	if name == "" {
		return InvalidNodeID, t.report(KindCallerError, "child cannot have an empty name")
	}
	for scan := t.arena.nodes[node].FirstChild; scan != InvalidNodeID; scan = t.arena.nodes[scan].NextSibling {
		if t.arena.nodes[scan].Name == name {
			return InvalidNodeID, t.report(KindCallerError, "node name %q already in use", name)
		}
	}

	id := t.arena.allocMutNode()
	n := t.arena.nodes[id]
	n.Name = t.arena.ownName(name)
	n.Parent = node
	n.NextSibling = t.arena.nodes[node].FirstChild
	t.arena.nodes[id] = n
	t.arena.nodes[node].FirstChild = id
	return id, nil
}

// CreateProp allocates a property named name with an empty payload and
// prepends it to node's property list.
func (t *Tree) CreateProp(node NodeID, name string) (PropID, error) {
	if err := t.checkWritable(); err != nil {
		return InvalidPropID, err
	}
	if node == InvalidNodeID {
		return InvalidPropID, t.report(KindCallerError, "cannot create property of an invalid node")
	}
	if name == "" {
		return InvalidPropID, t.report(KindCallerError, "property cannot have an empty name")
	}

	id := t.arena.allocMutProp()
	t.arena.props[id] = Property{
		Name:        t.arena.ownName(name),
		NextSibling: t.arena.nodes[node].FirstProp,
	}
	t.arena.nodes[node].FirstProp = id
	return id, nil
}

// FindOrCreateNode walks path from the tree root, creating any missing
// segment along the way via CreateChild. Segments are matched against
// full child names, as FindChild does (no '@' stripping), so a segment
// created by an earlier call is found again rather than re-created.
func (t *Tree) FindOrCreateNode(path string) (NodeID, error) {
	if err := t.checkWritable(); err != nil {
		return InvalidNodeID, err
	}

	cur := t.roots
	if cur == InvalidNodeID {
		return InvalidNodeID, t.report(KindCallerError, "tree has no root to anchor FindOrCreateNode")
	}

	for _, seg := range splitPathSegments(path) {
		if next := t.findChildInternal(cur, seg, false); next != InvalidNodeID {
			cur = next
			continue
		}
		next, err := t.CreateChild(cur, seg)
		if err != nil {
			return InvalidNodeID, err
		}
		cur = next
	}
	return cur, nil
}

// DestroyNode unlinks id from its parent's child list (or the top-level
// root chain, if id is a root). The node's own arena slot is never
// reclaimed individually — arenas are bump-only — and subsequent
// Find/FindChild no longer reach it. FindCompatible scans arena slots
// directly rather than following links, so it can still return it.
func (t *Tree) DestroyNode(id NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if id == InvalidNodeID {
		return t.report(KindCallerError, "cannot destroy an invalid node")
	}

	parent := t.arena.nodes[id].Parent
	if parent == InvalidNodeID {
		if t.roots == id {
			t.roots = t.arena.nodes[id].NextSibling
			return nil
		}
		prev := t.roots
		for prev != InvalidNodeID && t.arena.nodes[prev].NextSibling != id {
			prev = t.arena.nodes[prev].NextSibling
		}
		if prev == InvalidNodeID {
			return t.report(KindCallerError, "node not found in root chain")
		}
		n := t.arena.nodes[prev]
		n.NextSibling = t.arena.nodes[id].NextSibling
		t.arena.nodes[prev] = n
		return nil
	}

	if t.arena.nodes[parent].FirstChild == id {
		n := t.arena.nodes[parent]
		n.FirstChild = t.arena.nodes[id].NextSibling
		t.arena.nodes[parent] = n
		return nil
	}
	prev := t.arena.nodes[parent].FirstChild
	for prev != InvalidNodeID && t.arena.nodes[prev].NextSibling != id {
		prev = t.arena.nodes[prev].NextSibling
	}
	if prev == InvalidNodeID {
		return t.report(KindCallerError, "node not found in parent's child list")
	}
	n := t.arena.nodes[prev]
	n.NextSibling = t.arena.nodes[id].NextSibling
	t.arena.nodes[prev] = n
	return nil
}

// DestroyProp unlinks prop from node's property list.
func (t *Tree) DestroyProp(node NodeID, prop PropID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if node == InvalidNodeID || prop == InvalidPropID {
		return t.report(KindCallerError, "cannot destroy an invalid property")
	}

	if t.arena.nodes[node].FirstProp == prop {
		n := t.arena.nodes[node]
		n.FirstProp = t.arena.props[prop].NextSibling
		t.arena.nodes[node] = n
		return nil
	}
	scan := t.arena.nodes[node].FirstProp
	for scan != InvalidPropID && t.arena.props[scan].NextSibling != prop {
		scan = t.arena.props[scan].NextSibling
	}
	if scan == InvalidPropID {
		return t.report(KindCallerError, "property not found on node")
	}
	p := t.arena.props[scan]
	p.NextSibling = t.arena.props[prop].NextSibling
	t.arena.props[scan] = p
	return nil
}

func (t *Tree) setPayload(prop PropID, payload []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if prop == InvalidPropID {
		return t.report(KindCallerError, "cannot write to an invalid property")
	}
	p := t.arena.props[prop]
	p.Payload = payload
	t.arena.props[prop] = p
	return nil
}

// WritePropString packs str as prop's sole (and only) NUL-terminated
// payload entry.
func (t *Tree) WritePropString(prop PropID, str string) error {
	buf := make([]byte, len(str)+1)
	copy(buf, str)
	return t.setPayload(prop, buf)
}

// WritePropValues is WritePropString's cell-packed mirror image of
// ReadPropValues: it writes count cellCount-cell big-endian integers.
func (t *Tree) WritePropValues(prop PropID, cellCount int, vals []uint64) error {
	if cellCount <= 0 {
		return t.report(KindCallerError, "cellCount must be positive")
	}
	buf := make([]byte, len(vals)*cellCount*fdtCellSize)
	for i, v := range vals {
		putCells(buf[i*cellCount*fdtCellSize:], cellCount, v)
	}
	return t.setPayload(prop, buf)
}

// WritePropPairs is ReadPropPairs' mirror image.
func (t *Tree) WritePropPairs(prop PropID, layout Pair, vals []PairValue) error {
	if layout.A == 0 || layout.B == 0 {
		return t.report(KindCallerError, "pair layout fields must be non-zero")
	}
	stride := layout.A + layout.B
	buf := make([]byte, len(vals)*stride*fdtCellSize)
	for i, v := range vals {
		base := buf[i*stride*fdtCellSize:]
		putCells(base, layout.A, v.A)
		putCells(base[layout.A*fdtCellSize:], layout.B, v.B)
	}
	return t.setPayload(prop, buf)
}

// WritePropTriplets is ReadPropTriplets' mirror image.
func (t *Tree) WritePropTriplets(prop PropID, layout Triplet, vals []TripletValue) error {
	if layout.A == 0 || layout.B == 0 || layout.C == 0 {
		return t.report(KindCallerError, "triplet layout fields must be non-zero")
	}
	stride := layout.A + layout.B + layout.C
	buf := make([]byte, len(vals)*stride*fdtCellSize)
	for i, v := range vals {
		base := buf[i*stride*fdtCellSize:]
		aEnd := layout.A * fdtCellSize
		bEnd := aEnd + layout.B*fdtCellSize
		putCells(base, layout.A, v.A)
		putCells(base[aEnd:], layout.B, v.B)
		putCells(base[bEnd:], layout.C, v.C)
	}
	return t.setPayload(prop, buf)
}

// WritePropQuads is ReadPropQuads' mirror image.
func (t *Tree) WritePropQuads(prop PropID, layout Quad, vals []QuadValue) error {
	if layout.A == 0 || layout.B == 0 || layout.C == 0 || layout.D == 0 {
		return t.report(KindCallerError, "quad layout fields must be non-zero")
	}
	stride := layout.A + layout.B + layout.C + layout.D
	buf := make([]byte, len(vals)*stride*fdtCellSize)
	for i, v := range vals {
		base := buf[i*stride*fdtCellSize:]
		aEnd := layout.A * fdtCellSize
		bEnd := aEnd + layout.B*fdtCellSize
		cEnd := bEnd + layout.C*fdtCellSize
		putCells(base, layout.A, v.A)
		putCells(base[aEnd:], layout.B, v.B)
		putCells(base[bEnd:], layout.C, v.C)
		putCells(base[cEnd:], layout.D, v.D)
	}
	return t.setPayload(prop, buf)
}

// putCells is extractCells run in reverse: it packs v into count
// consecutive big-endian cells, most-significant cell first.
func putCells(cells []byte, count int, v uint64) {
	for i := 0; i < count; i++ {
		shift := uint(32 * (count - 1 - i))
		putBe32(cells[i*4:i*4+4], uint32(v>>shift))
	}
}
