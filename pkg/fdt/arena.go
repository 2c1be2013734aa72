package fdt

// arena holds the node and property backing stores plus the phandle
// index, all sized by a single pre-pass over the structure block before
// any record is allocated. Nothing is freed individually during parsing;
// allocation heads only ever move forward for the arena's lifetime.
type arena struct {
	nodes     []Node
	nodeHead  int
	props     []Property
	propHead  int
	phandles  []NodeID
	nameArena []string // owned names from mutation, kept alive for the arena's lifetime
}

// sizeArena scans the structure block counting cells equal to the
// BEGIN_NODE and PROP token values, the pre-pass that determines how large
// the node/property arenas and the phandle index must be. Every aligned
// cell is checked, including name and payload cells, so the counts can
// exceed the real number of nodes and properties but never fall short.
func sizeArena(structs []byte) (nodeCount, propCount int) {
	for off := 0; off+4 <= len(structs); off += 4 {
		switch be32(structs[off : off+4]) {
		case tokenBeginNode:
			nodeCount++
		case tokenProp:
			propCount++
		}
	}
	return nodeCount, propCount
}

// newArena allocates the node arena, property arena and phandle index in
// one logical step from the pre-pass counts. limit, if non-zero, caps the
// combined record count to a fixed static-buffer ceiling; exceeding it is a
// fatal sizing failure, not a fallback to a larger allocation.
func newArena(nodeCount, propCount int, limit int) (*arena, bool) {
	if limit > 0 && nodeCount+propCount > limit {
		return nil, false
	}
	a := &arena{
		nodes:    make([]Node, nodeCount),
		props:    make([]Property, propCount),
		phandles: make([]NodeID, nodeCount),
	}
	for i := range a.phandles {
		a.phandles[i] = InvalidNodeID
	}
	return a, true
}

// allocNode returns the next free node slot without growing the arena,
// signaling exhaustion via the bool result. Used while parsing, where the
// arena is pre-sized to at least the structure block's BEGIN_NODE count and
// exhaustion should be unreachable for a well-formed blob. Slots the parse
// does not use stay zero-valued.
func (a *arena) allocNode() (NodeID, bool) {
	if a.nodeHead >= len(a.nodes) {
		return InvalidNodeID, false
	}
	id := NodeID(a.nodeHead)
	a.nodeHead++
	return id, true
}

func (a *arena) allocProp() (PropID, bool) {
	if a.propHead >= len(a.props) {
		return InvalidPropID, false
	}
	id := PropID(a.propHead)
	a.propHead++
	return id, true
}

// allocMutNode is allocNode's mutation-time counterpart: it grows the
// arena by appending instead of reporting exhaustion. Used by the
// mutation API, which runs after parsing has finished and so cannot rely
// on the parse-time pre-pass sizing. This is safe precisely because nodes
// are addressed by NodeID (an index), never by pointer, so a reallocating
// append never invalidates an existing reference. Either way the returned
// slot holds an unlinked node (all links InvalidNodeID/InvalidPropID).
func (a *arena) allocMutNode() NodeID {
	if id, ok := a.allocNode(); ok {
		a.nodes[id] = Node{Parent: InvalidNodeID, FirstChild: InvalidNodeID, NextSibling: InvalidNodeID, FirstProp: InvalidPropID}
		return id
	}
	a.nodes = append(a.nodes, Node{Parent: InvalidNodeID, FirstChild: InvalidNodeID, NextSibling: InvalidNodeID, FirstProp: InvalidPropID})
	id := NodeID(a.nodeHead)
	a.nodeHead++
	return id
}

// allocMutProp is allocProp's mutation-time counterpart; see allocMutNode.
func (a *arena) allocMutProp() PropID {
	if id, ok := a.allocProp(); ok {
		return id
	}
	a.props = append(a.props, Property{NextSibling: InvalidPropID})
	id := PropID(a.propHead)
	a.propHead++
	return id
}

// ownName copies s into the arena's owned-name list and returns it. Used
// by the mutation API, where names are never blob-backed.
func (a *arena) ownName(s string) string {
	owned := string([]byte(s))
	a.nameArena = append(a.nameArena, owned)
	return owned
}
