package fdt

// Sibling, Child and Parent are trivial index accessors over the tree
// links.
func (t *Tree) Sibling(id NodeID) NodeID {
	if id == InvalidNodeID {
		return InvalidNodeID
	}
	return t.arena.nodes[id].NextSibling
}

func (t *Tree) Child(id NodeID) NodeID {
	if id == InvalidNodeID {
		return InvalidNodeID
	}
	return t.arena.nodes[id].FirstChild
}

func (t *Tree) Parent(id NodeID) NodeID {
	if id == InvalidNodeID {
		return InvalidNodeID
	}
	return t.arena.nodes[id].Parent
}

// Prop returns the i-th property (0-based) in node id's property list, or
// InvalidPropID if i is out of range.
func (t *Tree) Prop(id NodeID, i int) PropID {
	if id == InvalidNodeID {
		return InvalidPropID
	}
	p := t.arena.nodes[id].FirstProp
	for p != InvalidPropID && i > 0 {
		p = t.arena.props[p].NextSibling
		i--
	}
	if i > 0 {
		return InvalidPropID
	}
	return p
}

// nameBeforeAt returns the portion of name before its first '@', or the
// whole name if there is none — the unit-address-stripping comparison
// Find uses for path segments.
func nameBeforeAt(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '@' {
			return name[:i]
		}
	}
	return name
}

// findChildInternal scans start's children for one whose comparison name
// (the part before any '@' when stripAt is set, else the full name)
// equals segment exactly.
func (t *Tree) findChildInternal(start NodeID, segment string, stripAt bool) NodeID {
	if start == InvalidNodeID {
		return InvalidNodeID
	}
	for child := t.arena.nodes[start].FirstChild; child != InvalidNodeID; child = t.arena.nodes[child].NextSibling {
		name := t.arena.nodes[child].Name
		if stripAt {
			name = nameBeforeAt(name)
		}
		if name == segment {
			return child
		}
	}
	return InvalidNodeID
}

// Find resolves a '/'-separated path against every root-level sibling.
// Leading and repeated slashes are collapsed; a trailing empty segment
// returns the node reached so far. Each segment matches a child's name
// up to (not including) any '@' unit-address separator.
func (t *Tree) Find(path string) NodeID {
	segments := splitPathSegments(path)
	for scan := t.roots; scan != InvalidNodeID; scan = t.arena.nodes[scan].NextSibling {
		cur := scan
		ok := true
		for _, seg := range segments {
			cur = t.findChildInternal(cur, seg, true)
			if cur == InvalidNodeID {
				ok = false
				break
			}
		}
		if ok {
			return cur
		}
	}
	return InvalidNodeID
}

// FindChild requires a full, untruncated name match (no '@' stripping),
// unlike Find's path segments.
func (t *Tree) FindChild(start NodeID, name string) NodeID {
	return t.findChildInternal(start, name, false)
}

// FindProp does a linear scan of node's property list for an exact-length
// name match.
func (t *Tree) FindProp(node NodeID, name string) PropID {
	if node == InvalidNodeID {
		return InvalidPropID
	}
	for p := t.arena.nodes[node].FirstProp; p != InvalidPropID; p = t.arena.props[p].NextSibling {
		if t.arena.props[p].Name == name {
			return p
		}
	}
	return InvalidPropID
}

// FindCompatible scans the allocated slots of the node arena starting just
// after start (or from the beginning if start is InvalidNodeID) for the
// first node whose "compatible" property contains s as one of its packed
// NUL-separated entries.
func (t *Tree) FindCompatible(start NodeID, s string) NodeID {
	begin := 0
	if start != InvalidNodeID {
		begin = int(start) + 1
	}
	for i := begin; i < t.arena.nodeHead; i++ {
		id := NodeID(i)
		if t.IsCompatible(id, s) {
			return id
		}
	}
	return InvalidNodeID
}

// IsCompatible reports whether node's "compatible" property contains s as
// one of its packed NUL-separated entries. It is a direct wrapper over the
// same scan FindCompatible already performs.
func (t *Tree) IsCompatible(node NodeID, s string) bool {
	compat := t.FindProp(node, "compatible")
	if compat == InvalidPropID {
		return false
	}
	for i := 0; ; i++ {
		entry, ok := t.ReadPropString(compat, i)
		if !ok {
			return false
		}
		if entry == s {
			return true
		}
	}
}

// FindPhandle does an O(1) lookup in the phandle index. Handles beyond the
// index's range always miss; a linear-scan fallback would catch them but
// isn't implemented here.
func (t *Tree) FindPhandle(handle uint32) NodeID {
	if int(handle) < len(t.arena.phandles) {
		return t.arena.phandles[handle]
	}
	return InvalidNodeID
}

// NodeStat is the result of StatNode: name, and counts inclusive of self
// where noted.
type NodeStat struct {
	Name         string
	PropCount    int
	ChildCount   int
	SiblingCount int
}

// StatNode reports node's display name (the synthetic root's empty name
// is reported as "/") plus its property count, child count, and sibling
// count — the full length of the parent's child list, inclusive of node
// itself.
func (t *Tree) StatNode(node NodeID) (NodeStat, bool) {
	if node == InvalidNodeID {
		return NodeStat{}, false
	}
	n := t.arena.nodes[node]

	name := n.Name
	if name == "" {
		name = rootNodeDisplayName
	}

	stat := NodeStat{Name: name}
	for p := n.FirstProp; p != InvalidPropID; p = t.arena.props[p].NextSibling {
		stat.PropCount++
	}
	for c := n.FirstChild; c != InvalidNodeID; c = t.arena.nodes[c].NextSibling {
		stat.ChildCount++
	}
	if n.Parent != InvalidNodeID {
		for s := t.arena.nodes[n.Parent].FirstChild; s != InvalidNodeID; s = t.arena.nodes[s].NextSibling {
			stat.SiblingCount++
		}
	}
	return stat, true
}

// PropStat is the result of StatProp.
type PropStat struct {
	Name   string
	Data   []byte
	Length int
}

// StatProp reports a property's name, payload view, and payload length.
func (t *Tree) StatProp(id PropID) (PropStat, bool) {
	if id == InvalidPropID {
		return PropStat{}, false
	}
	p := t.arena.props[id]
	return PropStat{Name: p.Name, Data: p.Payload, Length: len(p.Payload)}, true
}

const (
	defaultAddrCells = 2
	defaultSizeCells = 1
)

// cellsProp reads a single-cell integer property (e.g. #address-cells),
// returning fallback if the property is absent.
func (t *Tree) cellsProp(node NodeID, name string, fallback int) int {
	p := t.FindProp(node, name)
	if p == InvalidPropID {
		return fallback
	}
	vals := make([]uint64, 1)
	if t.ReadPropValues(p, 1, vals) != 1 {
		return fallback
	}
	return int(vals[0])
}

// AddrCellsFor returns node's own #address-cells (default 2 if absent).
// This is a structural walk over cell-width metadata, not an
// interpretation of what "reg" or "ranges" means.
func (t *Tree) AddrCellsFor(node NodeID) int {
	return t.cellsProp(node, "#address-cells", defaultAddrCells)
}

// SizeCellsFor returns node's own #size-cells (default 1 if absent).
func (t *Tree) SizeCellsFor(node NodeID) int {
	return t.cellsProp(node, "#size-cells", defaultSizeCells)
}

// AddrCellsOf returns the #address-cells declared by node's parent — the
// cell width that governs node's own reg/ranges entries.
func (t *Tree) AddrCellsOf(node NodeID) int {
	if node == InvalidNodeID {
		return defaultAddrCells
	}
	return t.AddrCellsFor(t.arena.nodes[node].Parent)
}

// SizeCellsOf returns the #size-cells declared by node's parent.
func (t *Tree) SizeCellsOf(node NodeID) int {
	if node == InvalidNodeID {
		return defaultSizeCells
	}
	return t.SizeCellsFor(t.arena.nodes[node].Parent)
}
