package fdt

// Pair, Triplet and Quad describe a fixed-width tuple layout for
// ReadPropPairs/Triplets/Quads: each component occupies A, B, ... cells.
type Pair struct{ A, B int }
type Triplet struct{ A, B, C int }
type Quad struct{ A, B, C, D int }

// PairValue, TripletValue and QuadValue are the decoded tuples themselves.
type PairValue struct{ A, B uint64 }
type TripletValue struct{ A, B, C uint64 }
type QuadValue struct{ A, B, C, D uint64 }

// ReadPropString treats prop's payload as a packed sequence of
// NUL-terminated strings and returns the index-th one (0-based), or
// ("", false) if index exceeds the string count or prop is invalid.
func (t *Tree) ReadPropString(id PropID, index int) (string, bool) {
	prop := t.Property(id)
	if id == InvalidPropID {
		return "", false
	}

	cur := 0
	start := 0
	for i := 0; i < len(prop.Payload); i++ {
		if prop.Payload[i] != 0 {
			continue
		}
		if cur == index {
			return string(prop.Payload[start:i]), true
		}
		cur++
		start = i + 1
	}
	return "", false
}

// ReadPropValues interprets prop's payload as an array of cellCount-cell
// big-endian integers. Element count is len(payload) / (cellCount*4).
// When out is nil, it returns the element count without writing. It
// writes min(count, len(out)) elements and returns the element count.
func (t *Tree) ReadPropValues(id PropID, cellCount int, out []uint64) int {
	if id == InvalidPropID || cellCount <= 0 {
		return 0
	}
	prop := t.Property(id)
	stride := cellCount * fdtCellSize
	count := len(prop.Payload) / stride
	if out == nil {
		return count
	}
	n := count
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = extractCells(prop.Payload[i*stride:], cellCount)
	}
	return count
}

// ReadPropPairs interprets prop's payload as an array of (A,B) tuples
// whose components occupy layout.A and layout.B consecutive cells
// respectively. Both layout fields must be non-zero.
func (t *Tree) ReadPropPairs(id PropID, layout Pair, out []PairValue) int {
	if id == InvalidPropID || layout.A == 0 || layout.B == 0 {
		return 0
	}
	prop := t.Property(id)
	stride := (layout.A + layout.B) * fdtCellSize
	count := len(prop.Payload) / stride
	if out == nil {
		return count
	}
	n := count
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		base := prop.Payload[i*stride:]
		out[i] = PairValue{
			A: extractCells(base, layout.A),
			B: extractCells(base[layout.A*fdtCellSize:], layout.B),
		}
	}
	return count
}

// ReadPropTriplets is ReadPropPairs' three-component counterpart.
func (t *Tree) ReadPropTriplets(id PropID, layout Triplet, out []TripletValue) int {
	if id == InvalidPropID || layout.A == 0 || layout.B == 0 || layout.C == 0 {
		return 0
	}
	prop := t.Property(id)
	stride := (layout.A + layout.B + layout.C) * fdtCellSize
	count := len(prop.Payload) / stride
	if out == nil {
		return count
	}
	n := count
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		base := prop.Payload[i*stride:]
		aEnd := layout.A * fdtCellSize
		bEnd := aEnd + layout.B*fdtCellSize
		out[i] = TripletValue{
			A: extractCells(base, layout.A),
			B: extractCells(base[aEnd:], layout.B),
			C: extractCells(base[bEnd:], layout.C),
		}
	}
	return count
}

// ReadPropQuads is ReadPropPairs' four-component counterpart.
func (t *Tree) ReadPropQuads(id PropID, layout Quad, out []QuadValue) int {
	if id == InvalidPropID || layout.A == 0 || layout.B == 0 || layout.C == 0 || layout.D == 0 {
		return 0
	}
	prop := t.Property(id)
	stride := (layout.A + layout.B + layout.C + layout.D) * fdtCellSize
	count := len(prop.Payload) / stride
	if out == nil {
		return count
	}
	n := count
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		base := prop.Payload[i*stride:]
		aEnd := layout.A * fdtCellSize
		bEnd := aEnd + layout.B*fdtCellSize
		cEnd := bEnd + layout.C*fdtCellSize
		out[i] = QuadValue{
			A: extractCells(base, layout.A),
			B: extractCells(base[aEnd:], layout.B),
			C: extractCells(base[bEnd:], layout.C),
			D: extractCells(base[cEnd:], layout.D),
		}
	}
	return count
}
