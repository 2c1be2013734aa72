package fdt

const reservedMemEntrySize = 16 // one zeroed (base,length) uint64 pair

// sizeTree walks the tree computing the structure-block cell count and
// strings-block byte count FinaliseToBuffer will need, without writing
// anything. The strings budget starts at 1 (a leading zero byte, so
// offset 0 is a valid empty string).
func (t *Tree) sizeTree() (structCells, stringBytes int) {
	stringBytes = 1
	for n := t.roots; n != InvalidNodeID; n = t.arena.nodes[n].NextSibling {
		sc, sb := t.sizeNode(n)
		structCells += sc
		stringBytes += sb
	}
	return structCells, stringBytes
}

func (t *Tree) sizeNode(id NodeID) (structCells, stringBytes int) {
	n := t.arena.nodes[id]
	structCells = 2 // BEGIN_NODE + END_NODE tokens
	structCells += alignUp(len(n.Name)+1, fdtCellSize) / fdtCellSize

	for p := n.FirstProp; p != InvalidPropID; p = t.arena.props[p].NextSibling {
		prop := t.arena.props[p]
		structCells += 3 // PROP token + length + name_offset
		structCells += alignUp(len(prop.Payload), fdtCellSize) / fdtCellSize
		stringBytes += len(prop.Name) + 1
	}

	for c := n.FirstChild; c != InvalidNodeID; c = t.arena.nodes[c].NextSibling {
		sc, sb := t.sizeNode(c)
		structCells += sc
		stringBytes += sb
	}
	return structCells, stringBytes
}

// emitter tracks write progress through the pre-sized structs/strings
// buffers during emission.
type emitter struct {
	structBuf []byte
	stringBuf []byte
	structPtr int // cell index
	stringPtr int // byte index
	overflow  bool
}

func (e *emitter) putCell(v uint32) {
	off := e.structPtr * fdtCellSize
	if off+4 > len(e.structBuf) {
		e.overflow = true
		return
	}
	putBe32(e.structBuf[off:off+4], v)
	e.structPtr++
}

func (t *Tree) emitNode(id NodeID, e *emitter) {
	if e.overflow {
		return
	}
	n := t.arena.nodes[id]

	e.putCell(tokenBeginNode)

	nameOff := e.structPtr * fdtCellSize
	nameCells := alignUp(len(n.Name)+1, fdtCellSize) / fdtCellSize
	if nameOff+nameCells*fdtCellSize > len(e.structBuf) {
		e.overflow = true
		return
	}
	copy(e.structBuf[nameOff:], n.Name)
	e.structBuf[nameOff+len(n.Name)] = 0
	e.structPtr += nameCells

	for p := n.FirstProp; p != InvalidPropID; p = t.arena.props[p].NextSibling {
		t.emitProp(t.arena.props[p], e)
		if e.overflow {
			return
		}
	}
	for c := n.FirstChild; c != InvalidNodeID; c = t.arena.nodes[c].NextSibling {
		t.emitNode(c, e)
		if e.overflow {
			return
		}
	}

	e.putCell(tokenEndNode)
}

func (t *Tree) emitProp(prop Property, e *emitter) {
	nameOffset := e.stringPtr
	nameLen := len(prop.Name)
	if e.stringPtr+nameLen+1 > len(e.stringBuf) {
		e.overflow = true
		return
	}
	copy(e.stringBuf[e.stringPtr:], prop.Name)
	e.stringBuf[e.stringPtr+nameLen] = 0
	e.stringPtr += nameLen + 1

	dataCells := alignUp(len(prop.Payload), fdtCellSize) / fdtCellSize
	if e.structPtr+3+dataCells > len(e.structBuf)/fdtCellSize {
		e.overflow = true
		return
	}

	e.putCell(tokenProp)
	e.putCell(uint32(len(prop.Payload)))
	e.putCell(uint32(nameOffset))

	for i := 0; i < dataCells; i++ {
		base := i * fdtCellSize
		var cell uint32
		if base+fdtCellSize <= len(prop.Payload) {
			cell = be32(prop.Payload[base : base+fdtCellSize])
		} else {
			// Final partial cell: the remaining bytes are real
			// payload, padding bytes beyond the declared length
			// are zero.
			var buf [4]byte
			copy(buf[:], prop.Payload[base:])
			cell = be32(buf[:])
		}
		e.putCell(cell)
	}
}

// FinaliseToBuffer serializes the tree into buf. If buf is nil or too
// small to hold the serialized result, it returns the required byte count
// without writing anything. On success it returns the number of bytes
// written, equal to the required count. A mid-emission bounds failure,
// which correct sizing should make unreachable, returns
// ErrFinaliseOverflow instead.
func (t *Tree) FinaliseToBuffer(buf []byte, bootCPUID uint32) (int, error) {
	structCells, stringBytes := t.sizeTree()
	structBytes := structCells * fdtCellSize
	totalBytes := fdtHeaderSize + reservedMemEntrySize + structBytes + stringBytes

	if buf == nil || len(buf) < totalBytes {
		return totalBytes, nil
	}

	offStructs := fdtHeaderSize + reservedMemEntrySize
	offStrings := offStructs + structBytes

	putBe32(buf[0:4], fdtMagic)
	putBe32(buf[4:8], uint32(totalBytes))
	putBe32(buf[8:12], uint32(offStructs))
	putBe32(buf[12:16], uint32(offStrings))
	putBe32(buf[16:20], fdtHeaderSize)
	putBe32(buf[20:24], 17) // version
	putBe32(buf[24:28], fdtMinSupportedVer) // last_comp_version
	putBe32(buf[28:32], bootCPUID)
	putBe32(buf[32:36], uint32(stringBytes))
	putBe32(buf[36:40], uint32(structBytes))

	for i := 0; i < reservedMemEntrySize; i++ {
		buf[fdtHeaderSize+i] = 0
	}

	e := &emitter{
		structBuf: buf[offStructs:offStrings],
		stringBuf: buf[offStrings : offStrings+stringBytes],
	}
	e.stringBuf[0] = 0
	e.stringPtr = 1

	for n := t.roots; n != InvalidNodeID; n = t.arena.nodes[n].NextSibling {
		t.emitNode(n, e)
		if e.overflow {
			return 0, ErrFinaliseOverflow
		}
	}

	return totalBytes, nil
}
