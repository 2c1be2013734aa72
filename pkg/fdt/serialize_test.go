package fdt

import (
	"encoding/binary"
	"testing"
)

// buildCompatibleBlob builds two nodes each carrying a packed compatible
// list, for FindCompatible's multi-node scan (spec.md §8 scenario 4).
//
//	/ {
//	    uart0 { compatible = "ns16550a\0ns16550\0"; };
//	    uart1 { compatible = "ns16550a\0ns16550\0"; };
//	};
func buildCompatibleBlob() []byte {
	be := binary.BigEndian
	cell := func(v uint32) []byte {
		b := make([]byte, 4)
		be.PutUint32(b, v)
		return b
	}
	compatPayload := []byte("ns16550a\x00ns16550\x00")

	var structs []byte
	structs = append(structs, cell(tokenBeginNode)...)
	structs = append(structs, cell(0)...) // root name ""

	for _, name := range []string{"uart0", "uart1"} {
		structs = append(structs, cell(tokenBeginNode)...)
		nameBytes := append([]byte(name), 0)
		structs = append(structs, nameBytes...)
		for len(structs)%4 != 0 {
			structs = append(structs, 0)
		}
		structs = append(structs, cell(tokenProp)...)
		structs = append(structs, cell(uint32(len(compatPayload)))...)
		structs = append(structs, cell(0)...) // name_offset of "compatible"
		structs = append(structs, compatPayload...)
		for len(structs)%4 != 0 {
			structs = append(structs, 0)
		}
		structs = append(structs, cell(tokenEndNode)...)
	}
	structs = append(structs, cell(tokenEndNode)...) // end root
	structs = append(structs, cell(tokenEnd)...)

	strs := []byte("compatible\x00")

	const offStructs = fdtHeaderSize + reservedMemEntrySize
	offStrings := offStructs + len(structs)
	total := offStrings + len(strs)

	blob := make([]byte, total)
	be.PutUint32(blob[0:4], fdtMagic)
	be.PutUint32(blob[4:8], uint32(total))
	be.PutUint32(blob[8:12], uint32(offStructs))
	be.PutUint32(blob[12:16], uint32(offStrings))
	be.PutUint32(blob[16:20], fdtHeaderSize)
	be.PutUint32(blob[20:24], 17)
	be.PutUint32(blob[24:28], fdtMinSupportedVer)
	be.PutUint32(blob[32:36], uint32(len(strs)))
	be.PutUint32(blob[36:40], uint32(len(structs)))
	copy(blob[offStructs:], structs)
	copy(blob[offStrings:], strs)
	return blob
}

func TestFindCompatibleScansAllMatches(t *testing.T) {
	tree, err := Open(buildCompatibleBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first := tree.FindCompatible(InvalidNodeID, "ns16550")
	if first == InvalidNodeID {
		t.Fatal("expected a first match")
	}
	second := tree.FindCompatible(first, "ns16550")
	if second == InvalidNodeID || second == first {
		t.Fatalf("expected a distinct second match, got %d (first was %d)", second, first)
	}
	third := tree.FindCompatible(second, "ns16550")
	if third != InvalidNodeID {
		t.Fatalf("expected no third match, got node %d", third)
	}
}

func TestRoundTripSerialize(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	size, err := tree.FinaliseToBuffer(nil, 0)
	if err != nil {
		t.Fatalf("FinaliseToBuffer(sizing): %v", err)
	}
	if size == 0 {
		t.Fatal("expected non-zero required size")
	}

	// Too-small buffer: must report the size without writing.
	n, err := tree.FinaliseToBuffer(make([]byte, size-1), 0)
	if err != nil {
		t.Fatalf("FinaliseToBuffer(too small): %v", err)
	}
	if n != size {
		t.Fatalf("FinaliseToBuffer(too small) = %d, want %d", n, size)
	}

	buf := make([]byte, size)
	n, err = tree.FinaliseToBuffer(buf, 0xAB)
	if err != nil {
		t.Fatalf("FinaliseToBuffer(write): %v", err)
	}
	if n != size {
		t.Fatalf("FinaliseToBuffer(write) = %d, want %d", n, size)
	}

	reparsed, err := Open(buf, Config{})
	if err != nil {
		t.Fatalf("re-Open serialized blob: %v", err)
	}

	root := reparsed.Find("/")
	compat := reparsed.FindProp(root, "compatible")
	s, ok := reparsed.ReadPropString(compat, 0)
	if !ok || s != "vendor,chip" {
		t.Errorf("round-tripped compatible = %q, %v, want %q, true", s, ok, "vendor,chip")
	}

	child := reparsed.FindChild(root, "child@0")
	if child == InvalidNodeID {
		t.Fatal("round-tripped tree is missing child@0")
	}
	if reparsed.FindPhandle(1) != child {
		t.Error("round-tripped tree lost the phandle index entry")
	}
}

func TestReadPropValuesZeroLength(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{Writable: true, ConfigVersion: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")
	prop, err := tree.CreateProp(root, "empty")
	if err != nil {
		t.Fatalf("CreateProp: %v", err)
	}

	if n := tree.ReadPropValues(prop, 1, nil); n != 0 {
		t.Errorf("ReadPropValues(empty) count = %d, want 0", n)
	}
	if _, ok := tree.ReadPropString(prop, 0); ok {
		t.Error("ReadPropString(empty, 0) should miss")
	}
}

func TestPhandlePropertyNameMustMatchExactly(t *testing.T) {
	be := binary.BigEndian
	cell := func(v uint32) []byte {
		b := make([]byte, 4)
		be.PutUint32(b, v)
		return b
	}

	var structs []byte
	structs = append(structs, cell(tokenBeginNode)...)
	structs = append(structs, cell(0)...)
	structs = append(structs, cell(tokenProp)...)
	structs = append(structs, cell(4)...)
	structs = append(structs, cell(0)...) // name_offset of "phandles"
	structs = append(structs, cell(0)...) // value 0, same index as root itself
	structs = append(structs, cell(tokenEndNode)...)
	structs = append(structs, cell(tokenEnd)...)

	strs := []byte("phandles\x00")

	const offStructs = fdtHeaderSize + reservedMemEntrySize
	offStrings := offStructs + len(structs)
	total := offStrings + len(strs)
	blob := make([]byte, total)
	be.PutUint32(blob[0:4], fdtMagic)
	be.PutUint32(blob[4:8], uint32(total))
	be.PutUint32(blob[8:12], uint32(offStructs))
	be.PutUint32(blob[12:16], uint32(offStrings))
	be.PutUint32(blob[16:20], fdtHeaderSize)
	be.PutUint32(blob[20:24], 17)
	be.PutUint32(blob[24:28], fdtMinSupportedVer)
	be.PutUint32(blob[32:36], uint32(len(strs)))
	be.PutUint32(blob[36:40], uint32(len(structs)))
	copy(blob[offStructs:], structs)
	copy(blob[offStrings:], strs)

	tree, err := Open(blob, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// A property named "phandles" (longer than "phandle") must not be
	// mistaken for the phandle index hook: the root's slot 0 stays
	// unclaimed even though the property's value is 0.
	if tree.FindPhandle(0) != InvalidNodeID {
		t.Error("FindPhandle(0) should miss: \"phandles\" is not \"phandle\"")
	}
}

func TestAddrSizeCellsDefaultsAndInheritance(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")
	child := tree.FindChild(root, "child@0")

	if got := tree.AddrCellsFor(root); got != defaultAddrCells {
		t.Errorf("AddrCellsFor(root) = %d, want default %d", got, defaultAddrCells)
	}
	if got := tree.SizeCellsFor(root); got != defaultSizeCells {
		t.Errorf("SizeCellsFor(root) = %d, want default %d", got, defaultSizeCells)
	}
	if got := tree.AddrCellsOf(child); got != tree.AddrCellsFor(root) {
		t.Errorf("AddrCellsOf(child) = %d, want parent's %d", got, tree.AddrCellsFor(root))
	}
	if got := tree.SizeCellsOf(child); got != tree.SizeCellsFor(root) {
		t.Errorf("SizeCellsOf(child) = %d, want parent's %d", got, tree.SizeCellsFor(root))
	}
}

func TestStatProp(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")
	prop := tree.FindProp(root, "compatible")

	stat, ok := tree.StatProp(prop)
	if !ok {
		t.Fatal("StatProp failed")
	}
	if stat.Name != "compatible" {
		t.Errorf("StatProp.Name = %q, want %q", stat.Name, "compatible")
	}
	if stat.Length != len("vendor,chip\x00") {
		t.Errorf("StatProp.Length = %d, want %d", stat.Length, len("vendor,chip\x00"))
	}
	if _, ok := tree.StatProp(InvalidPropID); ok {
		t.Error("StatProp(InvalidPropID) should fail")
	}
}

func TestReadPropTripletsAndQuads(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{Writable: true, ConfigVersion: 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")

	triProp, err := tree.CreateProp(root, "ranges")
	if err != nil {
		t.Fatalf("CreateProp: %v", err)
	}
	wantTri := []TripletValue{{A: 1, B: 2, C: 3}, {A: 4, B: 5, C: 6}}
	if err := tree.WritePropTriplets(triProp, Triplet{A: 1, B: 1, C: 1}, wantTri); err != nil {
		t.Fatalf("WritePropTriplets: %v", err)
	}
	gotTri := make([]TripletValue, 2)
	if n := tree.ReadPropTriplets(triProp, Triplet{A: 1, B: 1, C: 1}, gotTri); n != 2 {
		t.Fatalf("ReadPropTriplets count = %d, want 2", n)
	}
	if gotTri[0] != wantTri[0] || gotTri[1] != wantTri[1] {
		t.Errorf("ReadPropTriplets = %+v, want %+v", gotTri, wantTri)
	}

	quadProp, err := tree.CreateProp(root, "quad")
	if err != nil {
		t.Fatalf("CreateProp: %v", err)
	}
	wantQuad := []QuadValue{{A: 1, B: 2, C: 3, D: 4}}
	if err := tree.WritePropQuads(quadProp, Quad{A: 1, B: 1, C: 1, D: 1}, wantQuad); err != nil {
		t.Fatalf("WritePropQuads: %v", err)
	}
	gotQuad := make([]QuadValue, 1)
	if n := tree.ReadPropQuads(quadProp, Quad{A: 1, B: 1, C: 1, D: 1}, gotQuad); n != 1 {
		t.Fatalf("ReadPropQuads count = %d, want 1", n)
	}
	if gotQuad[0] != wantQuad[0] {
		t.Errorf("ReadPropQuads = %+v, want %+v", gotQuad, wantQuad)
	}
}
