package fdt

import (
	"encoding/binary"
	"testing"
)

// buildMinimalBlob assembles a small DTB image by hand:
//
//	/ {
//	    compatible = "vendor,chip";
//	    child@0 {
//	        phandle = <1>;
//	    };
//	};
func buildMinimalBlob() []byte {
	be := binary.BigEndian

	cell := func(v uint32) []byte {
		b := make([]byte, 4)
		be.PutUint32(b, v)
		return b
	}

	var structs []byte
	structs = append(structs, cell(tokenBeginNode)...)
	structs = append(structs, cell(0)...) // root name: ""

	structs = append(structs, cell(tokenProp)...)
	structs = append(structs, cell(12)...) // len("vendor,chip\x00")
	structs = append(structs, cell(0)...)  // name_offset of "compatible"
	structs = append(structs, []byte("vendor,chip\x00")...)

	structs = append(structs, cell(tokenBeginNode)...)
	structs = append(structs, []byte("child@0\x00")...)

	structs = append(structs, cell(tokenProp)...)
	structs = append(structs, cell(4)...)  // len(<1>)
	structs = append(structs, cell(11)...) // name_offset of "phandle"
	structs = append(structs, cell(1)...)

	structs = append(structs, cell(tokenEndNode)...) // end child
	structs = append(structs, cell(tokenEndNode)...) // end root
	structs = append(structs, cell(tokenEnd)...)

	strings := []byte("compatible\x00phandle\x00")

	const (
		offStructs = fdtHeaderSize + reservedMemEntrySize
	)
	offStrings := offStructs + len(structs)
	total := offStrings + len(strings)

	blob := make([]byte, total)
	be.PutUint32(blob[0:4], fdtMagic)
	be.PutUint32(blob[4:8], uint32(total))
	be.PutUint32(blob[8:12], uint32(offStructs))
	be.PutUint32(blob[12:16], uint32(offStrings))
	be.PutUint32(blob[16:20], fdtHeaderSize)
	be.PutUint32(blob[20:24], 17)
	be.PutUint32(blob[24:28], fdtMinSupportedVer)
	be.PutUint32(blob[28:32], 0)
	be.PutUint32(blob[32:36], uint32(len(strings)))
	be.PutUint32(blob[36:40], uint32(len(structs)))
	// fdtHeaderSize..offStructs is the (empty, zero-terminated) reserved
	// memory map, already zero from make().
	copy(blob[offStructs:], structs)
	copy(blob[offStrings:], strings)
	return blob
}

type recordingSink struct {
	messages []string
}

func (s *recordingSink) OnError(message string) {
	s.messages = append(s.messages, message)
}

func TestOpenMinimalBlob(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	root := tree.Find("/")
	if root == InvalidNodeID {
		t.Fatal("Find(\"/\") returned InvalidNodeID")
	}

	compat := tree.FindProp(root, "compatible")
	if compat == InvalidPropID {
		t.Fatal("compatible property not found")
	}
	s, ok := tree.ReadPropString(compat, 0)
	if !ok || s != "vendor,chip" {
		t.Errorf("ReadPropString = %q, %v, want %q, true", s, ok, "vendor,chip")
	}

	if !tree.IsCompatible(root, "vendor,chip") {
		t.Error("IsCompatible(root, \"vendor,chip\") = false")
	}
}

func TestFindChildAndPath(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")

	child := tree.FindChild(root, "child@0")
	if child == InvalidNodeID {
		t.Fatal("FindChild with exact name failed")
	}

	// Path segments are compared with the name before '@', so a segment
	// carrying the unit address does not match.
	viaPath := tree.Find("/child@0")
	if viaPath != InvalidNodeID {
		t.Errorf("Find(\"/child@0\") = %d, want %d", viaPath, InvalidNodeID)
	}

	// Path segments strip unit addresses, so the bare name matches.
	viaStripped := tree.Find("/child")
	if viaStripped != child {
		t.Errorf("Find(\"/child\") = %d, want %d", viaStripped, child)
	}
}

func TestFindPhandle(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")
	child := tree.FindChild(root, "child@0")

	found := tree.FindPhandle(1)
	if found != child {
		t.Errorf("FindPhandle(1) = %d, want %d", found, child)
	}
	if tree.FindPhandle(99) != InvalidNodeID {
		t.Error("FindPhandle(99) should miss")
	}
}

func TestStatNode(t *testing.T) {
	tree, err := Open(buildMinimalBlob(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := tree.Find("/")

	stat, ok := tree.StatNode(root)
	if !ok {
		t.Fatal("StatNode(root) failed")
	}
	if stat.Name != "/" {
		t.Errorf("root display name = %q, want \"/\"", stat.Name)
	}
	if stat.PropCount != 1 || stat.ChildCount != 1 {
		t.Errorf("root stat = %+v, want PropCount=1 ChildCount=1", stat)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	blob := buildMinimalBlob()
	blob[0] = 0

	sink := &recordingSink{}
	_, err := Open(blob, Config{Sink: sink})
	if err == nil {
		t.Fatal("expected error for corrupted magic")
	}
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindFormatInvalid {
		t.Errorf("err = %v, want KindFormatInvalid", err)
	}
	if len(sink.messages) != 1 {
		t.Errorf("expected exactly one sink message, got %d", len(sink.messages))
	}
}

func TestOpenRejectsOldVersion(t *testing.T) {
	blob := buildMinimalBlob()
	binary.BigEndian.PutUint32(blob[20:24], 1)

	_, err := Open(blob, Config{})
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindUnsupported {
		t.Errorf("err = %v, want KindUnsupported", err)
	}
}

func TestOpenRejectsStaticBufferTooSmall(t *testing.T) {
	_, err := Open(buildMinimalBlob(), Config{StaticBufferSize: 1})
	if err == nil {
		t.Fatal("expected error when static buffer is too small")
	}
	ferr, ok := err.(*Error)
	if !ok || ferr.Kind != KindUnsupported {
		t.Errorf("err = %v, want KindUnsupported", err)
	}
}
