package fdt

const (
	fdtMagic            = 0xD00DFEED
	fdtMinSupportedVer  = 16
	fdtHeaderSize       = 40
	fdtCellSize         = 4
	rootNodeDisplayName = "/"
)

const (
	tokenBeginNode = 1
	tokenEndNode   = 2
	tokenProp      = 3
	tokenNop       = 4
	tokenEnd       = 9
)

// header mirrors struct fdt_header: 40 bytes, all fields big-endian.
type header struct {
	magic           uint32
	totalSize       uint32
	offStructs      uint32
	offStrings      uint32
	offMemRsvd      uint32
	version         uint32
	lastCompVersion uint32
	bootCPUID       uint32
	sizeStrings     uint32
	sizeStructs     uint32
}

func parseHeader(blob []byte) (header, error) {
	if len(blob) < fdtHeaderSize {
		return header{}, &Error{Kind: KindFormatInvalid, Message: "blob shorter than fdt_header"}
	}
	h := header{
		magic:           be32(blob[0:4]),
		totalSize:       be32(blob[4:8]),
		offStructs:      be32(blob[8:12]),
		offStrings:      be32(blob[12:16]),
		offMemRsvd:      be32(blob[16:20]),
		version:         be32(blob[20:24]),
		lastCompVersion: be32(blob[24:28]),
		bootCPUID:       be32(blob[28:32]),
		sizeStrings:     be32(blob[32:36]),
		sizeStructs:     be32(blob[36:40]),
	}
	return h, nil
}

// Tree is an explicit parser handle: every Tree owns its own arenas,
// blob views, and config/sink, so multiple independent trees can coexist.
//
// A Tree is not safe for concurrent use; callers must serialize access
// externally.
type Tree struct {
	structs []byte // the structure block view into blob
	strings []byte // the strings block view into blob

	arena *arena
	roots NodeID // head of the top-level sibling chain; InvalidNodeID if empty

	config Config
	sink   ErrorSink
}

// DefaultStaticBufferSize is 0, meaning "no static ceiling" — arenas grow
// to whatever the pre-pass sizing requires.
const DefaultStaticBufferSize = 0

// Open parses blob as an FDT/DTB image and returns a ready-to-query Tree.
// blob must remain valid for the lifetime of the returned Tree: property
// payloads are zero-copy views into it.
func Open(blob []byte, config Config) (*Tree, error) {
	SanitiseConfig(&config)

	t := &Tree{
		config: config,
		sink:   config.Sink,
		roots:  InvalidNodeID,
	}

	h, err := parseHeader(blob)
	if err != nil {
		return nil, t.report(KindFormatInvalid, "%v", err)
	}
	if h.magic != fdtMagic {
		return nil, t.report(KindFormatInvalid, "FDT has incorrect magic number: got 0x%08X", h.magic)
	}
	if h.version < fdtMinSupportedVer {
		return nil, t.report(KindUnsupported, "FDT version %d is below the minimum supported version %d", h.version, fdtMinSupportedVer)
	}

	structEnd := int(h.offStructs) + int(h.sizeStructs)
	stringEnd := int(h.offStrings) + int(h.sizeStrings)
	if structEnd > len(blob) || stringEnd > len(blob) {
		return nil, t.report(KindFormatInvalid, "structure/strings block extends past end of blob")
	}
	t.structs = blob[h.offStructs:structEnd]
	t.strings = blob[h.offStrings:stringEnd]

	nodeCount, propCount := sizeArena(t.structs)
	limit := config.StaticBufferSize
	a, ok := newArena(nodeCount, propCount, limit)
	if !ok {
		return nil, t.report(KindUnsupported, "too much data for statically allocated buffer (limit %d)", limit)
	}
	t.arena = a

	if err := t.buildTree(); err != nil {
		return nil, err
	}
	return t, nil
}

// buildTree runs the top-level loop: every BEGIN_NODE found scanning the
// structure block at top level becomes a root-level sibling, linked via
// NextSibling onto t.roots. Conformant blobs contain exactly one such
// node; tolerating multiples is a deliberate simplification.
func (t *Tree) buildTree() error {
	cellCount := len(t.structs) / fdtCellSize
	for i := 0; i < cellCount; {
		off := i * fdtCellSize
		if be32(t.structs[off:off+4]) != tokenBeginNode {
			i++
			continue
		}

		id, nextI, err := t.parseNode(i)
		if err != nil {
			// Non-recoverable for this subtree only; keep scanning
			// for further top-level roots.
			i = nextI
			continue
		}
		t.arena.nodes[id].NextSibling = t.roots
		t.roots = id
		i = nextI
	}
	return nil
}

// Node returns the Node record for id, or the zero Node if id is invalid.
func (t *Tree) Node(id NodeID) Node {
	if id == InvalidNodeID || int(id) >= len(t.arena.nodes) {
		return Node{Parent: InvalidNodeID, FirstChild: InvalidNodeID, NextSibling: InvalidNodeID, FirstProp: InvalidPropID}
	}
	return t.arena.nodes[id]
}

// Property returns the Property record for id, or the zero Property if id
// is invalid.
func (t *Tree) Property(id PropID) Property {
	if id == InvalidPropID || int(id) >= len(t.arena.props) {
		return Property{NextSibling: InvalidPropID}
	}
	return t.arena.props[id]
}

// Root returns the head of the top-level sibling chain (InvalidNodeID if
// the tree is empty after a failed or empty parse).
func (t *Tree) Root() NodeID {
	return t.roots
}
