package fdt

// NodeID indexes into a Tree's node arena. InvalidNodeID stands in for a
// null node reference.
type NodeID uint32

// PropID indexes into a Tree's property arena. InvalidPropID stands in for
// a null property reference.
type PropID uint32

// InvalidNodeID and InvalidPropID stand in for "no node"/"no property"
// throughout the query surface.
const (
	InvalidNodeID NodeID = ^NodeID(0)
	InvalidPropID PropID = ^PropID(0)
)

// Node is a vertex in the device tree. Children and siblings form singly
// linked index lists built by prepending, so iteration order is the
// reverse of parse order — an accepted consequence of the arena's
// bump-allocation/prepend design, consistent between parser and
// serializer so round-tripping is stable.
type Node struct {
	Name        string
	Parent      NodeID
	FirstChild  NodeID
	NextSibling NodeID
	FirstProp   PropID
}

// Property is a named payload attached to a Node. Payload is a view into
// the original blob for parsed properties, or an owned buffer for
// mutation-created properties; either way it is never copied on read.
type Property struct {
	Name        string
	Payload     []byte
	NextSibling PropID
}
