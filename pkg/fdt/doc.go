// Package fdt parses and serializes Flattened Device Tree (FDT/DTB) blobs.
//
// A DTB blob describes a tree of hardware nodes and properties as a
// big-endian token stream. Open builds a navigable in-memory Tree from such
// a blob; the Tree exposes path/phandle/compatible-string lookups, typed
// cell-value accessors, and a serializer that reconstructs a spec-conformant
// blob from the tree.
//
// # Memory model
//
// Node and property records live in two arenas sized by a pre-pass over the
// structure block, addressed by NodeID/PropID rather than pointers. Property
// payloads are zero-copy views into the original blob; the blob must remain
// valid for the lifetime of the Tree. Node and property names are copied
// into owned Go strings at parse time.
//
// # Example
//
//	tree, err := fdt.Open(blob, fdt.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root := tree.Find("/")
//	compat := tree.FindProp(root, "compatible")
//	fmt.Println(tree.ReadPropString(compat, 0))
package fdt
