// fdtdump is the idiomatic-Go analogue of smol-dtb's test.c: it loads a
// .dtb file and exercises the query surface against it from the command
// line, instead of the single hard-coded dtb_find("") + print_node walk
// the C test program performs.
package main

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fdt/internal/blobload"
	"fdt/pkg/fdt"
	"fdt/pkg/fdtlog"
)

var logLevel string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fdtdump",
		Short: "Inspect Flattened Device Tree (.dtb) blobs",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			ll, err := log.ParseLevel(logLevel)
			if err != nil {
				ll = log.WarnLevel
			}
			log.SetLevel(ll)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: false})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "Log level: debug, info, warning, error")

	root.AddCommand(newDumpCmd())
	root.AddCommand(newFindCmd())
	root.AddCommand(newPhandleCmd())
	root.AddCommand(newCompatibleCmd())
	root.AddCommand(newSerializeCmd())
	return root
}

func openTree(path string) (*blobload.Blob, *fdt.Tree, error) {
	blob, err := blobload.Open(path)
	if err != nil {
		return nil, nil, err
	}
	tree, err := fdt.Open(blob.Bytes(), fdt.Config{Sink: fdtlog.New(nil)})
	if err != nil {
		blob.Close()
		return nil, nil, err
	}
	return blob, tree, nil
}

func newDumpCmd() *cobra.Command {
	var indentWidth int
	cmd := &cobra.Command{
		Use:   "dump <file.dtb>",
		Short: "Print every node's name, sibling/child/property counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			blob, tree, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer blob.Close()

			for root := tree.Root(); root != fdt.InvalidNodeID; root = tree.Sibling(root) {
				printNode(tree, root, 0, indentWidth)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&indentWidth, "indent", 2, "spaces per tree depth level")
	return cmd
}

func printNode(tree *fdt.Tree, node fdt.NodeID, depth, indentWidth int) {
	stat, ok := tree.StatNode(node)
	if !ok {
		return
	}
	pad := ""
	for i := 0; i < depth*indentWidth; i++ {
		pad += " "
	}
	fmt.Printf("%s%s: %d siblings, %d children, %d properties\n", pad, stat.Name, stat.SiblingCount, stat.ChildCount, stat.PropCount)

	for child := tree.Child(node); child != fdt.InvalidNodeID; child = tree.Sibling(child) {
		printNode(tree, child, depth+1, indentWidth)
	}
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <file.dtb> <path>",
		Short: "Resolve a '/'-separated path, stripping @unit-address suffixes",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			blob, tree, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer blob.Close()

			node := tree.Find(args[1])
			if node == fdt.InvalidNodeID {
				return fmt.Errorf("no node found at path %q", args[1])
			}
			stat, _ := tree.StatNode(node)
			fmt.Println(stat.Name)
			return nil
		},
	}
}

func newPhandleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phandle <file.dtb> <handle>",
		Short: "Resolve a numeric phandle to its owning node",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			blob, tree, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer blob.Close()

			handle, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid phandle %q: %w", args[1], err)
			}
			node := tree.FindPhandle(uint32(handle))
			if node == fdt.InvalidNodeID {
				return fmt.Errorf("no node with phandle %d", handle)
			}
			stat, _ := tree.StatNode(node)
			fmt.Println(stat.Name)
			return nil
		},
	}
}

func newCompatibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compatible <file.dtb> <string>",
		Short: "List every node whose compatible property contains string",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			blob, tree, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer blob.Close()

			found := false
			for node := tree.FindCompatible(fdt.InvalidNodeID, args[1]); node != fdt.InvalidNodeID; node = tree.FindCompatible(node, args[1]) {
				stat, _ := tree.StatNode(node)
				fmt.Println(stat.Name)
				found = true
			}
			if !found {
				return fmt.Errorf("no node compatible with %q", args[1])
			}
			return nil
		},
	}
}

func newSerializeCmd() *cobra.Command {
	var bootCPUID uint32
	cmd := &cobra.Command{
		Use:   "serialize <file.dtb> <out.dtb>",
		Short: "Round-trip: parse a blob and re-emit a spec-conformant blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			blob, tree, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer blob.Close()

			size, err := tree.FinaliseToBuffer(nil, bootCPUID)
			if err != nil {
				return err
			}
			out := make([]byte, size)
			if _, err := tree.FinaliseToBuffer(out, bootCPUID); err != nil {
				return err
			}
			if err := os.WriteFile(args[1], out, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[1], err)
			}
			fmt.Printf("wrote %d bytes to %s\n", len(out), args[1])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&bootCPUID, "boot-cpu-id", 0, "value written to fdt_header.boot_cpu_id")
	return cmd
}
