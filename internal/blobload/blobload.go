// Package blobload memory-maps FDT/DTB blob files so the CLI and HTTP
// front ends can hand fdt.Open a zero-copy view instead of reading the
// whole file onto the heap.
package blobload

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Blob is a memory-mapped .dtb file. Its Bytes view must not be retained
// past Close: Close unmaps the underlying pages.
type Blob struct {
	file *os.File
	data []byte
}

// Open maps path read-only. The returned Blob must be Closed by the
// caller; any fdt.Tree built from Bytes must be discarded first, since
// its property payloads are zero-copy views into these pages.
func Open(path string) (*Blob, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blobload: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blobload: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		file.Close()
		return nil, fmt.Errorf("blobload: %s is empty", path)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blobload: mmap %s: %w", path, err)
	}

	return &Blob{file: file, data: data}, nil
}

// Bytes returns the mapped blob contents. Valid until Close.
func (b *Blob) Bytes() []byte {
	return b.data
}

// Close unmaps the blob and closes the underlying file descriptor.
func (b *Blob) Close() error {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return fmt.Errorf("blobload: munmap: %w", err)
		}
		b.data = nil
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil {
			return fmt.Errorf("blobload: close: %w", err)
		}
		b.file = nil
	}
	return nil
}
