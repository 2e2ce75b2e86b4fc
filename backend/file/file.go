// Package file is a Backend that persists the two wear-leveling pages (and
// an optional factory page) in a single on-disk file, memory-mapped and
// advisory-locked the way sys.go locks and maps sidb's data file. It is
// the backend exercised by crash-simulation tests: closing the process
// without a clean shutdown and reopening the file must recover exactly the
// way a real NOR part would after power loss.
package file

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	emueeprom "emueeprom"
)

// Backend implements emueeprom.Backend over a single flock'd, mmap'd file
// laid out as [pageA][pageB][factory], each pageSize bytes. The factory
// region is omitted from the file when useFactory is false.
type Backend struct {
	path       string
	pageSize   uint32
	useFactory bool

	file *os.File
	data []byte // mmap of the whole file
}

// New constructs a file-backed backend rooted at path. The file is
// created on Init if it does not already exist.
func New(path string, pageSize uint32, useFactory bool) *Backend {
	return &Backend{path: path, pageSize: pageSize, useFactory: useFactory}
}

func (b *Backend) regionCount() int {
	if b.useFactory {
		return 3
	}
	return 2
}

func (b *Backend) size() int64 {
	return int64(b.pageSize) * int64(b.regionCount())
}

// Init opens (creating if necessary) and exclusively flocks the backing
// file, then mmaps it read-write. A freshly created file reads as all
// 0xFF, the same as erased NOR flash. Calling Init again on a backend
// that is already open and mapped is a no-op.
func (b *Backend) Init() error {
	if b.data != nil {
		return nil
	}
	f, err := os.OpenFile(b.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return errors.Wrap(err, "file: open")
	}
	b.file = f

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return errors.New("file: backing file is locked by another process")
		}
		return errors.Wrap(err, "file: flock")
	}

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "file: stat")
	}
	if info.Size() < b.size() {
		if err := growErased(f, b.size()); err != nil {
			return errors.Wrap(err, "file: grow")
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(b.size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "file: mmap")
	}
	b.data = data
	return nil
}

// growErased extends f to size n, filling the new tail with 0xFF so an
// unwritten region reads as erased flash rather than a sparse-file zero
// hole.
func growErased(f *os.File, n int64) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= n {
		return nil
	}
	fill := make([]byte, 4096)
	for i := range fill {
		fill[i] = 0xFF
	}
	if _, err := f.Seek(info.Size(), 0); err != nil {
		return err
	}
	remaining := n - info.Size()
	for remaining > 0 {
		chunk := int64(len(fill))
		if chunk > remaining {
			chunk = remaining
		}
		if _, err := f.Write(fill[:chunk]); err != nil {
			return err
		}
		remaining -= chunk
	}
	return f.Sync()
}

func (b *Backend) regionOffset(p emueeprom.Page) (int64, error) {
	switch p {
	case emueeprom.PageA:
		return 0, nil
	case emueeprom.PageB:
		return int64(b.pageSize), nil
	case emueeprom.PageFactory:
		if !b.useFactory {
			return 0, errors.New("file: factory page disabled")
		}
		return 2 * int64(b.pageSize), nil
	default:
		return 0, errors.Errorf("file: unknown page %v", p)
	}
}

func (b *Backend) ErasePage(p emueeprom.Page) error {
	if p == emueeprom.PageFactory {
		return emueeprom.ErrFactoryWrite
	}
	base, err := b.regionOffset(p)
	if err != nil {
		return err
	}
	region := b.data[base : base+int64(b.pageSize)]
	for i := range region {
		region[i] = 0xFF
	}
	return b.sync()
}

func (b *Backend) Read(p emueeprom.Page, offset, length uint32) ([]byte, error) {
	base, err := b.regionOffset(p)
	if err != nil {
		return nil, err
	}
	if offset+length > b.pageSize {
		return nil, errors.Errorf("file: read [%d,%d) out of range for page of size %d", offset, offset+length, b.pageSize)
	}
	out := make([]byte, length)
	copy(out, b.data[base+int64(offset):base+int64(offset)+int64(length)])
	return out, nil
}

// Write enforces the monotone-bit rule: raising any bit from 0 to 1
// without an erase is exactly what NOR flash cannot do, so callers that
// violate it get ErrMonotoneViolation rather than silently-wrong data.
func (b *Backend) Write(p emueeprom.Page, offset uint32, newData []byte) error {
	if p == emueeprom.PageFactory {
		return emueeprom.ErrFactoryWrite
	}
	base, err := b.regionOffset(p)
	if err != nil {
		return err
	}
	if offset+uint32(len(newData)) > b.pageSize {
		return errors.Errorf("file: write [%d,%d) out of range for page of size %d", offset, offset+uint32(len(newData)), b.pageSize)
	}
	region := b.data[base+int64(offset) : base+int64(offset)+int64(len(newData))]
	for i, nb := range newData {
		if region[i]&nb != nb {
			return emueeprom.ErrMonotoneViolation
		}
		region[i] = nb
	}
	return b.sync()
}

func (b *Backend) sync() error {
	return unix.Msync(b.data, unix.MS_SYNC)
}

// Close unmaps and unlocks the backing file. Not part of the Backend
// contract; callers that own a *Backend should defer this themselves.
func (b *Backend) Close() error {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return err
		}
		b.data = nil
	}
	if b.file != nil {
		_ = unix.Flock(int(b.file.Fd()), unix.LOCK_UN)
		return b.file.Close()
	}
	return nil
}
