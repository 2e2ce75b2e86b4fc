// Package memory is a dependency-free Backend for tests and for
// applications that want the wear-leveling and crash-recovery semantics
// without a real flash device underneath (§4.1's storage adapter contract).
//
// No ecosystem library earns a place here: the backend is nothing more
// than three byte slices and a monotone-write check, which is exactly
// what the standard library already expresses with no loss of clarity.
package memory

import (
	"github.com/pkg/errors"

	emueeprom "emueeprom"
)

// Backend implements emueeprom.Backend over in-process byte slices. It does
// not implement emueeprom.TransactionalBackend; every Write is
// self-committing.
type Backend struct {
	pageSize    uint32
	useFactory  bool
	factorySeed []byte

	pages   [2][]byte
	factory []byte
}

// New constructs an in-memory backend sized for pageSize bytes per page.
// When factorySeed is non-nil it is copied (and padded with 0xFF to
// pageSize) into the read-only factory page; pass nil to disable factory seeding.
func New(pageSize uint32, factorySeed []byte) *Backend {
	return &Backend{
		pageSize:    pageSize,
		useFactory:  factorySeed != nil,
		factorySeed: factorySeed,
	}
}

// Init allocates the erased pages on first call. Later calls leave the
// stored bytes untouched, so re-initializing a store keeps its data.
func (b *Backend) Init() error {
	if b.pages[0] != nil {
		return nil
	}
	b.pages[0] = freshErased(b.pageSize)
	b.pages[1] = freshErased(b.pageSize)
	b.factory = freshErased(b.pageSize)
	if b.useFactory {
		copy(b.factory, b.factorySeed)
	}
	return nil
}

func freshErased(n uint32) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}

func (b *Backend) pageBuf(p emueeprom.Page) ([]byte, error) {
	switch p {
	case emueeprom.PageA:
		return b.pages[0], nil
	case emueeprom.PageB:
		return b.pages[1], nil
	case emueeprom.PageFactory:
		return b.factory, nil
	default:
		return nil, errors.Errorf("memory: unknown page %v", p)
	}
}

func (b *Backend) ErasePage(p emueeprom.Page) error {
	if p == emueeprom.PageFactory {
		return emueeprom.ErrFactoryWrite
	}
	buf, err := b.pageBuf(p)
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = 0xFF
	}
	return nil
}

func (b *Backend) Read(p emueeprom.Page, offset, length uint32) ([]byte, error) {
	buf, err := b.pageBuf(p)
	if err != nil {
		return nil, err
	}
	if offset+length > uint32(len(buf)) {
		return nil, errors.Errorf("memory: read [%d,%d) out of range for page of size %d", offset, offset+length, len(buf))
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, nil
}

func (b *Backend) Write(p emueeprom.Page, offset uint32, data []byte) error {
	if p == emueeprom.PageFactory {
		return emueeprom.ErrFactoryWrite
	}
	buf, err := b.pageBuf(p)
	if err != nil {
		return err
	}
	if offset+uint32(len(data)) > uint32(len(buf)) {
		return errors.Errorf("memory: write [%d,%d) out of range for page of size %d", offset, offset+uint32(len(data)), len(buf))
	}
	for i, nb := range data {
		ob := buf[int(offset)+i]
		if ob&nb != nb {
			return emueeprom.ErrMonotoneViolation
		}
		buf[int(offset)+i] = nb
	}
	return nil
}
