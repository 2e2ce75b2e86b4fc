package emueeprom

import "github.com/pkg/errors"

// Page identifies one of the engine's logical regions.
type Page uint8

const (
	// PageA is the first of the two wear-leveling pages.
	PageA Page = iota
	// PageB is the second of the two wear-leveling pages.
	PageB
	// PageFactory is the optional read-only golden image used to seed
	// PageA on first-ever format. The engine never writes to it.
	PageFactory
)

func (p Page) String() string {
	switch p {
	case PageA:
		return "A"
	case PageB:
		return "B"
	case PageFactory:
		return "FACTORY"
	default:
		return "UNKNOWN"
	}
}

// other returns the opposite wear-leveling page. Calling it on PageFactory
// is a programmer error.
func (p Page) other() Page {
	switch p {
	case PageA:
		return PageB
	case PageB:
		return PageA
	default:
		panic("emueeprom: factory page has no counterpart")
	}
}

// ErrFactoryWrite is returned by backends when a write or erase is attempted
// against PageFactory; the contract forbids mutating the golden image.
var ErrFactoryWrite = errors.New("emueeprom: factory page is read-only")

// ErrMonotoneViolation is returned by backends when a write would raise a
// previously-programmed bit from 0 back to 1, which native flash cells
// cannot do without an erase.
var ErrMonotoneViolation = errors.New("emueeprom: write would raise a programmed bit")

// Backend is the narrow capability set a storage backend must provide. The
// engine performs no direct hardware I/O; it only ever calls through this
// contract. Backends are expected to be generic-dispatched (no virtual-call
// requirement), but an interface keeps the engine decoupled from any one
// implementation.
type Backend interface {
	// Init performs one-time preparation (opening files, mapping memory, ...).
	Init() error

	// ErasePage returns all bytes of page p to 0xFF. Must fail for PageFactory.
	ErasePage(p Page) error

	// Read is a pure, repeatable read of length bytes starting at offset.
	Read(p Page, offset uint32, length uint32) ([]byte, error)

	// Write programs data at offset. Implementations must honor the
	// monotone-bit rule: a write that would raise any bit from 0 to 1 fails
	// with ErrMonotoneViolation. Writes to PageFactory always fail with
	// ErrFactoryWrite.
	Write(p Page, offset uint32, data []byte) error
}

// TransactionalBackend is an optional extension for backends that batch
// writes within an alignment window. When a Backend does not implement it,
// every Write call is treated as self-committing.
type TransactionalBackend interface {
	Backend

	BeginWrite(p Page, offset uint32) error
	EndWrite(p Page) error
}

// beginWrite/endWrite bracket a logical append across possibly several
// Write calls, falling back to no-ops when the backend doesn't support
// transactional bracketing.
func beginWrite(b Backend, p Page, offset uint32) error {
	if tb, ok := b.(TransactionalBackend); ok {
		return tb.BeginWrite(p, offset)
	}
	return nil
}

func endWrite(b Backend, p Page) error {
	if tb, ok := b.(TransactionalBackend); ok {
		return tb.EndWrite(p)
	}
	return nil
}
