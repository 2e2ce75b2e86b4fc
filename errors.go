package emueeprom

import "github.com/pkg/errors"

// Internal errors are always constructed with github.com/pkg/errors so a
// stack trace and a wrapped cause travel with them for diagnostic logging,
// mirroring sys.go's ErrWriteByOther/flock pattern. They are never part of
// the public API: every public operation still returns one of the spec's
// closed result enums (FixedReadStatus, VarWriteStatus, ...); the wrapped
// error underneath is logged, not returned, except where noted.

// ErrNoPage means neither wear-leveling page decodes to a state the engine
// can read from or write to — recovery has not yet run, or has failed to
// leave the pages in a usable pair.
var ErrNoPage = errors.New("emueeprom: no active page")

// ErrReservedKey means the caller used the sentinel key/address that the
// on-page format reserves to mean "empty".
var ErrReservedKey = errors.New("emueeprom: reserved key")

// ErrPageFull means an entry's entry_size exceeds what the page can ever
// hold, even after compaction.
var ErrPageFull = errors.New("emueeprom: entry does not fit on a page")

// ErrEmptyPayload means a variable-mode write was given a nil or
// zero-length payload.
var ErrEmptyPayload = errors.New("emueeprom: empty payload")

// wrapf is a small convenience matching the teacher's errors.Wrap usage.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
