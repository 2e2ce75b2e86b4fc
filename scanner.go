package emueeprom

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// scanFixed walks a fixed-mode page backwards from tailHint (or the page
// end, if zero) looking for the newest cell addressed by key (§4.4). The
// tail hint lets lookups skip the free tail instead of starting at P.
func scanFixed(page []byte, H uint32, key uint16, tailHint uint32) (value uint16, found bool) {
	start := uint32(len(page))
	if tailHint != 0 && tailHint <= start {
		start = tailHint
	}
	for off := start; off > H; off -= fixedCellSize {
		cell := page[off-fixedCellSize : off]
		if isFixedCellFree(cell) {
			continue
		}
		k, v := decodeFixedCell(cell)
		if k == key {
			return v, true
		}
	}
	return 0, false
}

// scanVar walks a variable-mode page backwards from tailHint looking for
// the newest entry addressed by key. Returns (nil, nil) if no entry for
// key exists. A non-nil error means the page is internally inconsistent
// (DATA_ERROR); it is never returned merely because of a CRC mismatch on a
// non-matching entry, since we step past those using entry_size(len)
// without verifying their CRC at all. The newest entry for key is returned
// without a CRC check either; VarStore.Read then reports INVALID_CRC for a
// bad one and does not fall back to an older entry for the same key.
func scanVar(page []byte, H uint32, key uint32, hasCompTag bool, tailHint uint32) (*varEntryMeta, error) {
	pos := uint32(len(page))
	if tailHint != 0 && tailHint <= pos {
		pos = tailHint
	}
	for pos > H {
		if pos < H+4 {
			break
		}
		word := binary.LittleEndian.Uint32(page[pos-4 : pos])
		if word == 0xFFFFFFFF {
			// Alignment filler or not-yet-written tail; keep walking down.
			pos -= 4
			continue
		}
		if word != 0 {
			return nil, errors.Wrap(ErrDataError, "scan found non-terminator word mid-page")
		}

		meta, err := parseVarEntry(page, pos-4, hasCompTag, H)
		if err != nil {
			return nil, err
		}
		if meta.key == key {
			return meta, nil
		}
		pos = meta.entryStart
	}
	return nil, nil
}
