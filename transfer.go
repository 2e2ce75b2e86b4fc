package emueeprom

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// keySet is the bounded "transferred-key" set from §4.7/§9: a compact
// record of which keys have already been emitted to the destination page
// during a transfer, so an older version of the same key is skipped. It is
// cleared at the end of every transfer and never grows past the number of
// distinct keys a single page can hold.
type keySet[K comparable] struct {
	seen map[K]struct{}
}

func newKeySet[K comparable](capacityHint int) *keySet[K] {
	return &keySet[K]{seen: make(map[K]struct{}, capacityHint)}
}

func (s *keySet[K]) mark(k K)      { s.seen[k] = struct{}{} }
func (s *keySet[K]) has(k K) bool  { _, ok := s.seen[k]; return ok }

// finalizeTransfer marks dst ACTIVE and returns src to FORMATTED, in the
// order appropriate for the page's header encoding (§4.7 step 5).
//
// Latched encoding marks src FULL, then dst ACTIVE, then erases src: a
// crash between any two of those steps leaves a state pair the recovery
// table resolves without data loss (FULL|RECEIVE, FULL|ACTIVE, ...).
//
// Simple encoding has no FULL state and its header word lattice makes
// "erase src, then activate dst" the only crash-safe order: activating dst
// before erasing src would risk an ACTIVE/ACTIVE pair on crash, which
// recovery cannot disambiguate and must format away. This mirrors the
// original EmuEEPROM::pageTransfer, which erases the old page before
// writing VALID to the new one.
func (c *engineCore) finalizeTransfer(src, dst Page) error {
	if c.opts.HeaderEncoding == EncodingLatched {
		if err := c.setPageState(src, StateFull); err != nil {
			return err
		}
		if err := c.setPageState(dst, StateActive); err != nil {
			return err
		}
		if err := c.backend.ErasePage(src); err != nil {
			return err
		}
		return c.setPageState(src, StateFormatted)
	}

	if err := c.backend.ErasePage(src); err != nil {
		return err
	}
	if err := c.setPageState(src, StateFormatted); err != nil {
		return err
	}
	return c.setPageState(dst, StateActive)
}

// transferFixedFromCache dumps the (already-correct) RAM cache to dst
// instead of re-scanning src. This is the only way a cache-only write
// survives a transfer at all, since it was never reflected on flash.
// Safe to use any time the cache is known to be built and accurate, i.e.
// any transfer that happens after Init() has completed.
func (c *engineCore) transferFixedFromCache(cache *fixedCache, src, dst Page) error {
	c.log.WithFields(logFields(src, dst)).Debug("page transfer: dumping cache")

	if err := c.setPageState(dst, StateReceive); err != nil {
		return err
	}

	writeOff := c.header.size()
	var appendErr error
	cache.forEach(func(key, value uint16) {
		if appendErr != nil {
			return
		}
		if err := appendFixedCell(c.backend, dst, writeOff, key, value); err != nil {
			appendErr = err
			return
		}
		writeOff += fixedCellSize
	})
	if appendErr != nil {
		return appendErr
	}

	if err := c.finalizeTransfer(src, dst); err != nil {
		return err
	}
	c.ws = pageWriteState{page: dst, offset: writeOff, valid: true}
	return nil
}

// transferFixedFromScan walks src tail-to-head emitting each key's newest
// live cell to dst exactly once. Used during recovery, before the cache
// exists.
func (c *engineCore) transferFixedFromScan(src, dst Page) error {
	c.log.WithFields(logFields(src, dst)).Debug("page transfer: scanning source")

	if err := c.setPageState(dst, StateReceive); err != nil {
		return err
	}

	srcPage, err := c.readPage(src)
	if err != nil {
		return err
	}

	H := c.header.size()
	seen := newKeySet[uint16](int(maxFixedAddress(c.opts.PageSize)))
	writeOff := H

	for off := uint32(len(srcPage)); off > H; off -= fixedCellSize {
		cell := srcPage[off-fixedCellSize : off]
		if isFixedCellFree(cell) {
			continue
		}
		key, value := decodeFixedCell(cell)
		if key == fixedReservedKey || seen.has(key) {
			continue
		}
		seen.mark(key)
		if err := appendFixedCell(c.backend, dst, writeOff, key, value); err != nil {
			return err
		}
		writeOff += fixedCellSize
	}

	if err := c.finalizeTransfer(src, dst); err != nil {
		return err
	}
	c.ws = pageWriteState{page: dst, offset: writeOff, valid: true}
	return nil
}

// transferVar walks src tail-to-head emitting each key's newest live entry
// to dst exactly once, verbatim (no decompress/recompress round trip: an
// entry's bytes are self-contained and position-independent, so copying
// them preserves a bad CRC exactly as it was, rather than silently
// "fixing" or dropping corruption during compaction).
func (c *engineCore) transferVar(src, dst Page) error {
	c.log.WithFields(logFields(src, dst)).Debug("page transfer: scanning source")

	if err := c.setPageState(dst, StateReceive); err != nil {
		return err
	}

	srcPage, err := c.readPage(src)
	if err != nil {
		return err
	}

	H := c.header.size()
	align := c.opts.WriteAlignment
	hasTag := varHasCompTag(c.opts.Compression)
	seen := newKeySet[uint32](0)
	writeOff := alignUp(H, align)

	pos := uint32(len(srcPage))
	for pos > H {
		if pos < H+4 {
			break
		}
		word := binary.LittleEndian.Uint32(srcPage[pos-4 : pos])
		if word == 0xFFFFFFFF {
			pos -= 4
			continue
		}
		if word != 0 {
			return errors.Wrap(ErrDataError, "transfer scan found non-terminator word mid-page")
		}

		meta, err := parseVarEntry(srcPage, pos-4, hasTag, H)
		if err != nil {
			return err
		}

		if meta.key != varReservedKey && !seen.has(meta.key) {
			seen.mark(meta.key)
			entryBytes := srcPage[meta.entryStart:meta.entryEnd]
			if err := appendVarEntry(c.backend, dst, writeOff, entryBytes); err != nil {
				return err
			}
			writeOff = alignUp(writeOff+uint32(len(entryBytes)), align)
		}
		pos = meta.entryStart
	}

	if err := c.finalizeTransfer(src, dst); err != nil {
		return err
	}
	c.ws = pageWriteState{page: dst, offset: writeOff, valid: true}
	return nil
}

func logFields(src, dst Page) map[string]interface{} {
	return map[string]interface{}{"src": src.String(), "dst": dst.String()}
}
