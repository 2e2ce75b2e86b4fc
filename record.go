package emueeprom

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	fixedCellSize   = 4
	fixedReservedKey = uint16(0xFFFF)
	varReservedKey  = uint32(0xFFFFFFFF)
	endMarkerSize   = 4
)

// padBytes returns pad(len) = (4 - len%4) % 4, the number of filler bytes
// needed to align a payload of n bytes up to a 4-byte boundary (§3).
func padBytes(n int) int {
	return (4 - n%4) % 4
}

// alignUp rounds offset up to the next multiple of align.
func alignUp(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// --- fixed mode cell (§6.4) ---------------------------------------------

// encodeFixedCell lays out a cell as value_lo value_hi key_lo key_hi, LE.
func encodeFixedCell(key, value uint16) []byte {
	buf := make([]byte, fixedCellSize)
	binary.LittleEndian.PutUint16(buf[0:2], value)
	binary.LittleEndian.PutUint16(buf[2:4], key)
	return buf
}

func decodeFixedCell(cell []byte) (key, value uint16) {
	value = binary.LittleEndian.Uint16(cell[0:2])
	key = binary.LittleEndian.Uint16(cell[2:4])
	return key, value
}

func isFixedCellFree(cell []byte) bool {
	for _, b := range cell {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// --- variable mode entry (§6.3) -----------------------------------------

// varHasCompTag reports whether the on-page layout carries the word-aligned
// compression tag field. It is a property of the store's configuration, not
// of any individual entry, so that entrySize stays statically computable.
func varHasCompTag(alg CompressionAlgorithm) bool {
	return alg != CompNone
}

// varEntrySize returns entry_size(len) for a stored (post-compression)
// payload of storedLen bytes, per §4.3/§6.3, plus the optional compression
// tag field. The tag, when present, occupies a full 4-byte word rather than
// a single byte so every field boundary — and in particular the end marker
// — stays 4-byte aligned; scanVar/findVarFrontier/transferVar all walk the
// page in aligned strides looking for that marker, so a stray odd-sized
// field would make it undetectable.
func varEntrySize(storedLen int, alg CompressionAlgorithm) uint32 {
	size := storedLen + padBytes(storedLen) + 2 /*crc*/ + 2 /*len*/ + 4 /*key*/ + endMarkerSize
	if varHasCompTag(alg) {
		size += 4
	}
	return uint32(size)
}

// encodeVarEntry serializes one entry in canonical low-to-high offset order:
// payload | padding | crc | len | key | [compTag, word-padded] | end marker.
// stored is the (possibly compressed) payload actually written to flash;
// compressed reports whether it is compressed, and is only meaningful when
// alg != CompNone.
func encodeVarEntry(key uint32, stored []byte, alg CompressionAlgorithm, compressed bool) []byte {
	pad := padBytes(len(stored))
	crc := xmodemCRC16(stored)

	buf := make([]byte, varEntrySize(len(stored), alg))
	off := 0
	copy(buf[off:], stored)
	off += len(stored)
	for i := 0; i < pad; i++ {
		buf[off+i] = 0xFF
	}
	off += pad
	binary.LittleEndian.PutUint16(buf[off:], crc)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(stored)))
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], key)
	off += 4
	if varHasCompTag(alg) {
		if compressed {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
		buf[off+1] = 0xFF
		buf[off+2] = 0xFF
		buf[off+3] = 0xFF
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], 0) // end marker
	off += 4
	_ = off
	return buf
}

// varEntryMeta is the result of parsing one committed entry by walking
// backwards from its end marker.
type varEntryMeta struct {
	key        uint32
	storedLen  uint16
	crc        uint16
	compressed bool
	// payloadStart/entryStart are absolute page offsets.
	payloadStart uint32
	entryStart   uint32
	entryEnd     uint32 // offset just past the end marker
}

// ErrDataError signals corruption discovered while parsing an on-page
// record: a length or offset that cannot be trusted.
var ErrDataError = errors.New("emueeprom: inconsistent on-page data")

// parseVarEntry decodes the entry whose 4-byte end marker occupies
// [endMarkerOffset, endMarkerOffset+4) inside page, walking backwards
// through [compTag], key, len/crc and payload+padding. pageFloor is the
// lowest legal offset (H, the header size); parsing past it is corruption.
func parseVarEntry(page []byte, endMarkerOffset uint32, hasCompTag bool, pageFloor uint32) (*varEntryMeta, error) {
	pos := endMarkerOffset
	if pos < pageFloor+4 {
		return nil, errors.Wrap(ErrDataError, "end marker below page floor")
	}

	var compressed bool
	if hasCompTag {
		if pos < pageFloor+4 {
			return nil, errors.Wrap(ErrDataError, "truncated compression tag")
		}
		pos -= 4
		compressed = page[pos] != 0
	}

	if pos < pageFloor+4 {
		return nil, errors.Wrap(ErrDataError, "truncated key field")
	}
	pos -= 4
	key := binary.LittleEndian.Uint32(page[pos : pos+4])

	if pos < pageFloor+4 {
		return nil, errors.Wrap(ErrDataError, "truncated len/crc field")
	}
	pos -= 4
	crc := binary.LittleEndian.Uint16(page[pos : pos+2])
	storedLen := binary.LittleEndian.Uint16(page[pos+2 : pos+4])

	region := int(storedLen) + padBytes(int(storedLen))
	if pos < pageFloor+uint32(region) {
		return nil, errors.Wrap(ErrDataError, "payload region underruns page floor")
	}
	pos -= uint32(region)

	return &varEntryMeta{
		key:          key,
		storedLen:    storedLen,
		crc:          crc,
		compressed:   compressed,
		payloadStart: pos,
		entryStart:   pos,
		entryEnd:     endMarkerOffset + endMarkerSize,
	}, nil
}

// verifyCRC recomputes the XMODEM CRC over the stored payload bytes and
// compares it to the value the entry claims.
func (m *varEntryMeta) verifyCRC(page []byte) bool {
	stored := page[m.payloadStart : m.payloadStart+uint32(m.storedLen)]
	return xmodemCRC16(stored) == m.crc
}

func (m *varEntryMeta) storedPayload(page []byte) []byte {
	return page[m.payloadStart : m.payloadStart+uint32(m.storedLen)]
}
