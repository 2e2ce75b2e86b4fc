package emueeprom

import "encoding/binary"

// maxFixedAddress returns the exclusive upper bound of the fixed-mode key
// space, P/4 − 1. The spec adopts the strict "<" rule (§9): older
// generations checked this inconsistently.
func maxFixedAddress(pageSize uint32) uint32 {
	return pageSize/4 - 1
}

// appendFixedCell programs one 4-byte cell, bracketed by begin/end write if
// the backend supports it (§4.1, §4.6 step 4).
func appendFixedCell(b Backend, page Page, offset uint32, key, value uint16) error {
	data := encodeFixedCell(key, value)
	if err := beginWrite(b, page, offset); err != nil {
		return err
	}
	if err := b.Write(page, offset, data); err != nil {
		return err
	}
	return endWrite(b, page)
}

// findFreeFixedCell scans forward from H for the first still-erased cell.
// Returns len(page) if there is no room left.
func findFreeFixedCell(page []byte, H uint32) uint32 {
	for off := H; off+fixedCellSize <= uint32(len(page)); off += fixedCellSize {
		if isFixedCellFree(page[off : off+fixedCellSize]) {
			return off
		}
	}
	return uint32(len(page))
}

// appendVarEntry programs one already-serialized variable-mode entry.
func appendVarEntry(b Backend, page Page, offset uint32, entry []byte) error {
	if err := beginWrite(b, page, offset); err != nil {
		return err
	}
	if err := b.Write(page, offset, entry); err != nil {
		return err
	}
	return endWrite(b, page)
}

// findVarFrontier returns the offset at which the next variable-mode
// append should land: right after the newest committed entry, aligned up
// to align. An empty page's frontier is alignUp(H, align).
func findVarFrontier(page []byte, H uint32, hasCompTag bool, align uint32) (uint32, error) {
	pos := uint32(len(page))
	for pos > H {
		if pos < H+4 {
			break
		}
		word := binary.LittleEndian.Uint32(page[pos-4 : pos])
		if word == 0xFFFFFFFF {
			pos -= 4
			continue
		}
		if word != 0 {
			return 0, ErrDataError
		}
		return alignUp(pos, align), nil
	}
	return alignUp(H, align), nil
}
