package emueeprom

import (
	"testing"

	assertion "github.com/stretchr/testify/assert"
)

func TestScanFixedFindsNewestVersion(t *testing.T) {
	assert := assertion.New(t)
	H := uint32(4)
	page := make([]byte, 32)
	for i := range page {
		page[i] = 0xFF
	}
	copy(page[4:8], encodeFixedCell(9, 1))
	copy(page[8:12], encodeFixedCell(9, 2))
	copy(page[12:16], encodeFixedCell(9, 3))

	v, found := scanFixed(page, H, 9, 0)
	assert.True(found)
	assert.Equal(uint16(3), v)
}

func TestScanFixedMissingKey(t *testing.T) {
	assert := assertion.New(t)
	page := make([]byte, 16)
	for i := range page {
		page[i] = 0xFF
	}
	_, found := scanFixed(page, 4, 5, 0)
	assert.False(found)
}

func TestScanFixedHonorsTailHint(t *testing.T) {
	assert := assertion.New(t)
	H := uint32(4)
	page := make([]byte, 32)
	for i := range page {
		page[i] = 0xFF
	}
	copy(page[4:8], encodeFixedCell(9, 1))
	copy(page[8:12], encodeFixedCell(9, 2))

	// tailHint of 8 should only see the first cell.
	v, found := scanFixed(page, H, 9, 8)
	assert.True(found)
	assert.Equal(uint16(1), v)
}

func buildVarPage(size uint32, H uint32, entries [][2]interface{}) []byte {
	page := make([]byte, size)
	for i := range page {
		page[i] = 0xFF
	}
	off := H
	for _, kv := range entries {
		key := kv[0].(uint32)
		payload := kv[1].([]byte)
		entry := encodeVarEntry(key, payload, CompNone, false)
		copy(page[off:], entry)
		off += uint32(len(entry))
	}
	return page
}

func TestScanVarFindsNewestVersion(t *testing.T) {
	assert := assertion.New(t)
	H := uint32(4)
	page := buildVarPage(128, H, [][2]interface{}{
		{uint32(1), []byte("old")},
		{uint32(1), []byte("newer")},
	})
	meta, err := scanVar(page, H, 1, false, 0)
	assert.NoError(err)
	assert.NotNil(meta)
	assert.Equal([]byte("newer"), meta.storedPayload(page))
}

func TestScanVarSkipsBadCRCOnNonMatchingEntries(t *testing.T) {
	assert := assertion.New(t)
	H := uint32(4)
	firstPayload := []byte("target")
	page := buildVarPage(128, H, [][2]interface{}{
		{uint32(2), firstPayload},
		{uint32(3), []byte("unrelated")},
	})
	// Corrupt the payload of the second (most recent, non-matching) entry.
	secondEntryOffset := H + varEntrySize(len(firstPayload), CompNone)
	page[secondEntryOffset] ^= 0x01

	meta, err := scanVar(page, H, 2, false, 0)
	assert.NoError(err)
	assert.NotNil(meta)
	assert.Equal([]byte("target"), meta.storedPayload(page))
}

func TestScanVarMissingKey(t *testing.T) {
	assert := assertion.New(t)
	H := uint32(4)
	page := buildVarPage(128, H, [][2]interface{}{{uint32(1), []byte("x")}})
	meta, err := scanVar(page, H, 99, false, 0)
	assert.NoError(err)
	assert.Nil(meta)
}
