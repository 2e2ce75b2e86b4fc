package emueeprom

import (
	"testing"

	assertion "github.com/stretchr/testify/assert"
)

func TestXmodemCRC16KnownVector(t *testing.T) {
	assert := assertion.New(t)
	// The CRC-16/XMODEM check value for the canonical "123456789" vector.
	assert.Equal(uint16(0x31C3), xmodemCRC16([]byte("123456789")))
}

func TestXmodemCRC16Empty(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal(uint16(0), xmodemCRC16(nil))
}

func TestXmodemCRC16Deterministic(t *testing.T) {
	assert := assertion.New(t)
	data := []byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0x7E}
	assert.Equal(xmodemCRC16(data), xmodemCRC16(data))
}

func TestXmodemCRC16DetectsSingleBitFlip(t *testing.T) {
	assert := assertion.New(t)
	data := []byte("the quick brown fox")
	corrupt := append([]byte{}, data...)
	corrupt[3] ^= 0x01
	assert.NotEqual(xmodemCRC16(data), xmodemCRC16(corrupt))
}
