package memory

import (
	"testing"

	assertion "github.com/stretchr/testify/assert"

	emueeprom "emueeprom"
)

func TestInitFillsPagesWithErasedBytes(t *testing.T) {
	assert := assertion.New(t)
	b := New(64, nil)
	assert.NoError(b.Init())

	raw, err := b.Read(emueeprom.PageA, 0, 64)
	assert.NoError(err)
	for _, v := range raw {
		assert.Equal(byte(0xFF), v)
	}
}

func TestWriteThenRead(t *testing.T) {
	assert := assertion.New(t)
	b := New(64, nil)
	assert.NoError(b.Init())

	assert.NoError(b.Write(emueeprom.PageA, 0, []byte{0x00, 0x00, 0x00, 0x00}))
	raw, err := b.Read(emueeprom.PageA, 0, 4)
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0x00, 0x00, 0x00}, raw)
}

func TestWriteRejectsRaisingAProgrammedBit(t *testing.T) {
	assert := assertion.New(t)
	b := New(64, nil)
	assert.NoError(b.Init())

	assert.NoError(b.Write(emueeprom.PageA, 0, []byte{0x00}))
	err := b.Write(emueeprom.PageA, 0, []byte{0xFF})
	assert.ErrorIs(err, emueeprom.ErrMonotoneViolation)
}

func TestErasePageResetsToAllOnes(t *testing.T) {
	assert := assertion.New(t)
	b := New(64, nil)
	assert.NoError(b.Init())

	assert.NoError(b.Write(emueeprom.PageA, 0, []byte{0x00, 0x00}))
	assert.NoError(b.ErasePage(emueeprom.PageA))

	raw, err := b.Read(emueeprom.PageA, 0, 2)
	assert.NoError(err)
	assert.Equal([]byte{0xFF, 0xFF}, raw)
}

func TestFactoryPageIsReadOnly(t *testing.T) {
	assert := assertion.New(t)
	seed := make([]byte, 64)
	b := New(64, seed)
	assert.NoError(b.Init())

	err := b.Write(emueeprom.PageFactory, 0, []byte{0x00})
	assert.ErrorIs(err, emueeprom.ErrFactoryWrite)
	err = b.ErasePage(emueeprom.PageFactory)
	assert.ErrorIs(err, emueeprom.ErrFactoryWrite)
}

func TestFactorySeedIsCopiedIn(t *testing.T) {
	assert := assertion.New(t)
	seed := make([]byte, 64)
	seed[0] = 0x42
	b := New(64, seed)
	assert.NoError(b.Init())

	raw, err := b.Read(emueeprom.PageFactory, 0, 1)
	assert.NoError(err)
	assert.Equal(byte(0x42), raw[0])
}
