package emueeprom_test

import (
	"strings"
	"testing"

	assertion "github.com/stretchr/testify/assert"

	emueeprom "emueeprom"
	"emueeprom/backend/memory"
)

func newVarStore(t *testing.T, pageSize uint32, opts *emueeprom.Options) *emueeprom.VarStore {
	t.Helper()
	backend := memory.New(pageSize, nil)
	if opts == nil {
		opts = &emueeprom.Options{}
	}
	opts.PageSize = pageSize
	opts.Mode = emueeprom.ModeVariable
	store := emueeprom.NewVarStore(backend, opts)
	if err := store.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func TestVarStoreWriteThenRead(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)

	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("hello")))
	buf := make([]byte, 64)
	n, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadOK, status)
	assert.Equal("hello", string(buf[:n]))
}

func TestVarStoreOverwriteReturnsNewestVersion(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)

	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("v1")))
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("version two")))

	buf := make([]byte, 64)
	n, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadOK, status)
	assert.Equal("version two", string(buf[:n]))
}

func TestVarStoreReadMissingKey(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	buf := make([]byte, 64)
	_, status := store.Read(99, buf)
	assert.Equal(emueeprom.VarReadNoIndex, status)
}

func TestVarStoreRejectsReservedKey(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	assert.Equal(emueeprom.VarWriteError, store.Write(0xFFFFFFFF, []byte("x")))
}

func TestVarStoreRejectsEmptyPayload(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	assert.Equal(emueeprom.VarWriteDataError, store.Write(1, nil))
	assert.Equal(emueeprom.VarWriteDataError, store.Write(1, []byte{}))
}

func TestVarStoreBufferTooSmall(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("0123456789")))

	buf := make([]byte, 10) // len+1 >= len(buf): 10+1 >= 10
	_, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadBufferTooSmall, status)
}

func TestVarStoreIndexExists(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	assert.False(store.IndexExists(1))
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("present")))
	assert.True(store.IndexExists(1))
	assert.False(store.IndexExists(0xFFFFFFFF))
}

func TestVarStoreOversizedPayloadIsPageFull(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 64, nil)
	huge := make([]byte, 1024)
	assert.Equal(emueeprom.VarWritePageFull, store.Write(1, huge))
}

func TestVarStoreCompressionRoundTrip(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 1024, &emueeprom.Options{Compression: emueeprom.CompSnappy})

	payload := []byte(strings.Repeat("compressible-payload-", 32))
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, payload))

	buf := make([]byte, 4096)
	n, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadOK, status)
	assert.Equal(payload, buf[:n])
}

func TestVarStoreCompressionRoundTripLz4(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 1024, &emueeprom.Options{Compression: emueeprom.CompLz4})

	payload := []byte(strings.Repeat("lz4-round-trip-", 32))
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, payload))

	buf := make([]byte, 4096)
	n, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadOK, status)
	assert.Equal(payload, buf[:n])
}

func TestVarStoreAutoTransfersWhenPageFull(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 128, nil)

	for round := 0; round < 8; round++ {
		status := store.Write(1, []byte("payload-round"))
		assert.Equal(emueeprom.VarWriteOK, status, "round %d", round)
	}

	buf := make([]byte, 64)
	n, status := store.Read(1, buf)
	assert.Equal(emueeprom.VarReadOK, status)
	assert.Equal("payload-round", string(buf[:n]))
}

func TestVarStoreFormatClearsEverything(t *testing.T) {
	assert := assertion.New(t)
	store := newVarStore(t, 512, nil)
	assert.Equal(emueeprom.VarWriteOK, store.Write(1, []byte("data")))

	assert.NoError(store.Format())
	assert.False(store.IndexExists(1))
}
