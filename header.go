package emueeprom

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// headerCodec encodes/decodes page lifecycle state into the first H bytes
// of a page using only monotonic 1→0 bit transitions, so no transition
// needs an intermediate erase (§4.2).
type headerCodec interface {
	// size returns H, the number of header bytes this codec owns.
	size() uint32

	// decode maps raw header bytes to a PageState. A raw slice shorter
	// than H decodes as StateErased. Bytes that are not a legal pattern
	// decode per codec: StateErased for the latched codec, StateFormatted
	// for the simple codec (its tolerance rule).
	decode(raw []byte) PageState

	// encodeState returns the offset and bytes to write in order to
	// advance the page to target. The write is idempotent and, by
	// construction, always a subset (1→0) of whatever the page currently
	// holds when applied to a page no further along than target.
	encodeState(target PageState) (offset uint32, word []byte)
}

// simpleHeaderCodec is the H=4 monotone-word encoding (§4.2): a single
// 32-bit word whose value is one of four magic constants forming a bit
// lattice, ERASED ⊇ FORMATTED ⊇ RECEIVE ⊇ ACTIVE, so any forward transition
// is a pure 1→0 rewrite of the whole word.
type simpleHeaderCodec struct{}

const (
	simpleErased    uint32 = 0xFFFFFFFF
	simpleFormatted uint32 = 0xFFFFEEEE
	simpleReceive   uint32 = 0xEEEEEEEE
	simpleActive    uint32 = 0x00000000
)

func (simpleHeaderCodec) size() uint32 { return 4 }

func (simpleHeaderCodec) decode(raw []byte) PageState {
	if len(raw) < 4 {
		return StateErased
	}
	word := binary.LittleEndian.Uint32(raw[:4])
	switch word {
	case simpleErased:
		return StateErased
	case simpleReceive:
		return StateReceive
	case simpleActive:
		return StateActive
	default:
		// Tolerance rule inherited from older generations: any other word,
		// including simpleFormatted, decodes as FORMATTED. This can mask
		// genuine corruption (§9 open question); latched encoding should be
		// preferred for new deployments.
		return StateFormatted
	}
}

func (simpleHeaderCodec) encodeState(target PageState) (uint32, []byte) {
	var word uint32
	switch target {
	case StateErased:
		word = simpleErased
	case StateFormatted:
		word = simpleFormatted
	case StateReceive:
		word = simpleReceive
	case StateActive:
		word = simpleActive
	default:
		panic("emueeprom: simple header encoding has no FULL state")
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, word)
	return 0, buf
}

// latchedHeaderCodec is the H=32 encoding (§4.2): four independent 64-bit
// slots, each flipped from "erased" to "programmed" to advance state. Slots
// are independent of one another, so encodeState only ever touches the one
// slot for the requested target; decode consults them in priority order
// (FULL, ACTIVE, RECEIVE, FORMATTED), not slot index order — see the note on
// latchedScanOrder.
type latchedHeaderCodec struct{}

const (
	latchedErased    uint64 = 0xFFFFFFFFFFFFFFFF
	latchedProgram   uint64 = 0xAAAAAAAAAAAAAAAA
	latchedSlotCount        = 4
)

var latchedSlotState = [latchedSlotCount]PageState{
	StateFormatted, // slot 0
	StateReceive,   // slot 1
	StateFull,      // slot 2
	StateActive,    // slot 3
}

// latchedScanOrder is the slot priority decode consults, highest priority
// first: FULL over ACTIVE over RECEIVE over FORMATTED. finalizeTransfer
// marks the outgoing source page FULL (slot 2) while its ACTIVE slot (slot
// 3) is still programmed from before the transfer, so ACTIVE alone cannot
// take priority over FULL — a page that has been marked FULL must decode
// FULL even though it also still carries ACTIVE underneath. Without this,
// a crash between "mark destination ACTIVE" and "erase source" leaves both
// pages decoding ACTIVE, a pair classifyRecovery cannot disambiguate.
var latchedScanOrder = [latchedSlotCount]int{2, 3, 1, 0}

func (latchedHeaderCodec) size() uint32 { return 32 }

func (latchedHeaderCodec) decode(raw []byte) PageState {
	if len(raw) < 32 {
		return StateErased
	}
	for _, slot := range latchedScanOrder {
		v := binary.LittleEndian.Uint64(raw[slot*8 : slot*8+8])
		switch v {
		case latchedProgram:
			return latchedSlotState[slot]
		case latchedErased:
			continue
		default:
			// Neither legal pattern: treat as corruption, defensively
			// reporting ERASED rather than trusting a partial program.
			return StateErased
		}
	}
	return StateErased
}

func (latchedHeaderCodec) encodeState(target PageState) (uint32, []byte) {
	slot := -1
	for i, st := range latchedSlotState {
		if st == target {
			slot = i
			break
		}
	}
	if slot < 0 {
		panic("emueeprom: latched header encoding has no such state: " + target.String())
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, latchedProgram)
	return uint32(slot * 8), buf
}

func newHeaderCodec(enc HeaderEncoding) headerCodec {
	if enc == EncodingLatched {
		return latchedHeaderCodec{}
	}
	return simpleHeaderCodec{}
}

// ErrHeaderTooShort is returned when a backend hands back fewer than H
// bytes for a header read, which the codec cannot decode.
var ErrHeaderTooShort = errors.New("emueeprom: short header read")
