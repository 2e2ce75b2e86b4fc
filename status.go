package emueeprom

// PageState is the page lifecycle (§3): ERASED → FORMATTED → (ACTIVE |
// RECEIVE) → (FULL | ACTIVE). It is a pure value decoded from a page's
// header bytes; the state machine in recovery.go is the only place that
// reasons about transitions between states.
type PageState uint8

const (
	StateErased PageState = iota
	StateFormatted
	StateReceive
	StateActive
	StateFull
)

func (s PageState) String() string {
	switch s {
	case StateErased:
		return "ERASED"
	case StateFormatted:
		return "FORMATTED"
	case StateReceive:
		return "RECEIVE"
	case StateActive:
		return "ACTIVE"
	case StateFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// FixedReadStatus is the result enum for ModeFixed reads. It is not unioned
// with VarReadStatus: fixed mode has no CRC, no buffers, no variable-length
// concept, so it carries none of those result kinds.
type FixedReadStatus uint8

const (
	FixedReadOK FixedReadStatus = iota
	FixedReadNoVar
	FixedReadNoPage
	FixedReadError
)

func (s FixedReadStatus) String() string {
	switch s {
	case FixedReadOK:
		return "OK"
	case FixedReadNoVar:
		return "NO_VAR"
	case FixedReadNoPage:
		return "NO_PAGE"
	case FixedReadError:
		return "READ_ERROR"
	default:
		return "UNKNOWN"
	}
}

// FixedWriteStatus is the result enum for ModeFixed writes.
type FixedWriteStatus uint8

const (
	FixedWriteOK FixedWriteStatus = iota
	FixedWritePageFull
	FixedWriteNoPage
	FixedWriteError
)

func (s FixedWriteStatus) String() string {
	switch s {
	case FixedWriteOK:
		return "OK"
	case FixedWritePageFull:
		return "PAGE_FULL"
	case FixedWriteNoPage:
		return "NO_PAGE"
	case FixedWriteError:
		return "WRITE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// VarReadStatus is the result enum for ModeVariable reads.
type VarReadStatus uint8

const (
	VarReadOK VarReadStatus = iota
	VarReadNoIndex
	VarReadNoPage
	VarReadBufferTooSmall
	VarReadError
	VarReadInvalidCRC
	VarReadDataError
)

func (s VarReadStatus) String() string {
	switch s {
	case VarReadOK:
		return "OK"
	case VarReadNoIndex:
		return "NO_INDEX"
	case VarReadNoPage:
		return "NO_PAGE"
	case VarReadBufferTooSmall:
		return "BUFFER_TOO_SMALL"
	case VarReadError:
		return "READ_ERROR"
	case VarReadInvalidCRC:
		return "INVALID_CRC"
	case VarReadDataError:
		return "DATA_ERROR"
	default:
		return "UNKNOWN"
	}
}

// VarWriteStatus is the result enum for ModeVariable writes.
type VarWriteStatus uint8

const (
	VarWriteOK VarWriteStatus = iota
	VarWritePageFull
	VarWriteNoPage
	VarWriteError
	VarWriteDataError
)

func (s VarWriteStatus) String() string {
	switch s {
	case VarWriteOK:
		return "OK"
	case VarWritePageFull:
		return "PAGE_FULL"
	case VarWriteNoPage:
		return "NO_PAGE"
	case VarWriteError:
		return "WRITE_ERROR"
	case VarWriteDataError:
		return "DATA_ERROR"
	default:
		return "UNKNOWN"
	}
}
