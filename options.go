package emueeprom

import log "github.com/sirupsen/logrus"

// Mode selects the record codec and, implicitly, whether the read cache is
// available (fixed mode only).
type Mode uint8

const (
	// ModeFixed stores 16-bit values addressed by a 16-bit key, the
	// generation-1 record layout (§6.4).
	ModeFixed Mode = iota
	// ModeVariable stores variable-length, CRC-checked payloads addressed
	// by a 32-bit key (§6.3).
	ModeVariable
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// HeaderEncoding selects the page-status codec (§4.2).
type HeaderEncoding uint8

const (
	// EncodingSimple is the 4-byte monotone-word header. Any unrecognized
	// word decodes as FORMATTED, a tolerance rule inherited from older
	// generations that can mask genuine corruption.
	EncodingSimple HeaderEncoding = iota
	// EncodingLatched is the 32-byte, four-slot header. It should be
	// preferred for new deployments: corruption in a slot decodes the page
	// as ERASED rather than silently downgrading to FORMATTED.
	EncodingLatched
)

func (h HeaderEncoding) headerSize() uint32 {
	switch h {
	case EncodingLatched:
		return 32
	default:
		return 4
	}
}

// CompressionAlgorithm selects optional variable-mode payload compression.
// Unlike the teacher's per-record adaptive tagging, this is a construction-
// time, per-store policy: emueeprom's entrySize gates PAGE_FULL and must be
// statically computable, so the choice of codec cannot vary record to
// record.
type CompressionAlgorithm uint8

const (
	// CompNone disables compression. This is the zero value so that a
	// zero-valued Options never silently compresses payloads.
	CompNone CompressionAlgorithm = iota
	CompSnappy
	CompLz4
)

func (c CompressionAlgorithm) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompSnappy:
		return "snappy"
	case CompLz4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Options configures an engine at construction time (§6.1).
type Options struct {
	// PageSize is P: bytes per wear-leveling page. Fixes the address/key
	// space (fixed mode) and entry capacity (both modes).
	PageSize uint32

	// WriteAlignment is W: the multiple-of-4 byte alignment for appends.
	// W = 4 unless HeaderEncoding is EncodingLatched, where wider program
	// units are common.
	WriteAlignment uint32

	// UseFactoryPage enables consulting PageFactory on format and for
	// factory-seeded reads.
	UseFactoryPage bool

	// Mode selects the record codec.
	Mode Mode

	// HeaderEncoding selects the page-header codec.
	HeaderEncoding HeaderEncoding

	// Compression enables optional payload compression in ModeVariable.
	// Ignored in ModeFixed, where values are a fixed 16 bits.
	Compression CompressionAlgorithm

	// Logger receives structured diagnostics. Defaults to
	// logrus.StandardLogger() when nil.
	Logger *log.Logger
}

// DefaultOptions mirrors the teacher's DefaultOptions pattern: a ready-to-use
// configuration for the common case, in the style of sidb.DefaultOptions.
var DefaultOptions = &Options{
	PageSize:       1024,
	WriteAlignment: 4,
	UseFactoryPage: false,
	Mode:           ModeFixed,
	HeaderEncoding: EncodingSimple,
	Compression:    CompNone,
}

// withDefaults fills unset fields from DefaultOptions and resolves the
// logger, returning a copy so the caller's Options is never mutated.
func (o *Options) withDefaults() *Options {
	out := *o
	if out.PageSize == 0 {
		out.PageSize = DefaultOptions.PageSize
	}
	if out.WriteAlignment == 0 {
		out.WriteAlignment = DefaultOptions.WriteAlignment
	}
	if out.Logger == nil {
		out.Logger = log.StandardLogger()
	}
	return &out
}

func (o *Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.StandardLogger()
	}
	return o.Logger
}
