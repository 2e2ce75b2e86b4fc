package emueeprom

import (
	"bytes"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// compressor/decompressor mirror the teacher's Compressor/DeCompressor
// function types (compress.go), adapted from per-record KV compression to
// a fixed, construction-time codec selection.
type compressor func([]byte) []byte
type decompressor func([]byte) ([]byte, error)

var snappyCompress compressor = func(in []byte) []byte {
	return snappy.Encode(nil, in)
}

var snappyDecompress decompressor = func(in []byte) ([]byte, error) {
	return snappy.Decode(nil, in)
}

var lz4Compress compressor = func(in []byte) []byte {
	buf := &bytes.Buffer{}
	writer := lz4.NewWriter(buf)
	if _, err := writer.Write(in); err != nil {
		// lz4.Writer only fails on a broken underlying io.Writer; a
		// bytes.Buffer never errors, so this would be a library bug.
		panic(err)
	}
	if err := writer.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var lz4Decompress decompressor = func(in []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	reader := lz4.NewReader(bytes.NewReader(in))
	_, err := buf.ReadFrom(reader)
	return buf.Bytes(), err
}

func codecFor(alg CompressionAlgorithm) (compressor, decompressor) {
	switch alg {
	case CompSnappy:
		return snappyCompress, snappyDecompress
	case CompLz4:
		return lz4Compress, lz4Decompress
	default:
		return nil, nil
	}
}

// compressPayload tries alg's codec and keeps the result only if it shrinks
// the payload, the same "try it, keep it only if it helps" idiom the
// teacher's KVPair.Marshal applies per field. Returns the bytes to store on
// flash and whether they are compressed.
func compressPayload(payload []byte, alg CompressionAlgorithm) (stored []byte, compressed bool) {
	comp, _ := codecFor(alg)
	if comp == nil {
		return payload, false
	}
	candidate := comp(payload)
	if len(candidate) < len(payload) {
		return candidate, true
	}
	return payload, false
}

func decompressPayload(stored []byte, compressed bool, alg CompressionAlgorithm) ([]byte, error) {
	if !compressed {
		return stored, nil
	}
	_, decomp := codecFor(alg)
	if decomp == nil {
		return stored, nil
	}
	return decomp(stored)
}
