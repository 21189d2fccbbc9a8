package fixedpoint

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/zeebo/blake3"
)

// ErrEncodingFailed is returned by Encoder methods when a value cannot
// be represented canonically (e.g. a map key collision, or a byte
// string too long for its uint32 length prefix). This error must
// never be swallowed, and callers must never substitute a default
// digest when it occurs.
var ErrEncodingFailed = errors.New("fixedpoint: canonical encoding failed")

// Tag bytes identify the shape of the next field in the canonical
// encoding, so the byte stream is self-describing and unambiguous.
const (
	tagU8 byte = iota + 1
	tagU16
	tagU32
	tagU64
	tagI64
	tagBytes
	tagMap
)

// Encoder builds a canonical byte encoding: a fixed field order,
// big-endian width-prefixed integers, and length-prefixed byte
// strings. It is the input passed to BLAKE3 for HashTimer digests and
// round seeds.
type Encoder struct {
	buf []byte
	err error
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Err returns the first encoding error encountered, if any. Once set,
// subsequent Put* calls are no-ops.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// PutU8 appends a single byte tagged as an unsigned 8-bit integer.
func (e *Encoder) PutU8(v uint8) *Encoder {
	if e.err != nil {
		return e
	}
	e.buf = append(e.buf, tagU8, v)
	return e
}

// PutU16 appends a big-endian uint16.
func (e *Encoder) PutU16(v uint16) *Encoder {
	if e.err != nil {
		return e
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, tagU16)
	e.buf = append(e.buf, b[:]...)
	return e
}

// PutU32 appends a big-endian uint32.
func (e *Encoder) PutU32(v uint32) *Encoder {
	if e.err != nil {
		return e
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, tagU32)
	e.buf = append(e.buf, b[:]...)
	return e
}

// PutU64 appends a big-endian uint64.
func (e *Encoder) PutU64(v uint64) *Encoder {
	if e.err != nil {
		return e
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, tagU64)
	e.buf = append(e.buf, b[:]...)
	return e
}

// PutI64 appends a big-endian (zigzag-free, two's complement) int64.
func (e *Encoder) PutI64(v int64) *Encoder {
	if e.err != nil {
		return e
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, tagI64)
	e.buf = append(e.buf, b[:]...)
	return e
}

// PutBytes appends a length-prefixed (uint32 big-endian length) byte
// string.
func (e *Encoder) PutBytes(v []byte) *Encoder {
	if e.err != nil {
		return e
	}
	if len(v) > 1<<32-1 {
		e.fail(ErrEncodingFailed)
		return e
	}
	e.buf = append(e.buf, tagBytes)
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(v)))
	e.buf = append(e.buf, lb[:]...)
	e.buf = append(e.buf, v...)
	return e
}

// StringMapEntry is one key/value pair of a canonical string-keyed map
// whose values are themselves already-encoded canonical byte strings.
type StringMapEntry struct {
	Key   string
	Value []byte
}

// PutStringMap sorts entries by key (rejecting duplicate keys, which
// would make the encoding ambiguous) and appends them as a
// length-prefixed sequence of (key-bytes, value-bytes) pairs.
func (e *Encoder) PutStringMap(entries []StringMapEntry) *Encoder {
	if e.err != nil {
		return e
	}
	sorted := make([]StringMapEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Key == sorted[i-1].Key {
			e.fail(ErrEncodingFailed)
			return e
		}
	}
	e.buf = append(e.buf, tagMap)
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(sorted)))
	e.buf = append(e.buf, lb[:]...)
	for _, kv := range sorted {
		e.PutBytes([]byte(kv.Key))
		e.PutBytes(kv.Value)
	}
	return e
}

// Bytes returns the accumulated canonical encoding and any error
// recorded along the way. Callers MUST check the error before using
// the bytes.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out, nil
}

// Digest hashes a canonical encoding with BLAKE3, returning a 32-byte
// digest. It fails rather than returning a default/empty digest when
// the encoding itself failed.
func Digest(enc *Encoder) ([32]byte, error) {
	b, err := enc.Bytes()
	if err != nil {
		return [32]byte{}, err
	}
	return DigestBytes(b), nil
}

// DigestBytes returns the BLAKE3-256 digest of arbitrary pre-encoded
// bytes (used where the caller has already assembled the bytes to hash,
// e.g. gbdt's canonical model JSON or the determinism batch buffer).
func DigestBytes(b []byte) [32]byte {
	var out [32]byte
	sum := blake3.Sum256(b)
	copy(out[:], sum[:])
	return out
}
