package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Wire tags. One byte each, followed by the tag-specific body.
//
//	nil    — no body
//	bool   — 1 byte (0 or 1)
//	int    — 8 bytes, big-endian two's complement
//	float  — 8 bytes, IEEE-754 bits, big-endian
//	string — 4-byte length + UTF-8 bytes
//	bytes  — 4-byte length + raw bytes
//	list   — 4-byte count + encoded elements
//	map    — 4-byte count + (4-byte key length, key, encoded value) pairs
//	error  — kind block + message block (both 4-byte length prefixed)
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagBytes
	tagList
	tagMap
	tagError
)

// maxDepth bounds decoder recursion on hostile input. Legitimate payloads
// nest nowhere near this deep.
const maxDepth = 100

// Marshal encodes v into the self-delimiting binary representation,
// normalizing it into the closed wire set first.
func Marshal(v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return appendValue(make([]byte, 0, 64), n)
}

func appendValue(buf []byte, v any) ([]byte, error) {
	var err error
	switch x := v.(type) {
	case nil:
		return append(buf, tagNil), nil
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return append(buf, tagBool, b), nil
	case int64:
		buf = append(buf, tagInt)
		return binary.BigEndian.AppendUint64(buf, uint64(x)), nil
	case float64:
		buf = append(buf, tagFloat)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(x)), nil
	case string:
		buf = append(buf, tagString)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		return append(buf, x...), nil
	case []byte:
		buf = append(buf, tagBytes)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		return append(buf, x...), nil
	case []any:
		buf = append(buf, tagList)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		for _, elem := range x {
			if buf, err = appendValue(buf, elem); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		buf = append(buf, tagMap)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		for k, elem := range x {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(k)))
			buf = append(buf, k...)
			if buf, err = appendValue(buf, elem); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case *Error:
		buf = append(buf, tagError)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x.Kind)))
		buf = append(buf, x.Kind...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x.Message)))
		return append(buf, x.Message...), nil
	}
	return nil, fmt.Errorf("%w: unsupported type %T", ErrCodec, v)
}

// Unmarshal decodes exactly one value from data. Truncated input, unknown
// tags, and trailing bytes all fail with ErrCodec.
func Unmarshal(data []byte) (any, error) {
	r := reader{data: data}
	v, err := r.value(0)
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCodec, len(r.data)-r.pos)
	}
	return v, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting exceeds %d levels", ErrCodec, maxDepth)
	}
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNil:
		return nil, nil
	case tagBool:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, fmt.Errorf("%w: invalid bool byte %#x", ErrCodec, b)
		}
		return b == 1, nil
	case tagInt:
		u, err := r.uint64()
		if err != nil {
			return nil, err
		}
		return int64(u), nil
	case tagFloat:
		u, err := r.uint64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(u), nil
	case tagString:
		b, err := r.block()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBytes:
		b, err := r.block()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case tagList:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			if out[i], err = r.value(depth + 1); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagMap:
		n, err := r.count()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := 0; i < n; i++ {
			k, err := r.block()
			if err != nil {
				return nil, err
			}
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			out[string(k)] = v
		}
		return out, nil
	case tagError:
		kind, err := r.block()
		if err != nil {
			return nil, err
		}
		msg, err := r.block()
		if err != nil {
			return nil, err
		}
		return &Error{Kind: string(kind), Message: string(msg)}, nil
	}
	return nil, fmt.Errorf("%w: unknown tag %#x at offset %d", ErrCodec, tag, r.pos-1)
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: truncated input", ErrCodec)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	if len(r.data)-r.pos < 4 {
		return 0, fmt.Errorf("%w: truncated input", ErrCodec)
	}
	u := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return u, nil
}

func (r *reader) uint64() (uint64, error) {
	if len(r.data)-r.pos < 8 {
		return 0, fmt.Errorf("%w: truncated input", ErrCodec)
	}
	u := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return u, nil
}

// block reads a 4-byte length prefix followed by that many bytes. The
// returned slice aliases the input.
func (r *reader) block() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if uint32(len(r.data)-r.pos) < n {
		return nil, fmt.Errorf("%w: declared length %d exceeds remaining input", ErrCodec, n)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

// count reads an element count and sanity-checks it against the remaining
// input so a hostile header cannot force a huge allocation.
func (r *reader) count() (int, error) {
	n, err := r.uint32()
	if err != nil {
		return 0, err
	}
	if int(n) > len(r.data)-r.pos {
		return 0, fmt.Errorf("%w: declared count %d exceeds remaining input", ErrCodec, n)
	}
	return int(n), nil
}
