package headerdiff

import (
	"errors"
	"fmt"
	"io"
)

// Largest value representable in a prefix of the given width. A width of 0
// has no capacity: the whole integer goes to continuation bytes.
var maxPrefixValues = map[int]int{0: 0x00, 4: 0x0f, 5: 0x1f, 6: 0x3f, 8: 0xff, 14: 0x3fff}

// Continuation groups accepted before a value is rejected as oversized.
const maxContinuationBytes = 8

// appendInteger appends v to dst. flags holds the bits of the leading byte
// that are not part of the prefix; it is ignored when prefixBits is 0.
func appendInteger(dst []byte, flags byte, prefixBits int, v int) []byte {
	max, ok := maxPrefixValues[prefixBits]
	if !ok {
		panic(fmt.Sprintf("headerdiff: unsupported prefix width %d", prefixBits))
	}
	if v < 0 {
		panic("headerdiff: negative integer")
	}

	if v < max {
		if prefixBits <= 8 {
			return append(dst, flags|byte(v))
		}
		return append(dst, flags|byte(v>>8), byte(v))
	}

	switch {
	case prefixBits > 8:
		dst = append(dst, flags|byte(max>>8), byte(max))
	case prefixBits > 0:
		dst = append(dst, flags|byte(max))
	}

	v -= max
	if v == 0 {
		return append(dst, 0)
	}
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}

// readInteger decodes an integer whose prefix lives in the low bits of first.
// A 14-bit prefix takes its low byte from r. With prefixBits 0, first is
// not consulted.
func readInteger(r io.ByteReader, first byte, prefixBits int) (int, error) {
	max, ok := maxPrefixValues[prefixBits]
	if !ok {
		return 0, fmt.Errorf("unsupported prefix width %d", prefixBits)
	}

	var value int
	if prefixBits <= 8 {
		value = int(first) & max
	} else {
		low, err := readByte(r)
		if err != nil {
			return 0, err
		}
		value = (int(first)&(max>>8))<<8 | int(low)
	}
	if value != max {
		return value, nil
	}

	shift := 0
	for i := 0; ; i++ {
		if i == maxContinuationBytes {
			return 0, ErrMalformedStream.Wrap(errors.New("integer overflow"))
		}
		b, err := readByte(r)
		if err != nil {
			return 0, err
		}
		value += int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, ErrMalformedStream.Wrap(io.ErrUnexpectedEOF)
	} else if err != nil {
		return 0, fmt.Errorf("read stream: %w", err)
	}
	return b, nil
}
