package headerdiff

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// appendString writes the byte length of s followed by its UTF-8 bytes.
// Multi-byte characters contribute one unit per byte.
func appendString(dst []byte, s string) []byte {
	dst = appendInteger(dst, 0, 0, len(s))
	return append(dst, s...)
}

func readString(r *bufio.Reader) (string, error) {
	length, err := readInteger(r, 0, 0)
	if err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	n, err := io.CopyN(&buffer, r, int64(length))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrMalformedStream.Wrap(fmt.Errorf("string declares %d bytes, only %d available", length, n))
		}
		return "", fmt.Errorf("read string: %w", err)
	}

	if !utf8.Valid(buffer.Bytes()) {
		return "", ErrMalformedStream.Wrap(errors.New("string is not valid UTF-8"))
	}
	return buffer.String(), nil
}
