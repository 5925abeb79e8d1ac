package headerdiff

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"headerDiffCodec/internal/logging"
)

// Decoder mirrors the tables of one Encoder. A failed Decode leaves the
// tables untrustworthy: they are discarded and every later call fails until
// Reset.
type Decoder struct {
	Table        *HeaderTable
	Names        *NameTable
	MaxTableSize int
	Context      Context

	registry []string
	logger   logging.Logger
	err      error
}

func NewDecoder(cfg Config) *Decoder {
	dec := &Decoder{
		MaxTableSize: cfg.maxTableSize(),
		Context:      cfg.Context,
		registry:     cfg.registry(),
		logger:       cfg.logger(),
	}
	dec.Reset()
	return dec
}

// Reset starts over with empty tables, as a fresh session would.
func (dec *Decoder) Reset() {
	dec.Table = newHeaderTable()
	dec.Names = newNameTable(dec.registry)
	dec.err = nil
}

// Err reports the failure that discarded the decoder state, if any.
func (dec *Decoder) Err() error {
	return dec.err
}

// Decode reads exactly one batch from reader. It returns io.EOF, without
// touching any state, when reader is exhausted before the batch starts.
func (dec *Decoder) Decode(reader *bufio.Reader) ([]HeaderField, error) {
	if dec.err != nil {
		return nil, ErrDecoderFailed.Wrap(dec.err)
	}

	first, err := reader.ReadByte()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	} else if err != nil {
		return nil, dec.fail(fmt.Errorf("decoder error: %w", err))
	}

	headers, err := dec.decodeBatch(reader, first)
	if err != nil {
		return nil, dec.fail(err)
	}
	return headers, nil
}

// DecodeBytes decodes a stream holding exactly one batch.
func (dec *Decoder) DecodeBytes(stream []byte) ([]HeaderField, error) {
	reader := bufio.NewReader(bytes.NewReader(stream))
	headers, err := dec.Decode(reader)
	if errors.Is(err, io.EOF) {
		return nil, dec.fail(ErrMalformedStream.Wrap(errors.New("empty stream")))
	} else if err != nil {
		return nil, err
	}
	if n, _ := io.Copy(io.Discard, reader); n > 0 {
		return nil, dec.fail(ErrMalformedStream.Wrap(fmt.Errorf("%d trailing bytes after batch", n)))
	}
	return headers, nil
}

func (dec *Decoder) fail(err error) error {
	dec.logger.Log(logging.LogLevelError, "discarding decoder tables: %v", err)
	dec.Table = newHeaderTable()
	dec.Names = newNameTable(dec.registry)
	dec.err = err
	return err
}

func (dec *Decoder) decodeBatch(r *bufio.Reader, first byte) ([]HeaderField, error) {
	count, err := readInteger(r, first, 8)
	if err != nil {
		return nil, err
	}

	dec.Table.ageAll()

	headers := make([]HeaderField, 0, min(count, 256))
	for len(headers) < count {
		h, err := dec.decodeHeader(r)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", len(headers), err)
		}
		headers = append(headers, h)
	}

	return headers, nil
}

func (dec *Decoder) decodeHeader(r *bufio.Reader) (HeaderField, error) {
	b0, err := readByte(r)
	if err != nil {
		return HeaderField{}, err
	}

	if b0&0x80 != 0 {
		index := int(b0 & 0x3f)
		if b0&0x40 != 0 {
			v, err := readInteger(r, b0, 14)
			if err != nil {
				return HeaderField{}, err
			}
			index = v + 64
		}
		e, err := dec.reference(index)
		if err != nil {
			return HeaderField{}, err
		}
		return NewHeaderField(e.Name, e.Value), nil
	}

	incremental := b0&0x30 == 0x20
	substitution := b0&0x30 == 0x30
	prefixBits := 5
	if incremental || substitution {
		prefixBits = 4
	}

	var name, prefix string
	reference := NoReference
	if b0&0x40 != 0 {
		if reference, err = readInteger(r, b0, prefixBits); err != nil {
			return HeaderField{}, err
		}
		e, err := dec.reference(reference)
		if err != nil {
			return HeaderField{}, err
		}
		prefixLength, err := readInteger(r, 0, 0)
		if err != nil {
			return HeaderField{}, err
		}
		if prefixLength > len(e.Value) {
			return HeaderField{}, ErrMalformedStream.Wrap(fmt.Errorf("common prefix %d longer than reference value (%d bytes)", prefixLength, len(e.Value)))
		}
		name, prefix = e.Name, e.Value[:prefixLength]
	} else {
		if name, err = dec.readName(r, b0, prefixBits); err != nil {
			return HeaderField{}, err
		}
		if substitution {
			if reference, err = readInteger(r, 0, 0); err != nil {
				return HeaderField{}, err
			}
			if _, err := dec.reference(reference); err != nil {
				return HeaderField{}, err
			}
		}
	}

	suffix, err := readString(r)
	if err != nil {
		return HeaderField{}, err
	}
	value := prefix + suffix
	if !utf8.ValidString(value) {
		return HeaderField{}, ErrMalformedStream.Wrap(errors.New("delta splits a multi-byte character"))
	}

	if substitution {
		dec.Table.replace(reference, name, value)
	} else if incremental {
		dec.Table.insert(name, value)
	}
	if dec.Table.Size() > dec.MaxTableSize {
		return HeaderField{}, ErrTableSizeExceeded.Wrap(fmt.Errorf("%d bytes indexed, limit is %d", dec.Table.Size(), dec.MaxTableSize))
	}

	return NewHeaderField(name, value), nil
}

// readName resolves the literal name reference; 0 announces a new name
// carried inline.
func (dec *Decoder) readName(r *bufio.Reader, b0 byte, prefixBits int) (string, error) {
	ref, err := readInteger(r, b0, prefixBits)
	if err != nil {
		return "", err
	}
	if ref == 0 {
		name, err := readString(r)
		if err != nil {
			return "", err
		}
		dec.Names.append(name)
		return name, nil
	}
	name, ok := dec.Names.name(ref - 1)
	if !ok {
		return "", ErrMalformedStream.Wrap(fmt.Errorf("name index %d out of range (%d names)", ref-1, dec.Names.Len()))
	}
	return name, nil
}

func (dec *Decoder) reference(index int) (*TableEntry, error) {
	e, ok := dec.Table.entry(index)
	if !ok {
		return nil, ErrMalformedStream.Wrap(fmt.Errorf("header index %d out of range (%d entries)", index, dec.Table.Len()))
	}
	return e, nil
}
