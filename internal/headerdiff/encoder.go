package headerdiff

import (
	"math"

	"headerDiffCodec/internal/logging"
)

const DefaultMaxTableSize = 4096

// MaxTableSizeLimit is the largest table size accepted from configuration.
const MaxTableSizeLimit = math.MaxInt32

// Config is shared by an encoder and its peer decoder; both sides must be
// built from identical values.
type Config struct {
	MaxTableSize int
	Context      Context
	// Registry overrides the default well-known names of Context.
	Registry []string
	Logger   logging.Logger
}

func (c Config) registry() []string {
	if c.Registry != nil {
		return append([]string(nil), c.Registry...)
	}
	return c.Context.Registry()
}

func (c Config) maxTableSize() int {
	if c.MaxTableSize <= 0 {
		return DefaultMaxTableSize
	}
	return c.MaxTableSize
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Nop()
	}
	return c.Logger
}

// Encoder serializes batches of headers. It is not safe for concurrent use,
// and batches must reach the peer decoder in the order they were encoded.
type Encoder struct {
	Table        *HeaderTable
	Names        *NameTable
	MaxTableSize int
	Context      Context

	selector selector
	logger   logging.Logger
}

func NewEncoder(cfg Config) *Encoder {
	enc := &Encoder{
		Table:        newHeaderTable(),
		Names:        newNameTable(cfg.registry()),
		MaxTableSize: cfg.maxTableSize(),
		Context:      cfg.Context,
		logger:       cfg.logger(),
	}
	enc.selector = selector{
		table:        enc.Table,
		maxTableSize: enc.MaxTableSize,
		isRequest:    enc.Context == RequestContext,
	}
	return enc
}

// Encode returns the stream for one batch together with the representation
// chosen for each header. The header table is updated as the peer decoder
// will update its own.
func (enc *Encoder) Encode(headers []HeaderField) ([]byte, []Representation) {
	enc.Table.ageAll()

	stream := appendInteger(nil, 0, 8, len(headers))
	reps := make([]Representation, 0, len(headers))

	for _, h := range headers {
		start := len(stream)
		rep := enc.selector.choose(h.Name, h.Value)

		if rep.Kind == Indexed {
			stream = appendIndexed(stream, rep.Reference)
		} else {
			stream = enc.appendNonIndexed(stream, h, rep)
			enc.applyIndexing(h, rep)
		}

		rep.Encoded = stream[start:len(stream):len(stream)]
		reps = append(reps, rep)
		enc.logger.Log(logging.LogLevelDebug, "encoded %q as %s/%s (reference %d, prefix %d, %d bytes)",
			h.Name, rep.Kind, rep.Indexing, rep.Reference, rep.CommonPrefixLength, len(rep.Encoded))
	}

	return stream, reps
}

func appendIndexed(dst []byte, index int) []byte {
	if index < 64 {
		return append(dst, 0x80|byte(index))
	}
	return appendInteger(dst, 0xc0, 14, index-64)
}

func (enc *Encoder) appendNonIndexed(dst []byte, h HeaderField, rep Representation) []byte {
	var b byte
	prefixBits := 5
	switch rep.Indexing {
	case IncrementalIndexing:
		b, prefixBits = 0x20, 4
	case SubstitutionIndexing:
		b, prefixBits = 0x30, 4
	}

	value := h.Value
	if rep.Kind == Delta {
		dst = appendInteger(dst, b|0x40, prefixBits, rep.Reference)
		dst = appendInteger(dst, 0, 0, rep.CommonPrefixLength)
		value = value[rep.CommonPrefixLength:]
	} else {
		nameIndex, known := enc.Names.lookup(h.Name)
		if known {
			dst = appendInteger(dst, b, prefixBits, nameIndex+1)
		} else {
			enc.Names.append(h.Name)
			dst = appendInteger(dst, b, prefixBits, 0)
			dst = appendString(dst, h.Name)
		}
		if rep.Indexing == SubstitutionIndexing {
			dst = appendInteger(dst, 0, 0, rep.Reference)
		}
	}

	return appendString(dst, value)
}

func (enc *Encoder) applyIndexing(h HeaderField, rep Representation) {
	switch rep.Indexing {
	case IncrementalIndexing:
		enc.Table.insert(h.Name, h.Value)
	case SubstitutionIndexing:
		enc.Table.replace(rep.Reference, h.Name, h.Value)
	}
}
