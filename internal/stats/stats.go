package stats

import (
	"bytes"
	"math"
	"strings"

	"golang.org/x/net/http2/hpack"

	"headerDiffCodec/internal/headerdiff"
)

// TextSize is the size of the headers written as "name: value" lines,
// without line terminators.
func TextSize(headers []headerdiff.HeaderField) int {
	size := 0
	for _, h := range headers {
		size += len(h.Name) + len(": ") + len(h.Value)
	}
	return size
}

type Batch struct {
	Headers      int `json:"headers"`
	OriginalSize int `json:"original_size"`
	EncodedSize  int `json:"encoded_size"`
	HPACKSize    int `json:"hpack_size"`
}

// Ratio is the encoded size relative to the original size.
func (b Batch) Ratio() float64 {
	return ratio(b.EncodedSize, b.OriginalSize)
}

func (b Batch) HPACKRatio() float64 {
	return ratio(b.HPACKSize, b.OriginalSize)
}

func (b *Batch) Add(o Batch) {
	b.Headers += o.Headers
	b.OriginalSize += o.OriginalSize
	b.EncodedSize += o.EncodedSize
	b.HPACKSize += o.HPACKSize
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Baseline compresses the same batches with HPACK so ratios can be compared.
// Like the codec it keeps its dynamic table across batches.
type Baseline struct {
	enc  *hpack.Encoder
	wBuf *bytes.Buffer
}

func NewBaseline(maxTableSize int) *Baseline {
	b := &Baseline{wBuf: &bytes.Buffer{}}
	b.enc = hpack.NewEncoder(b.wBuf)
	size := hpackTableSize(maxTableSize)
	b.enc.SetMaxDynamicTableSizeLimit(size)
	b.enc.SetMaxDynamicTableSize(size)
	return b
}

// hpackTableSize clamps a codec table size to the uint32 HPACK range.
func hpackTableSize(maxTableSize int) uint32 {
	switch {
	case maxTableSize < 0:
		return 0
	case int64(maxTableSize) > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(maxTableSize)
}

// Encode returns the HPACK block for headers. The slice is only valid until
// the next call.
func (b *Baseline) Encode(headers []headerdiff.HeaderField) []byte {
	b.wBuf.Reset()
	for _, h := range headers {
		// HPACK write errors only come from the buffer, which cannot fail.
		_ = b.enc.WriteField(hpack.HeaderField{Name: strings.ToLower(h.Name), Value: h.Value})
	}
	return b.wBuf.Bytes()
}
