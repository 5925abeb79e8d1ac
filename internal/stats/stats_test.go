package stats

import (
	"bytes"
	"encoding/hex"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tested_hpack "github.com/tatsuhiro-t/go-http2-hpack"
	"golang.org/x/net/http2/hpack"

	"headerDiffCodec/internal/headerdiff"
)

var batches = [][]headerdiff.HeaderField{
	{
		{Name: "url", Value: "http://www.example.org/my-example/index.html"},
		{Name: "user-agent", Value: "my-user-agent"},
		{Name: "x-my-header", Value: "first"},
	},
	{
		{Name: "url", Value: "http://www.example.org/my-example/resources/script.js"},
		{Name: "User-Agent", Value: "my-user-agent"},
		{Name: "x-my-header", Value: "second"},
	},
}

func TestTextSize(t *testing.T) {
	assert.Equal(t, 92, TextSize(batches[0]))
	assert.Equal(t, 0, TextSize(nil))
}

func TestBatchRatio(t *testing.T) {
	b := Batch{Headers: 3, OriginalSize: 200, EncodedSize: 50, HPACKSize: 80}
	assert.InDelta(t, 0.25, b.Ratio(), 1e-9)
	assert.InDelta(t, 0.4, b.HPACKRatio(), 1e-9)

	var total Batch
	total.Add(b)
	total.Add(b)
	assert.Equal(t, Batch{Headers: 6, OriginalSize: 400, EncodedSize: 100, HPACKSize: 160}, total)

	assert.Zero(t, Batch{}.Ratio())
}

func TestBaselineDecodesWithHPACK(t *testing.T) {
	baseline := NewBaseline(4096)
	dec := hpack.NewDecoder(4096, nil)

	var sizes []int
	for _, batch := range batches {
		block := baseline.Encode(batch)
		sizes = append(sizes, len(block))

		fields, err := dec.DecodeFull(block)
		require.NoError(t, err)
		require.Len(t, fields, len(batch))
		for i, f := range fields {
			assert.Equal(t, strings.ToLower(batch[i].Name), f.Name)
			assert.Equal(t, batch[i].Value, f.Value)
		}
	}
	assert.Less(t, sizes[1], TextSize(batches[1]), "repeated headers hit the HPACK dynamic table")
}

// The baseline and an independent HPACK encoder must describe the same
// header lists, batch after batch.
func TestBaselineMatchesIndependentEncoder(t *testing.T) {
	baseline := NewBaseline(4096)
	baselineDec := hpack.NewDecoder(4096, nil)

	enc := tested_hpack.NewEncoder(0)
	referenceDec := hpack.NewDecoder(4096, nil)

	for _, batch := range batches {
		block := baseline.Encode(batch)
		t.Logf("Baseline block as hex: 0x%s", hex.EncodeToString(block))
		fromBaseline, err := baselineDec.DecodeFull(block)
		require.NoError(t, err)

		var headers []*tested_hpack.Header
		for _, h := range batch {
			headers = append(headers, tested_hpack.NewHeader(strings.ToLower(h.Name), h.Value, false))
		}
		encoded := &bytes.Buffer{}
		enc.Encode(encoded, headers)
		t.Logf("Reference block as hex: 0x%s", hex.EncodeToString(encoded.Bytes()))
		fromReference, err := referenceDec.DecodeFull(encoded.Bytes())
		require.NoError(t, err)

		require.Len(t, fromBaseline, len(fromReference))
		for i := range fromReference {
			assert.Equal(t, fromReference[i].Name, fromBaseline[i].Name)
			assert.Equal(t, fromReference[i].Value, fromBaseline[i].Value)
		}
	}
}

func TestHPACKTableSizeIsClamped(t *testing.T) {
	assert.Equal(t, uint32(4096), hpackTableSize(4096))
	assert.Equal(t, uint32(0), hpackTableSize(-1))
	assert.Equal(t, uint32(math.MaxUint32), hpackTableSize(math.MaxInt))
	assert.NotPanics(t, func() { NewBaseline(math.MaxInt).Encode(batches[0]) })
}
