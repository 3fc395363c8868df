package dataview_test

import (
	"strings"
	"testing"

	"github.com/bnema/adblock-engine/internal/compression"
	"github.com/bnema/adblock-engine/internal/dataview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_Primitives(t *testing.T) {
	w := dataview.New(0, nil)
	w.PushByte(7)
	w.PushBool(true)
	w.PushUint16(0xBEEF)
	w.PushUint32(0xDEADBEEF)
	w.PushLength(3)
	w.PushLength(1000)
	w.PushUint32Array([]uint32{1, 2, 3})
	w.PushASCII("ascii")
	w.PushUTF8("héllo")
	w.PushBytes([]byte{9, 8}, true)

	r := dataview.FromBytes(w.Bytes(), nil)
	assert.Equal(t, byte(7), r.GetByte())
	assert.True(t, r.GetBool())
	assert.Equal(t, uint16(0xBEEF), r.GetUint16())
	assert.Equal(t, uint32(0xDEADBEEF), r.GetUint32())
	assert.Equal(t, 3, r.GetLength())
	assert.Equal(t, 1000, r.GetLength())
	assert.Equal(t, []uint32{1, 2, 3}, r.GetUint32Array())
	assert.Equal(t, "ascii", r.GetASCII())
	assert.Equal(t, "héllo", r.GetUTF8())
	assert.Equal(t, []byte{9, 8}, r.GetBytes(true))
	assert.False(t, r.DataAvailable())
	require.NoError(t, r.Err())
}

func TestView_LengthEncoding(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
	}{{
		name: "short",
		n:    127,
		size: 1,
	}, {
		name: "long",
		n:    128,
		size: 5,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := dataview.New(0, nil)
			w.PushLength(tc.n)
			assert.Equal(t, tc.size, w.Pos())
			assert.Equal(t, tc.size, dataview.SizeOfLength(tc.n))
		})
	}
}

func TestView_Truncated(t *testing.T) {
	r := dataview.FromBytes([]byte{0, 1}, nil)
	assert.Zero(t, r.GetUint32())
	assert.ErrorIs(t, r.Err(), dataview.ErrTruncated)
	assert.Zero(t, r.GetByte())
}

func TestView_Strings(t *testing.T) {
	inputs := []struct {
		cat dataview.Category
		s   string
	}{
		{dataview.NetworkFilter, "/pagead/js/adsbygoogle.js"},
		{dataview.NetworkHostname, "ads.example.com"},
		{dataview.NetworkCSP, "script-src 'self'"},
		{dataview.NetworkRedirect, "noop.js:10"},
		{dataview.CosmeticSelector, ".banner > div"},
		{dataview.RawNetwork, "||ads.example.com^$script"},
		{dataview.RawCosmetic, "example.com##" + strings.Repeat("x", 300)},
	}

	for _, c := range []*compression.Compression{nil, compression.New()} {
		w := dataview.New(16, c)
		size := 0
		for _, in := range inputs {
			w.PushString(in.cat, in.s)
			size += dataview.SizeOfString(in.cat, in.s, c)
		}
		assert.Equal(t, size, w.Pos())

		r := dataview.FromBytes(w.Bytes(), c)
		for _, in := range inputs {
			assert.Equal(t, in.s, r.GetString(in.cat))
		}
		require.NoError(t, r.Err())
	}
}

func TestView_Checksum(t *testing.T) {
	w := dataview.New(0, nil)
	w.PushASCII("abc")
	sum := w.Checksum()

	w2 := dataview.New(0, nil)
	w2.PushASCII("abd")
	assert.NotEqual(t, sum, w2.Checksum())

	r := dataview.FromBytes(w.Bytes(), nil)
	r.SetPos(w.Pos())
	assert.Equal(t, sum, r.Checksum())
}
