package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibAddAndEntries(t *testing.T) {
	l := NewLib(NewCodec(32))
	intT := Scalar{Name: "int", ByteSize: 4}
	uintT := Scalar{Name: "unsigned int", ByteSize: 4}
	ptr := Pointer{TargetType: "char"}

	for _, typ := range []TypeInfo{intT, uintT, intT, ptr, intT} {
		_, err := l.Add(typ)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []int{4, 8}, l.Sizes())

	four := l.Entries(4)
	require.Len(t, four, 2)
	assert.Equal(t, Entry{Frequency: 3, Type: intT}, four[0])
	assert.Equal(t, Entry{Frequency: 1, Type: uintT}, four[1])
	assert.Empty(t, l.Entries(2))
}

func TestLibJSONRoundTrip(t *testing.T) {
	c := NewCodec(32)
	l := NewLib(c)
	for _, typ := range sampleTypes {
		_, err := l.Add(typ)
		require.NoError(t, err)
	}
	_, err := l.Add(Void{})
	require.NoError(t, err)

	data, err := json.Marshal(l)
	require.NoError(t, err)

	got, err := DecodeLib(data, c)
	require.NoError(t, err)
	assert.Equal(t, l.Len(), got.Len())
	assert.Equal(t, l.Sizes(), got.Sizes())
	for _, size := range l.Sizes() {
		assert.Equal(t, l.Entries(size), got.Entries(size), "size %d", size)
	}
}

func TestDecodeLibRejectsBadSize(t *testing.T) {
	_, err := DecodeLib([]byte(`{"four":[]}`), nil)
	assert.Error(t, err)
}

func TestLibMerge(t *testing.T) {
	intT := Scalar{Name: "int", ByteSize: 4}
	ptr := Pointer{TargetType: "char"}

	a := NewLib(nil)
	_, err := a.Add(intT)
	require.NoError(t, err)

	b := NewLib(nil)
	for _, typ := range []TypeInfo{intT, intT, ptr} {
		_, err := b.Add(typ)
		require.NoError(t, err)
	}

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []Entry{{Frequency: 3, Type: intT}}, a.Entries(4))
	assert.Equal(t, []Entry{{Frequency: 1, Type: ptr}}, a.Entries(8))
	assert.Equal(t, 2, b.Len())
}
