package serial

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y float32
}

type node struct {
	Name     string
	Weight   uint16
	Points   []point
	Tags     []string
	Children []*node
	Extra    *point
	Lookup   map[string]uint32
	Members  map[uint32]struct{}
}

func (n *node) Fields() []any {
	return []any{
		&n.Name,
		&n.Weight,
		Slice(&n.Points),
		Slice(&n.Tags),
		SliceFunc(&n.Children, Ptr[node]),
		Ptr(&n.Extra),
		Map(&n.Lookup),
		Set(&n.Members),
	}
}

func TestStringLayout(t *testing.T) {
	s := "abc"
	b, err := Marshal(&s)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, 'a', 'b', 'c'}, b)
}

func TestFlatValuesAreRaw(t *testing.T) {
	p := point{X: 1, Y: 2}
	b, err := Marshal(&p)
	require.NoError(t, err)
	require.Len(t, b, 8)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(b[4:])))

	points := []point{{1, 2}, {3, 4}}
	b, err = Marshal(Slice(&points))
	require.NoError(t, err)
	assert.Len(t, b, 8+16)
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b))
}

func TestIsFlat(t *testing.T) {
	assert.True(t, IsFlat[uint32]())
	assert.True(t, IsFlat[point]())
	assert.True(t, IsFlat[bool]())
	assert.False(t, IsFlat[string]())
	assert.False(t, IsFlat[node]())
	assert.False(t, IsFlat[*node]())
}

func TestCompositeRoundTrip(t *testing.T) {
	in := &node{
		Name:   "root",
		Weight: 7,
		Points: []point{{1, 2}, {3, 4}},
		Tags:   []string{"a", "", "ccc"},
		Children: []*node{
			{Name: "child", Extra: &point{5, 6}},
			nil,
			{Name: "other", Lookup: map[string]uint32{"k": 1}},
		},
		Lookup:  map[string]uint32{"b": 2, "a": 1},
		Members: map[uint32]struct{}{4: {}, 1: {}},
	}

	b, err := Marshal(in)
	require.NoError(t, err)

	out := &node{}
	require.NoError(t, Unmarshal(b, out))
	assert.Equal(t, in, out)
}

func TestEmptyContainersDecodeAsNil(t *testing.T) {
	in := &node{}
	b, err := Marshal(in)
	require.NoError(t, err)

	out := &node{Tags: []string{"stale"}}
	require.NoError(t, Unmarshal(b, out))
	assert.Equal(t, in, out)
	assert.Nil(t, out.Tags)
}

func TestMapAndSetOrderIsDeterministic(t *testing.T) {
	a := map[string]uint32{"x": 1, "y": 2, "z": 3}
	b := map[string]uint32{"z": 3, "x": 1, "y": 2}
	ea, err := Marshal(Map(&a))
	require.NoError(t, err)
	eb, err := Marshal(Map(&b))
	require.NoError(t, err)
	assert.Equal(t, ea, eb)

	s := map[uint32]struct{}{9: {}, 3: {}}
	es, err := Marshal(Set(&s))
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 9, 0, 0, 0}, es)
}

func TestPresenceFlag(t *testing.T) {
	var p *point
	b, err := Marshal(Ptr(&p))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, b)

	var out *point
	err = Unmarshal([]byte{2}, Ptr(&out))
	assert.ErrorIs(t, err, ErrInvalidPresence)
}

func TestTruncatedStream(t *testing.T) {
	in := &node{Name: "truncated", Points: []point{{1, 2}}}
	b, err := Marshal(in)
	require.NoError(t, err)

	for _, cut := range []int{0, 4, 12, len(b) - 1} {
		err := Decode(bytes.NewReader(b[:cut]), &node{})
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
	}
}

func TestCorruptLengthDoesNotAllocate(t *testing.T) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, 1<<33)
	var payload []byte
	err := Decode(bytes.NewReader(b), Bytes(&payload))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	binary.LittleEndian.PutUint64(b, 1<<40)
	err = Decode(bytes.NewReader(b), Bytes(&payload))
	assert.ErrorIs(t, err, ErrLengthOverflow)
}

func TestLargeFlatSliceIsChunked(t *testing.T) {
	in := make([]uint32, chunkBytes)
	for i := range in {
		in[i] = uint32(i * 3)
	}
	b, err := Marshal(Slice(&in))
	require.NoError(t, err)

	var out []uint32
	require.NoError(t, Unmarshal(b, Slice(&out)))
	assert.Equal(t, in, out)
}

func TestUnsupportedType(t *testing.T) {
	type opaque struct {
		Items []int
	}
	_, err := Marshal(&opaque{})
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestTrailingBytes(t *testing.T) {
	var v uint32
	err := Unmarshal([]byte{1, 0, 0, 0, 9}, &v)
	assert.Error(t, err)
}
