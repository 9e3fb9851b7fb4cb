package serial

import (
	"encoding/binary"
	"maps"
	"slices"

	"golang.org/x/exp/constraints"
)

const (
	// Upper bound accepted for any length prefix.
	maxLength uint64 = 1 << 34
	// Largest block allocated in one go while decoding.
	chunkBytes = 1 << 16
)

// IsFlat reports whether values of T are written as raw bytes.
func IsFlat[T any]() bool {
	var zero T
	if _, ok := any(&zero).(Field); ok {
		return false
	}
	return binary.Size(&zero) >= 0
}

type sliceField[T any] struct {
	s    *[]T
	elem func(*T) Field
	flat bool
}

// Slice encodes a sequence as a u64 count followed by its elements. A
// sequence of flat elements is copied as one raw block.
func Slice[T any](s *[]T) Field {
	return sliceField[T]{s: s, flat: IsFlat[T]()}
}

// SliceFunc is Slice with every element wrapped by elem, for element types
// that need an adapter of their own (e.g. []*T with Ptr).
func SliceFunc[T any](s *[]T, elem func(*T) Field) Field {
	return sliceField[T]{s: s, elem: elem}
}

func (f sliceField[T]) EncodeField(w *Writer) {
	w.WriteLen(len(*f.s))
	if len(*f.s) == 0 {
		return
	}
	if f.flat {
		w.writeFixed(*f.s)
		return
	}
	for i := range *f.s {
		if f.elem != nil {
			w.WriteValue(f.elem(&(*f.s)[i]))
		} else {
			w.WriteValue(&(*f.s)[i])
		}
		if w.Err() != nil {
			return
		}
	}
}

func (f sliceField[T]) DecodeField(r *Reader) {
	n := r.ReadLen()
	if r.Err() != nil {
		return
	}
	if n == 0 {
		*f.s = nil
		return
	}
	if f.flat {
		*f.s = readFlat[T](r, n)
		return
	}
	out := make([]T, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		var zero T
		out = append(out, zero)
		if f.elem != nil {
			r.ReadValue(f.elem(&out[i]))
		} else {
			r.ReadValue(&out[i])
		}
		if r.Err() != nil {
			return
		}
	}
	*f.s = out
}

// readFlat reads n flat elements in bounded chunks.
func readFlat[T any](r *Reader, n int) []T {
	var zero T
	size := binary.Size(&zero)
	step := n
	if size > 0 {
		step = max(1, chunkBytes/size)
	}
	out := make([]T, 0, min(n, step))
	for len(out) < n && r.Err() == nil {
		count := min(step, n-len(out))
		chunk := make([]T, count)
		r.readFixed(chunk)
		out = append(out, chunk...)
	}
	if r.Err() != nil {
		return nil
	}
	return out
}

type ptrField[T any] struct {
	p **T
}

// Ptr encodes an optional owned value as a one byte presence flag followed
// by the pointee. An absent value decodes to nil.
func Ptr[T any](p **T) Field {
	return ptrField[T]{p: p}
}

func (f ptrField[T]) EncodeField(w *Writer) {
	if *f.p == nil {
		w.writeFixed(uint8(0))
		return
	}
	w.writeFixed(uint8(1))
	w.WriteValue(*f.p)
}

func (f ptrField[T]) DecodeField(r *Reader) {
	var present uint8
	r.readFixed(&present)
	switch {
	case r.Err() != nil:
		return
	case present == 0:
		*f.p = nil
	case present == 1:
		v := new(T)
		r.ReadValue(v)
		*f.p = v
	default:
		r.Fail(ErrInvalidPresence)
	}
}

type bytesField struct {
	b *[]byte
}

// Bytes encodes a raw byte buffer as a u64 length followed by the bytes.
func Bytes(b *[]byte) Field {
	return bytesField{b: b}
}

func (f bytesField) EncodeField(w *Writer) {
	w.WriteLen(len(*f.b))
	w.WriteRaw(*f.b)
}

func (f bytesField) DecodeField(r *Reader) {
	n := r.ReadLen()
	if n == 0 {
		*f.b = nil
		return
	}
	*f.b = r.readBytes(n)
}

type mapField[K constraints.Ordered, V any] struct {
	m *map[K]V
}

// Map encodes an ordered map as a u64 count followed by key/value pairs in
// ascending key order.
func Map[K constraints.Ordered, V any](m *map[K]V) Field {
	return mapField[K, V]{m: m}
}

func (f mapField[K, V]) EncodeField(w *Writer) {
	w.WriteLen(len(*f.m))
	for _, k := range slices.Sorted(maps.Keys(*f.m)) {
		v := (*f.m)[k]
		w.WriteValue(&k)
		w.WriteValue(&v)
		if w.Err() != nil {
			return
		}
	}
}

func (f mapField[K, V]) DecodeField(r *Reader) {
	n := r.ReadLen()
	if r.Err() != nil || n == 0 {
		*f.m = nil
		return
	}
	out := make(map[K]V, min(n, 1024))
	for i := 0; i < n; i++ {
		var k K
		var v V
		r.ReadValue(&k)
		r.ReadValue(&v)
		if r.Err() != nil {
			return
		}
		out[k] = v
	}
	*f.m = out
}

type setField[T constraints.Ordered] struct {
	s *map[T]struct{}
}

// Set encodes an unordered set like a sequence. Elements are written in
// ascending order so equal sets produce equal bytes.
func Set[T constraints.Ordered](s *map[T]struct{}) Field {
	return setField[T]{s: s}
}

func (f setField[T]) EncodeField(w *Writer) {
	w.WriteLen(len(*f.s))
	for _, v := range slices.Sorted(maps.Keys(*f.s)) {
		w.WriteValue(&v)
		if w.Err() != nil {
			return
		}
	}
}

func (f setField[T]) DecodeField(r *Reader) {
	n := r.ReadLen()
	if r.Err() != nil || n == 0 {
		*f.s = nil
		return
	}
	out := make(map[T]struct{}, min(n, 1024))
	for i := 0; i < n; i++ {
		var v T
		r.ReadValue(&v)
		if r.Err() != nil {
			return
		}
		out[v] = struct{}{}
	}
	*f.s = out
}
