// Package serial implements the structural binary encoding shared by the
// mesh and scene file formats.
//
// A value is written as raw little-endian bytes when its layout is fixed.
// Otherwise it must either list its fields in declaration order (Composite)
// or encode itself (Field). Containers are wrapped with the adapters in
// containers.go, which add explicit u64 length prefixes. The field order is
// the wire format: writer and reader must agree on it, there is no
// versioning. Empty containers decode as nil.
package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

var ByteOrder = binary.LittleEndian

var (
	ErrUnsupportedType = errors.New("value has neither a fixed layout nor a field list")
	ErrLengthOverflow  = errors.New("encoded length does not fit in memory")
	ErrInvalidPresence = errors.New("invalid presence flag")
)

// Composite is implemented by aggregates that are not flat. Fields returns
// pointers to every serialized field, in declaration order.
type Composite interface {
	Fields() []any
}

// Field is implemented by values that encode themselves, typically the
// container adapters.
type Field interface {
	EncodeField(w *Writer)
	DecodeField(r *Reader)
}

// Writer wraps an io.Writer and keeps the first error it sees. Every call
// after a failure is a no-op.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Err() error {
	return w.err
}

// Fail records err unless an earlier error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *Writer) WriteRaw(p []byte) {
	if w.err != nil {
		return
	}
	_, err := w.w.Write(p)
	w.Fail(err)
}

func (w *Writer) WriteLen(n int) {
	w.writeFixed(uint64(n))
}

func (w *Writer) WriteValue(v any) {
	if w.err != nil {
		return
	}
	switch x := v.(type) {
	case Field:
		x.EncodeField(w)
	case Composite:
		for _, f := range x.Fields() {
			w.WriteValue(f)
			if w.err != nil {
				return
			}
		}
	case *string:
		w.WriteLen(len(*x))
		w.WriteRaw([]byte(*x))
	case *[]byte:
		Bytes(x).EncodeField(w)
	default:
		w.writeFixed(v)
	}
}

func (w *Writer) writeFixed(v any) {
	if w.err != nil {
		return
	}
	if binary.Size(v) < 0 {
		w.Fail(errors.Wrapf(ErrUnsupportedType, "encode %T", v))
		return
	}
	w.Fail(binary.Write(w.w, ByteOrder, v))
}

// Reader mirrors Writer.
type Reader struct {
	r   io.Reader
	err error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Fail(err error) {
	if r.err == nil && err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
	}
}

func (r *Reader) ReadRaw(p []byte) {
	if r.err != nil {
		return
	}
	_, err := io.ReadFull(r.r, p)
	r.Fail(err)
}

func (r *Reader) ReadLen() int {
	var n uint64
	r.readFixed(&n)
	if r.err != nil {
		return 0
	}
	if n > maxLength || n > math.MaxInt {
		r.Fail(errors.Wrapf(ErrLengthOverflow, "length %d", n))
		return 0
	}
	return int(n)
}

// readBytes reads n bytes without trusting n for a single up-front
// allocation, so a corrupt length fails with io.ErrUnexpectedEOF.
func (r *Reader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n <= chunkBytes {
		p := make([]byte, n)
		r.ReadRaw(p)
		return p
	}
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, int64(n))
	if err == nil && copied != int64(n) {
		err = io.ErrUnexpectedEOF
	}
	r.Fail(err)
	return buf.Bytes()
}

func (r *Reader) ReadValue(v any) {
	if r.err != nil {
		return
	}
	switch x := v.(type) {
	case Field:
		x.DecodeField(r)
	case Composite:
		for _, f := range x.Fields() {
			r.ReadValue(f)
			if r.err != nil {
				return
			}
		}
	case *string:
		n := r.ReadLen()
		*x = string(r.readBytes(n))
	case *[]byte:
		Bytes(x).DecodeField(r)
	default:
		r.readFixed(v)
	}
}

func (r *Reader) readFixed(v any) {
	if r.err != nil {
		return
	}
	if binary.Size(v) < 0 {
		r.Fail(errors.Wrapf(ErrUnsupportedType, "decode %T", v))
		return
	}
	r.Fail(binary.Read(r.r, ByteOrder, v))
}

// Encode writes every value in order. Values must be pointers, Fields or
// Composites.
func Encode(w io.Writer, values ...any) error {
	sw := NewWriter(w)
	for _, v := range values {
		sw.WriteValue(v)
	}
	return sw.Err()
}

// Decode reads every value in order. Values must be pointers.
func Decode(r io.Reader, values ...any) error {
	sr := NewReader(r)
	for _, v := range values {
		sr.ReadValue(v)
	}
	return sr.Err()
}

func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte, v any) error {
	br := bytes.NewReader(b)
	if err := Decode(br, v); err != nil {
		return err
	}
	if br.Len() != 0 {
		return fmt.Errorf("unmarshal %T: %d trailing bytes", v, br.Len())
	}
	return nil
}
