package serial

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// FromBytes reinterprets a raw attribute buffer as a slice of flat elements.
func FromBytes[T any](b []byte) ([]T, error) {
	var zero T
	size := binary.Size(&zero)
	if size <= 0 {
		return nil, errors.Wrapf(ErrUnsupportedType, "decode %T", zero)
	}
	if len(b)%size != 0 {
		return nil, errors.Errorf("buffer of %d bytes is not a multiple of %T (%d bytes)", len(b), zero, size)
	}
	out := make([]T, len(b)/size)
	if len(out) == 0 {
		return out, nil
	}
	if err := binary.Read(bytes.NewReader(b), ByteOrder, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToBytes is the inverse of FromBytes.
func ToBytes[T any](s []T) ([]byte, error) {
	if !IsFlat[T]() {
		var zero T
		return nil, errors.Wrapf(ErrUnsupportedType, "encode %T", zero)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, ByteOrder, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
