package core

import (
	"errors"
)

var (
	// file format
	ErrInvalidMagic       = errors.New("invalid magic")
	ErrNonUniformTopology = errors.New("corner count is not a multiple of face count")
	ErrMaterialOutOfRange = errors.New("material index out of range")
	ErrBufferSizeMismatch = errors.New("attribute buffer size does not match its domain")

	// attribute catalog
	ErrInvalidAttributeType   = errors.New("invalid attribute type")
	ErrInvalidAttributeDomain = errors.New("invalid attribute domain")
	ErrInvalidRotationMode    = errors.New("invalid rotation mode")

	// gpu attribute store
	ErrAttributeExists    = errors.New("attribute already exists")
	ErrAttributeNotFound  = errors.New("attribute not found")
	ErrForeignAttribute   = errors.New("attribute does not belong to this mesh")
	ErrMorphsExist        = errors.New("attribute already has morphs")
	ErrAllocatorExhausted = errors.New("allocator capacity exhausted")
	ErrKernelUnavailable  = errors.New("compute kernel not loaded")

	ErrUnknown = errors.New("unknown")
)
