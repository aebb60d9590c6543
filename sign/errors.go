package sign

import "errors"

// Parse failures, detected before any object is appended.
var (
	ErrNoTrailer   = errors.New("pdf: no trailer or startxref marker found")
	ErrCorruptXref = errors.New("pdf: corrupt cross-reference data")
	ErrEncrypted   = errors.New("pdf: document is encrypted")
	ErrNoPages     = errors.New("pdf: document has no pages")
)

// Signing failures. All are deterministic for a given input; none is
// retried internally.
var (
	ErrRangeOverflow        = errors.New("sign: byte range offset outside output buffer")
	ErrKeyAlgorithmMismatch = errors.New("sign: unsupported signing key type")
	ErrContainerTooLarge    = errors.New("sign: signature container exceeds reserved placeholder")
)
