// Package padessign signs PDF documents with PAdES baseline
// signatures.
//
// A signature is appended as a single incremental update: the input
// bytes are never modified, a signature dictionary with a detached
// CMS container is added to the document's interactive form, and the
// container covers every byte of the file except its own reservation.
// Identities come from PKCS#12 archives; signatures can optionally
// carry an RFC 3161 timestamp and embedded OCSP/CRL material.
//
// The top-level Sign, SignWithIdentity and SignFile functions cover
// common use. The sign subpackage exposes the pipeline for callers
// that need custom signers, such as HSM-backed crypto.Signer
// implementations.
package padessign
