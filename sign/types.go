package sign

import (
	"crypto"
	"crypto/x509"
	"io"
	"time"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"

	"github.com/brdoc/padessign/revocation"
)

// TSA describes an RFC 3161 timestamp authority used for PAdES B-T
// signatures. Leave URL empty to produce a plain B-B signature.
type TSA struct {
	URL      string
	Username string
	Password string
}

// RevocationFunction collects revocation material (OCSP responses,
// CRLs) for a certificate and its issuer into the archival container.
// It runs before the placeholder is sized so the reservation can hold
// the collected bytes.
type RevocationFunction func(cert, issuer *x509.Certificate, i *revocation.InfoArchival) error

// SignatureInfo carries the human-readable signature dictionary
// entries (/Name, /Location, /Reason, /ContactInfo, /M).
type SignatureInfo struct {
	Name        string
	Location    string
	Reason      string
	ContactInfo string
	Date        time.Time
}

// SignData is the per-invocation signing configuration. A zero value
// is completed with defaults by SignPDF.
type SignData struct {
	Signer          crypto.Signer
	DigestAlgorithm crypto.Hash
	Certificate     *x509.Certificate

	// CertificateChain holds the intermediates, leaf excluded,
	// ordered towards the root.
	CertificateChain []*x509.Certificate

	Info SignatureInfo
	TSA  TSA

	RevocationData     revocation.InfoArchival
	RevocationFunction RevocationFunction

	// Visible attaches the widget with Rect on Page; the default is
	// an invisible zero-area widget on the first page.
	Visible bool
	Rect    [4]float64
	Page    uint32

	// SignatureSizeOverride fixes the reserved /Contents length (in
	// bytes, before hex encoding) instead of estimating it from the
	// signing identity. The reservation is never resized afterwards.
	SignatureSizeOverride uint32

	objectId uint32
}

// CatalogData tracks the replacement document catalog appended by the
// incremental update.
type CatalogData struct {
	ObjectId uint32
}

// VisualSignData tracks the widget annotation (signature field) and
// the page object it attaches to.
type VisualSignData struct {
	pageObjectId  uint32
	pageObjectGen uint32
	objectId      uint32
}

type xrefEntry struct {
	ID     uint32
	Gen    uint32
	Offset int64
}

// SignContext owns the state of one signing operation: the parsed
// input document, the output buffer being appended to, and the byte
// offsets of the reserved signature placeholder.
type SignContext struct {
	InputFile    io.ReadSeeker
	OutputFile   io.Writer
	OutputBuffer *filebuffer.Buffer
	SignData     SignData
	PDFReader    *pdf.Reader

	CatalogData    CatalogData
	VisualSignData VisualSignData

	// ByteRangeStartByte is the absolute offset of the /ByteRange
	// sentinel; SignatureContentsStartByte is the absolute offset of
	// the '<' opening the reserved hex string.
	ByteRangeStartByte         int64
	SignatureContentsStartByte int64
	ByteRangeValues            []int64

	// SignatureMaxLength is the reserved /Contents length in hex
	// digits, fixed before any offset is computed.
	SignatureMaxLength uint32

	NewXrefStart int64

	existingFields     []uint32
	existingSignatures int
	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries []xrefEntry
}
