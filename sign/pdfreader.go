package sign

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/digitorus/pdf"
)

// tailScanWindow bounds the backward scan used to classify reader
// failures; trailers of well-formed documents fit comfortably.
const tailScanWindow = 2048

// OpenReader parses the document's trailer, cross-reference chain and
// object graph. Failures are classified into the parse error taxonomy
// so callers can distinguish a missing trailer from corrupt offsets or
// an encrypted document.
func OpenReader(input io.ReaderAt, size int64) (*pdf.Reader, error) {
	rdr, err := pdf.NewReader(input, size)
	if err != nil {
		return nil, classifyReaderError(input, size, err)
	}

	if !rdr.Trailer().Key("Encrypt").IsNull() {
		return nil, ErrEncrypted
	}

	return rdr, nil
}

func classifyReaderError(input io.ReaderAt, size int64, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}

	window := size
	if window > tailScanWindow {
		window = tailScanWindow
	}
	tail := make([]byte, window)
	if _, rerr := input.ReadAt(tail, size-window); rerr != nil && rerr != io.EOF {
		return fmt.Errorf("%w: %v", ErrCorruptXref, err)
	}

	if bytes.Contains(tail, []byte("/Encrypt")) {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	if !bytes.Contains(tail, []byte("startxref")) {
		return fmt.Errorf("%w: %v", ErrNoTrailer, err)
	}
	return fmt.Errorf("%w: %v", ErrCorruptXref, err)
}

// findPage returns the page object the widget annotation attaches to,
// counting from 1 in document order.
func (context *SignContext) findPage(number uint32) (pdf.Value, error) {
	root := context.PDFReader.Trailer().Key("Root")
	pagesNode := root.Key("Pages")
	if pagesNode.IsNull() {
		return pdf.Value{}, ErrNoPages
	}

	pages := collectPages(pagesNode)
	if len(pages) == 0 {
		return pdf.Value{}, ErrNoPages
	}
	if number == 0 || int(number) > len(pages) {
		return pdf.Value{}, fmt.Errorf("%w: page %d of %d", ErrNoPages, number, len(pages))
	}
	return pages[number-1], nil
}

// fetchExistingFields records the object numbers of all AcroForm
// fields so the replacement catalog keeps referencing them, and counts
// how many are signature fields for naming the new one.
func (context *SignContext) fetchExistingFields() error {
	context.existingFields = nil
	context.existingSignatures = 0

	acroForm := context.PDFReader.Trailer().Key("Root").Key("AcroForm")
	if acroForm.IsNull() {
		return nil
	}

	fields := acroForm.Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		field := fields.Index(i)
		ptr := field.GetPtr()
		if ptr.GetID() == 0 {
			// Direct field dictionaries cannot be re-referenced from
			// the new AcroForm; the incremental update must not lose
			// them either, so reject rather than drop.
			return fmt.Errorf("%w: AcroForm field %d is not an indirect object", ErrCorruptXref, i)
		}
		context.existingFields = append(context.existingFields, uint32(ptr.GetID()))
		if field.Key("FT").String() == "/Sig" {
			context.existingSignatures++
		}
	}
	return nil
}
