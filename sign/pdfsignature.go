package sign

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/digitorus/pdf"
)

// signatureByteRangePlaceholder is the /ByteRange sentinel. It is
// rewritten in place with the final offsets before digesting; ten
// digits per value cover documents up to ~10 GB.
const signatureByteRangePlaceholder = "/ByteRange[0 ********** ********** **********]"

// createSignaturePlaceholder serializes the signature dictionary with
// a zero-filled /Contents reservation of SignatureMaxLength hex
// digits. It returns the object bytes and the offsets, relative to the
// object start, of the /ByteRange sentinel and of the '<' opening the
// reservation.
func (context *SignContext) createSignaturePlaceholder() (object []byte, byteRangeStart int64, contentsStart int64) {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(int(context.SignData.objectId)) + " 0 obj\n")
	buf.WriteString("<< /Type /Sig")
	buf.WriteString(" /Filter /Adobe.PPKLite")
	buf.WriteString(" /SubFilter /adbe.pkcs7.detached")

	buf.WriteString(" ")
	byteRangeStart = int64(buf.Len())
	buf.WriteString(signatureByteRangePlaceholder)

	buf.WriteString(" /Contents")
	contentsStart = int64(buf.Len())
	buf.WriteString("<")
	buf.Write(bytes.Repeat([]byte("0"), int(context.SignatureMaxLength)))
	buf.WriteString(">")

	if context.SignData.Info.Name != "" {
		buf.WriteString(" /Name " + pdfString(context.SignData.Info.Name))
	}
	if context.SignData.Info.Location != "" {
		buf.WriteString(" /Location " + pdfString(context.SignData.Info.Location))
	}
	if context.SignData.Info.Reason != "" {
		buf.WriteString(" /Reason " + pdfString(context.SignData.Info.Reason))
	}
	if context.SignData.Info.ContactInfo != "" {
		buf.WriteString(" /ContactInfo " + pdfString(context.SignData.Info.ContactInfo))
	}
	buf.WriteString(" /M " + pdfDateTime(context.SignData.Info.Date))

	buf.WriteString(" /Prop_Build << /Filter << /Name /Adobe.PPKLite >> >>")

	buf.WriteString(" >>\nendobj\n")

	return buf.Bytes(), byteRangeStart, contentsStart
}

// createVisualSignature serializes the widget annotation carrying the
// signature field. Invisible signatures get a zero-area rectangle.
func (context *SignContext) createVisualSignature(page pdf.Value, rect [4]float64) ([]byte, error) {
	pagePtr := page.GetPtr()
	if pagePtr.GetID() == 0 {
		return nil, fmt.Errorf("%w: page object is not indirect", ErrCorruptXref)
	}
	context.VisualSignData.pageObjectId = uint32(pagePtr.GetID())
	context.VisualSignData.pageObjectGen = uint32(pagePtr.GetGen())

	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(int(context.VisualSignData.objectId)) + " 0 obj\n")
	buf.WriteString("<< /Type /Annot")
	buf.WriteString(" /Subtype /Widget")
	fmt.Fprintf(&buf, " /Rect [%g %g %g %g]", rect[0], rect[1], rect[2], rect[3])
	buf.WriteString(" /P " + strconv.Itoa(int(pagePtr.GetID())) + " " + strconv.Itoa(int(pagePtr.GetGen())) + " R")
	buf.WriteString(" /F 4")
	buf.WriteString(" /FT /Sig")
	buf.WriteString(" /T " + pdfString(fmt.Sprintf("Signature%d", context.existingSignatures+1)))
	buf.WriteString(" /Ff 0")
	buf.WriteString(" /V " + strconv.Itoa(int(context.SignData.objectId)) + " 0 R")
	buf.WriteString(" >>\nendobj\n")

	return buf.Bytes(), nil
}

// createIncPageUpdate re-emits the page object with the widget added
// to /Annots, preserving every other entry. The page keeps its object
// number; only its xref entry moves to the appended section.
func (context *SignContext) createIncPageUpdate(page pdf.Value, annot uint32) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n<<\n", context.VisualSignData.pageObjectId, context.VisualSignData.pageObjectGen)

	for _, key := range page.Keys() {
		if key == "Annots" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s %s\n", key, serializeValue(page.Key(key)))
	}

	buf.WriteString("  /Annots [")
	annots := page.Key("Annots")
	for i := 0; i < annots.Len(); i++ {
		buf.WriteString(serializeValue(annots.Index(i)) + " ")
	}
	fmt.Fprintf(&buf, "%d 0 R]\n", annot)

	buf.WriteString(">>\nendobj\n")
	return buf.Bytes(), nil
}
