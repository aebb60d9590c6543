package sign

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// writeTrailer appends the trailer of the incremental update. The new
// trailer points at the previous xref section through /Prev and at the
// replacement catalog through /Root; for the stream form the xref
// stream dictionary already carries those keys and only the startxref
// pointer remains.
func (context *SignContext) writeTrailer() error {
	var buf bytes.Buffer

	if context.PDFReader.XrefInformation.Type == "table" {
		buf.WriteString("trailer\n<<\n")
		fmt.Fprintf(&buf, "  /Size %d\n", context.PDFReader.XrefInformation.ItemCount+int64(len(context.newXrefEntries)))
		fmt.Fprintf(&buf, "  /Root %d 0 R\n", context.CatalogData.ObjectId)
		fmt.Fprintf(&buf, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)

		info := context.PDFReader.Trailer().Key("Info")
		if infoPtr := info.GetPtr(); infoPtr.GetID() != 0 {
			fmt.Fprintf(&buf, "  /Info %d %d R\n", infoPtr.GetID(), infoPtr.GetGen())
		}

		id := context.PDFReader.Trailer().Key("ID")
		if !id.IsNull() && id.Len() == 2 {
			fmt.Fprintf(&buf, "  /ID [<%s><%s>]\n",
				hex.EncodeToString([]byte(id.Index(0).RawString())),
				hex.EncodeToString([]byte(id.Index(1).RawString())))
		}

		buf.WriteString(">>\n")
	}

	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", context.NewXrefStart)

	_, err := context.OutputBuffer.Write(buf.Bytes())
	return err
}
