package sign

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
)

// nextObjectID returns the object number the next addObject call will
// assign. Numbering starts right after the highest existing object and
// stays contiguous, so the caller can serialize cross-references
// between the new objects before appending them.
func (context *SignContext) nextObjectID() uint32 {
	return context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
}

// addObject appends a fully serialized object ("N 0 obj ... endobj")
// to the output buffer and records its xref entry.
func (context *SignContext) addObject(object []byte) (uint32, int64, error) {
	offset, err := context.OutputBuffer.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, err
	}

	id := context.nextObjectID()
	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{ID: id, Offset: offset})

	if _, err := context.OutputBuffer.Write(object); err != nil {
		return 0, 0, err
	}
	return id, offset, nil
}

// updateObject appends a replacement body for an existing object and
// records it as an updated xref entry (same number, new offset).
func (context *SignContext) updateObject(id, gen uint32, object []byte) error {
	offset, err := context.OutputBuffer.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	context.updatedXrefEntries = append(context.updatedXrefEntries, xrefEntry{ID: id, Gen: gen, Offset: offset})

	_, err = context.OutputBuffer.Write(object)
	return err
}

// writeXref appends the cross-reference section in the same form the
// source document uses, so viewers resolving the /Prev chain keep
// seeing a single consistent format.
func (context *SignContext) writeXref() error {
	start, err := context.OutputBuffer.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	context.NewXrefStart = start

	switch context.PDFReader.XrefInformation.Type {
	case "table":
		return context.writeIncrXrefTable()
	case "stream":
		return context.writeXrefStream()
	default:
		return fmt.Errorf("%w: unknown xref type %q", ErrCorruptXref, context.PDFReader.XrefInformation.Type)
	}
}

// writeIncrXrefTable writes a classic incremental xref table: one
// subsection per updated object, one contiguous subsection for the new
// objects. Entries are the mandated 20 bytes each.
func (context *SignContext) writeIncrXrefTable() error {
	if _, err := context.OutputBuffer.Write([]byte("xref\n")); err != nil {
		return err
	}

	for _, entry := range context.updatedXrefEntries {
		if _, err := fmt.Fprintf(context.OutputBuffer, "%d 1\n", entry.ID); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(context.OutputBuffer, "%010d %05d n\r\n", entry.Offset, entry.Gen); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(context.OutputBuffer, "%d %d\n", context.lastXrefID+1, len(context.newXrefEntries)); err != nil {
		return err
	}
	for _, entry := range context.newXrefEntries {
		if _, err := fmt.Fprintf(context.OutputBuffer, "%010d 00000 n\r\n", entry.Offset); err != nil {
			return err
		}
	}

	return nil
}

// writeXrefStream writes the appended section as a cross-reference
// stream object. The stream indexes the updated entries, the new
// objects and itself.
func (context *SignContext) writeXrefStream() error {
	streamID := context.nextObjectID()
	streamOffset := context.NewXrefStart

	var entries bytes.Buffer
	for _, entry := range context.updatedXrefEntries {
		writeXrefStreamLine(&entries, 1, entry.Offset, byte(entry.Gen))
	}
	for _, entry := range context.newXrefEntries {
		writeXrefStreamLine(&entries, 1, entry.Offset, 0)
	}
	writeXrefStreamLine(&entries, 1, streamOffset, 0)

	streamBytes, err := flateEncode(entries.Bytes())
	if err != nil {
		return fmt.Errorf("encode xref stream: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", streamID)
	buf.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&buf, "  /Length %d\n", len(streamBytes))
	buf.WriteString("  /Filter /FlateDecode\n")
	buf.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(&buf, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
	fmt.Fprintf(&buf, "  /Size %d\n", context.PDFReader.XrefInformation.ItemCount+int64(len(context.newXrefEntries))+1)

	buf.WriteString("  /Index [")
	for _, entry := range context.updatedXrefEntries {
		fmt.Fprintf(&buf, " %d 1", entry.ID)
	}
	fmt.Fprintf(&buf, " %d %d ]\n", context.lastXrefID+1, len(context.newXrefEntries)+1)

	fmt.Fprintf(&buf, "  /Root %d 0 R\n", context.CatalogData.ObjectId)

	id := context.PDFReader.Trailer().Key("ID")
	if !id.IsNull() && id.Len() == 2 {
		fmt.Fprintf(&buf, "  /ID [<%s><%s>]\n",
			hex.EncodeToString([]byte(id.Index(0).RawString())),
			hex.EncodeToString([]byte(id.Index(1).RawString())))
	}

	buf.WriteString(">>\nstream\n")
	buf.Write(streamBytes)
	buf.WriteString("\nendstream\nendobj\n")

	_, err = context.OutputBuffer.Write(buf.Bytes())
	return err
}

// writeXrefStreamLine emits one /W [1 4 1] row: type, 4-byte offset,
// generation.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int64, gen byte) {
	b.WriteByte(xreftype)
	var off [4]byte
	binary.BigEndian.PutUint32(off[:], uint32(offset))
	b.Write(off[:])
	b.WriteByte(gen)
}

func flateEncode(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
