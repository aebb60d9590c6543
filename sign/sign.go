package sign

import (
	"bytes"
	"crypto"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
)

// SignFile reads input, signs it and writes the result to output. The
// whole document is processed in memory; this wrapper only performs
// the surrounding file I/O.
func SignFile(input string, output string, signData SignData) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	signed, err := SignBytes(data, signData)
	if err != nil {
		return err
	}

	return os.WriteFile(output, signed, 0o644)
}

// SignBytes signs a PDF held in memory and returns the signed
// document: the original bytes, untouched, followed by one appended
// incremental update carrying the signature.
func SignBytes(input []byte, signData SignData) ([]byte, error) {
	reader := bytes.NewReader(input)

	rdr, err := OpenReader(reader, int64(len(input)))
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	if err := Sign(reader, &output, rdr, int64(len(input)), signData); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// Sign runs the signing pipeline over an already-parsed document and
// writes the complete signed file to output. Each call owns its
// context; concurrent calls never share state.
func Sign(input io.ReadSeeker, output io.Writer, rdr *pdf.Reader, size int64, signData SignData) error {
	context := &SignContext{
		PDFReader:  rdr,
		InputFile:  input,
		OutputFile: output,
		SignData:   signData,
	}

	return context.SignPDF()
}

// SignPDF executes the pipeline: defaults and identity validation,
// revocation collection, placeholder reservation, object and xref
// serialization, byte-range rewrite, container creation and the final
// fixed-offset patch. Any failure leaves the output writer untouched.
func (context *SignContext) SignPDF() error {
	if !context.SignData.DigestAlgorithm.Available() {
		context.SignData.DigestAlgorithm = crypto.SHA256
	}
	if context.SignData.Page == 0 {
		context.SignData.Page = 1
	}
	if context.SignData.Info.Date.IsZero() {
		context.SignData.Info.Date = time.Now()
	}

	if context.SignData.Certificate == nil {
		return fmt.Errorf("certificate is required")
	}
	if context.SignData.Signer == nil {
		return fmt.Errorf("signer is required")
	}
	if context.SignData.Info.Name == "" {
		context.SignData.Info.Name = context.SignData.Certificate.Subject.CommonName
	}

	if err := ValidateSignerCertificateMatch(context.SignData.Signer, context.SignData.Certificate); err != nil {
		return err
	}

	// Everything below appends; existing object numbers and offsets
	// stay valid for the whole operation.
	context.lastXrefID = uint32(context.PDFReader.XrefInformation.ItemCount) - 1

	page, err := context.findPage(context.SignData.Page)
	if err != nil {
		return err
	}
	if err := context.fetchExistingFields(); err != nil {
		return err
	}

	// Revocation material lands inside the container, so it must be
	// collected before the reservation is sized.
	if err := context.fetchRevocationData(); err != nil {
		return fmt.Errorf("fetch revocation data: %w", err)
	}
	if err := context.estimateSignatureMaxLength(); err != nil {
		return err
	}

	context.OutputBuffer = filebuffer.New([]byte{})
	if _, err := context.InputFile.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(context.OutputBuffer, context.InputFile); err != nil {
		return err
	}

	// The appended section needs its own line after %%EOF.
	if _, err := context.OutputBuffer.Write([]byte("\n")); err != nil {
		return err
	}

	// Object numbers are allocated in append order: signature
	// dictionary, widget, catalog, then (stream form only) the xref
	// stream itself.
	context.SignData.objectId = context.nextObjectID()
	context.VisualSignData.objectId = context.SignData.objectId + 1
	context.CatalogData.ObjectId = context.SignData.objectId + 2

	signatureObject, byteRangeRel, contentsRel := context.createSignaturePlaceholder()
	_, signatureOffset, err := context.addObject(signatureObject)
	if err != nil {
		return fmt.Errorf("add signature object: %w", err)
	}
	context.ByteRangeStartByte = signatureOffset + byteRangeRel
	context.SignatureContentsStartByte = signatureOffset + contentsRel

	rect := [4]float64{0, 0, 0, 0}
	if context.SignData.Visible {
		rect = context.SignData.Rect
	}
	visualSignature, err := context.createVisualSignature(page, rect)
	if err != nil {
		return fmt.Errorf("create visual signature: %w", err)
	}
	if _, _, err := context.addObject(visualSignature); err != nil {
		return fmt.Errorf("add visual signature object: %w", err)
	}

	if context.SignData.Visible {
		pageUpdate, err := context.createIncPageUpdate(page, context.VisualSignData.objectId)
		if err != nil {
			return fmt.Errorf("create page update: %w", err)
		}
		if err := context.updateObject(context.VisualSignData.pageObjectId, context.VisualSignData.pageObjectGen, pageUpdate); err != nil {
			return fmt.Errorf("add page update object: %w", err)
		}
	}

	catalog, err := context.createCatalog()
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	if _, _, err := context.addObject(catalog); err != nil {
		return fmt.Errorf("add catalog object: %w", err)
	}

	if err := context.writeXref(); err != nil {
		return fmt.Errorf("write xref: %w", err)
	}
	if err := context.writeTrailer(); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}

	if err := context.updateByteRange(); err != nil {
		return fmt.Errorf("update byte range: %w", err)
	}

	if err := context.replaceSignature(); err != nil {
		return fmt.Errorf("replace signature: %w", err)
	}

	if _, err := context.OutputBuffer.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := context.OutputFile.Write(context.OutputBuffer.Buff.Bytes()); err != nil {
		return err
	}

	return nil
}
