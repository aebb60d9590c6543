// Package verify inspects and checks signatures embedded in signed
// documents. It walks the interactive form's signature fields, parses
// each detached CMS container and verifies it against the document's
// byte ranges.
package verify

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/ocsp"

	"github.com/brdoc/padessign/revocation"
)

var (
	// ErrNoSignatures reports a document whose form carries no
	// signature fields with a value.
	ErrNoSignatures = errors.New("verify: document has no signatures")
)

var oidTimeStampToken = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
var oidRevocationInfoArchival = asn1.ObjectIdentifier{1, 2, 840, 113583, 1, 1, 8}

// Response aggregates the verification outcome for every signature in
// a document.
type Response struct {
	Signers []Signer
}

// Signer is the verification result of one signature field.
type Signer struct {
	Name        string
	Reason      string
	Location    string
	ContactInfo string
	SigningTime time.Time

	// ValidSignature means the CMS signature verified over the byte
	// ranges; TrustedIssuer additionally means the chain built to a
	// certificate embedded in the container.
	ValidSignature     bool
	TrustedIssuer      bool
	RevokedCertificate bool

	// WholeDocument means the byte ranges cover everything except the
	// signature contents, i.e. no content was appended after signing.
	WholeDocument bool

	Certificates []Certificate
	TimeStamp    *timestamp.Timestamp
}

// Certificate pairs an embedded certificate with its chain and
// revocation findings.
type Certificate struct {
	Certificate  *x509.Certificate
	VerifyError  string
	OCSPResponse *ocsp.Response
	OCSPEmbedded bool
	CRLEmbedded  bool
}

// File verifies all signatures of the document in path.
func File(path string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Reader(f, info.Size())
}

// Bytes verifies all signatures of an in-memory document.
func Bytes(data []byte) (*Response, error) {
	return Reader(bytes.NewReader(data), int64(len(data)))
}

// Reader verifies all signatures of the document available through r.
func Reader(r io.ReaderAt, size int64) (*Response, error) {
	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("verify: open document: %w", err)
	}

	fields := rdr.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.IsNull() {
		return nil, ErrNoSignatures
	}

	response := &Response{}
	for i := 0; i < fields.Len(); i++ {
		field := fields.Index(i)
		if field.Key("FT").Name() != "Sig" {
			continue
		}
		value := field.Key("V")
		if value.IsNull() {
			continue
		}

		signer, err := verifySignatureDict(r, size, value)
		if err != nil {
			return nil, err
		}
		response.Signers = append(response.Signers, *signer)
	}

	if len(response.Signers) == 0 {
		return nil, ErrNoSignatures
	}
	return response, nil
}

func verifySignatureDict(r io.ReaderAt, size int64, v pdf.Value) (*Signer, error) {
	signer := &Signer{
		Name:        v.Key("Name").Text(),
		Reason:      v.Key("Reason").Text(),
		Location:    v.Key("Location").Text(),
		ContactInfo: v.Key("ContactInfo").Text(),
	}

	contents := []byte(v.Key("Contents").RawString())
	// The reservation is right-padded with zero bytes after hex
	// decoding; they are not part of the DER structure.
	contents = bytes.TrimRight(contents, "\x00")
	if len(contents) == 0 {
		return nil, fmt.Errorf("verify: signature field has empty contents")
	}

	p7, err := pkcs7.Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("verify: parse signature container: %w", err)
	}

	byteRange := v.Key("ByteRange")
	if byteRange.Len() != 4 {
		return nil, fmt.Errorf("verify: byte range has %d values, want 4", byteRange.Len())
	}
	var ranges [4]int64
	for i := 0; i < 4; i++ {
		ranges[i] = byteRange.Index(i).Int64()
	}
	for i := 0; i < 4; i += 2 {
		part, err := io.ReadAll(io.NewSectionReader(r, ranges[i], ranges[i+1]))
		if err != nil {
			return nil, fmt.Errorf("verify: read byte range: %w", err)
		}
		p7.Content = append(p7.Content, part...)
	}
	signer.WholeDocument = ranges[0] == 0 && ranges[2]+ranges[3] == size

	certPool := x509.NewCertPool()
	for _, cert := range p7.Certificates {
		certPool.AddCert(cert)
	}

	if err := p7.VerifyWithChain(certPool); err == nil {
		signer.ValidSignature = true
		signer.TrustedIssuer = true
	} else if err := p7.Verify(); err == nil {
		signer.ValidSignature = true
	}

	for _, si := range p7.Signers {
		for _, attr := range si.UnauthenticatedAttributes {
			if attr.Type.Equal(oidTimeStampToken) {
				ts, err := timestamp.Parse(attr.Value.Bytes)
				if err == nil {
					signer.TimeStamp = ts
				}
				break
			}
		}
	}

	var revInfo revocation.InfoArchival
	_ = p7.UnmarshalSignedAttribute(oidRevocationInfoArchival, &revInfo)

	ocspBySerial := make(map[string]*ocsp.Response)
	for _, raw := range revInfo.OCSP {
		resp, err := ocsp.ParseResponse(raw.FullBytes, nil)
		if err != nil {
			continue
		}
		ocspBySerial[resp.SerialNumber.String()] = resp
	}

	for _, cert := range p7.Certificates {
		c := Certificate{Certificate: cert}

		if _, err := cert.Verify(x509.VerifyOptions{
			Intermediates: certPool,
			CurrentTime:   cert.NotBefore,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err != nil {
			c.VerifyError = err.Error()
		}

		if resp, ok := ocspBySerial[cert.SerialNumber.String()]; ok {
			c.OCSPResponse = resp
			c.OCSPEmbedded = true
			if resp.Status != ocsp.Good {
				signer.RevokedCertificate = true
			}
		}
		if len(revInfo.CRL) > 0 {
			c.CRLEmbedded = true
			if revInfo.IsRevoked(cert) {
				signer.RevokedCertificate = true
			}
		}

		signer.Certificates = append(signer.Certificates, c)
	}

	if mRaw := v.Key("M"); !mRaw.IsNull() {
		if t, err := parsePDFDate(mRaw.RawString()); err == nil {
			signer.SigningTime = t
		}
	}

	return signer, nil
}

// parsePDFDate reads the D:YYYYMMDDHHmmSS form with an optional
// timezone suffix.
func parsePDFDate(s string) (time.Time, error) {
	if len(s) >= 2 && s[:2] == "D:" {
		s = s[2:]
	}
	if len(s) < 14 {
		return time.Time{}, fmt.Errorf("verify: date %q too short", s)
	}
	base, err := time.Parse("20060102150405", s[:14])
	if err != nil {
		return time.Time{}, err
	}
	rest := s[14:]
	if len(rest) == 0 || rest[0] == 'Z' {
		return base, nil
	}
	// Timezone suffix is ±HH'mm'.
	if len(rest) >= 7 && (rest[0] == '+' || rest[0] == '-') {
		var hh, mm int
		if _, err := fmt.Sscanf(rest[1:], "%02d'%02d'", &hh, &mm); err == nil {
			seconds := hh*3600 + mm*60
			if rest[0] == '-' {
				seconds = -seconds
			}
			zone := time.FixedZone("", seconds)
			return base.Add(-time.Duration(seconds) * time.Second).In(zone), nil
		}
	}
	return base, nil
}
