package padessign

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brdoc/padessign/pfx"
	"github.com/brdoc/padessign/revocation"
	"github.com/brdoc/padessign/sign"
)

// Defaults applied when an Options field is left empty.
const (
	DefaultReason   = "Assinatura digital conforme ICP-Brasil"
	DefaultLocation = "Brasil"
	DefaultTSAURL   = "http://timestamp.iti.gov.br/"
)

// Options controls one signing operation.
type Options struct {
	// Signature metadata. Empty Reason and Location take the package
	// defaults; empty Name takes the certificate's common name.
	Name        string
	Reason      string
	Location    string
	ContactInfo string

	// Date stamps the signature dictionary; zero means now.
	Date time.Time

	// Timestamp requests an RFC 3161 token from TSAURL (DefaultTSAURL
	// when empty) and embeds it as an unsigned attribute.
	Timestamp bool
	TSAURL    string
	TSAUser   string
	TSAPass   string

	// EmbedRevocationStatus collects OCSP responses or CRLs for the
	// signing chain and embeds them in the signed attributes.
	EmbedRevocationStatus bool

	// Visible places a widget with the given rectangle on Page
	// (1-based, default 1) instead of an invisible signature.
	Visible bool
	Rect    [4]float64
	Page    uint32

	// SignatureSize overrides the estimated container reservation,
	// in bytes.
	SignatureSize uint32
}

// Sign signs pdfData with the identity inside the PKCS#12 archive and
// returns the signed document. The input bytes reappear untouched as a
// prefix of the output; the signature travels in one appended
// incremental update.
func Sign(pdfData, p12Data []byte, passphrase string, opts Options) ([]byte, error) {
	identity, err := pfx.Load(p12Data, passphrase)
	if err != nil {
		return nil, err
	}
	// The key material is scoped to this call.
	defer identity.Wipe()
	return SignWithIdentity(pdfData, identity, opts)
}

// SignWithIdentity signs with an already-decoded identity, for callers
// that keep one identity across many documents.
func SignWithIdentity(pdfData []byte, identity *pfx.Identity, opts Options) ([]byte, error) {
	if identity == nil || identity.PrivateKey == nil || identity.Certificate == nil {
		return nil, errors.New("padessign: identity has no key or certificate")
	}

	signData := sign.SignData{
		Signer:           identity.PrivateKey,
		Certificate:      identity.Certificate,
		CertificateChain: identity.CACertificates,
		Info: sign.SignatureInfo{
			Name:        opts.Name,
			Reason:      opts.Reason,
			Location:    opts.Location,
			ContactInfo: opts.ContactInfo,
			Date:        opts.Date,
		},
		Visible:               opts.Visible,
		Rect:                  opts.Rect,
		Page:                  opts.Page,
		SignatureSizeOverride: opts.SignatureSize,
	}

	if signData.Info.Reason == "" {
		signData.Info.Reason = DefaultReason
	}
	if signData.Info.Location == "" {
		signData.Info.Location = DefaultLocation
	}

	if opts.Timestamp {
		url := opts.TSAURL
		if url == "" {
			url = DefaultTSAURL
		}
		signData.TSA = sign.TSA{URL: url, Username: opts.TSAUser, Password: opts.TSAPass}
	}
	if opts.EmbedRevocationStatus {
		signData.RevocationFunction = revocation.DefaultFetcher
	}

	return sign.SignBytes(pdfData, signData)
}

// SignFile signs the document at inputPath with the PKCS#12 archive at
// p12Path and writes the result to outputPath.
func SignFile(inputPath, outputPath, p12Path, passphrase string, opts Options) error {
	pdfData, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	p12Data, err := os.ReadFile(p12Path)
	if err != nil {
		return fmt.Errorf("read certificate archive: %w", err)
	}

	signed, err := Sign(pdfData, p12Data, passphrase, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, signed, 0o644)
}
