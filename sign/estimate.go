package sign

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/digitorus/pkcs7"
)

// DefaultSignatureSize is the reservation fallback (in bytes, before
// hex encoding) when the key type does not allow an estimate.
const DefaultSignatureSize = 8192

// tsaTokenAllowance reserves room for an RFC 3161 token; responder
// sizes vary, this bound covers the common public TSAs.
const tsaTokenAllowance = 9000

// PublicKeySignatureSize returns the maximum signature size in bytes
// produced by the given public key's algorithm. Note that the
// certificate's own SignatureAlgorithm is irrelevant here: that is how
// the CA signed the certificate, not what this key produces.
func PublicKeySignatureSize(pub crypto.PublicKey) (int, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		if k.N == nil {
			return 0, fmt.Errorf("%w: RSA key has nil modulus", ErrKeyAlgorithmMismatch)
		}
		return k.Size(), nil

	case *ecdsa.PublicKey:
		if k.Curve == nil {
			return 0, fmt.Errorf("%w: ECDSA key has nil curve", ErrKeyAlgorithmMismatch)
		}
		// DER SEQUENCE { r INTEGER, s INTEGER }: two coordinates plus
		// tag/length/padding overhead.
		coordSize := (k.Curve.Params().BitSize + 7) / 8
		return 2*coordSize + 9, nil

	case ed25519.PublicKey:
		return ed25519.SignatureSize, nil

	default:
		return 0, fmt.Errorf("%w: %T", ErrKeyAlgorithmMismatch, pub)
	}
}

// ValidateSignerCertificateMatch checks that the signer's public key
// matches the leaf certificate before anything is appended to the PDF.
func ValidateSignerCertificateMatch(signer crypto.Signer, cert *x509.Certificate) error {
	if signer == nil || signer.Public() == nil {
		return fmt.Errorf("%w: signer has no public key", ErrKeyAlgorithmMismatch)
	}
	if cert == nil {
		return fmt.Errorf("%w: certificate is nil", ErrKeyAlgorithmMismatch)
	}

	signerPub, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return fmt.Errorf("marshal signer public key: %w", err)
	}
	certPub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal certificate public key: %w", err)
	}
	if !bytes.Equal(signerPub, certPub) {
		return fmt.Errorf("%w: signer public key does not match certificate", ErrKeyAlgorithmMismatch)
	}
	return nil
}

// estimateSignatureMaxLength computes the reserved /Contents length in
// hex digits: the raw signature, two digests (file digest and signing
// certificate attribute), the degenerated leaf and chain certificates,
// collected revocation material and, if configured, a TSA token. The
// value is fixed before byte ranges are computed and never resized.
func (context *SignContext) estimateSignatureMaxLength() error {
	if context.SignData.SignatureSizeOverride > 0 {
		context.SignatureMaxLength = uint32(hex.EncodedLen(int(context.SignData.SignatureSizeOverride)))
		return nil
	}

	// CMS structural overhead.
	context.SignatureMaxLength = uint32(hex.EncodedLen(512))

	sigSize, err := PublicKeySignatureSize(context.SignData.Certificate.PublicKey)
	if err != nil {
		// Unknown key types get the conservative fallback bound.
		sigSize = DefaultSignatureSize
	}
	context.SignatureMaxLength += uint32(hex.EncodedLen(sigSize))

	context.SignatureMaxLength += uint32(hex.EncodedLen(context.SignData.DigestAlgorithm.Size() * 2))

	degenerated, err := pkcs7.DegenerateCertificate(context.SignData.Certificate.Raw)
	if err != nil {
		return fmt.Errorf("degenerate certificate: %w", err)
	}
	context.SignatureMaxLength += uint32(hex.EncodedLen(len(degenerated)))

	// AddSignerChain embeds the raw issuer alongside the leaf.
	context.SignatureMaxLength += uint32(hex.EncodedLen(len(context.SignData.Certificate.RawIssuer)))

	for _, cert := range context.SignData.CertificateChain {
		degenerated, err := pkcs7.DegenerateCertificate(cert.Raw)
		if err != nil {
			return fmt.Errorf("degenerate chain certificate: %w", err)
		}
		context.SignatureMaxLength += uint32(hex.EncodedLen(len(degenerated)))
	}

	for _, crl := range context.SignData.RevocationData.CRL {
		context.SignatureMaxLength += uint32(hex.EncodedLen(len(crl.FullBytes)))
	}
	for _, ocspResp := range context.SignData.RevocationData.OCSP {
		context.SignatureMaxLength += uint32(hex.EncodedLen(len(ocspResp.FullBytes)))
	}

	if context.SignData.TSA.URL != "" {
		context.SignatureMaxLength += uint32(hex.EncodedLen(tsaTokenAllowance))
	}

	return nil
}
