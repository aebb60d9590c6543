package sign

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidSigningCertificateV2     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	oidSigningCertificate       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 12}
	oidTimeStampToken           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
	oidAdbeRevocationInfoArchiv = asn1.ObjectIdentifier{1, 2, 840, 113583, 1, 1, 8}
)

// createSigningCertificateAttribute builds the ESS signing-certificate
// attribute binding the leaf certificate hash into the signed
// attributes, as PAdES baseline requires.
func (context *SignContext) createSigningCertificateAttribute() (*pkcs7.Attribute, error) {
	hash := context.SignData.DigestAlgorithm.New()
	hash.Write(context.SignData.Certificate.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificateV2
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // certs
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertIDv2
				if context.SignData.DigestAlgorithm.HashFunc() != crypto.SHA1 &&
					context.SignData.DigestAlgorithm.HashFunc() != crypto.SHA256 { // SHA-256 is the field default
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(getOIDFromHashAlgorithm(context.SignData.DigestAlgorithm))
					})
				}
				b.AddASN1OctetString(hash.Sum(nil))
			})
		})
	})

	der, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	attr := pkcs7.Attribute{
		Type:  oidSigningCertificateV2,
		Value: asn1.RawValue{FullBytes: der},
	}
	if context.SignData.DigestAlgorithm.HashFunc() == crypto.SHA1 {
		attr.Type = oidSigningCertificate
	}
	return &attr, nil
}

// createSignature builds the detached CMS SignedData container over
// the two byte ranges: signed attributes (content type, message
// digest, signing time, ESS signing certificate, optional revocation
// archival), the raw signature by the identity's key, and the full
// certificate chain.
func (context *SignContext) createSignature() ([]byte, error) {
	content, err := context.signedContent()
	if err != nil {
		return nil, err
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("new signed data: %w", err)
	}
	signedData.SetDigestAlgorithm(getOIDFromHashAlgorithm(context.SignData.DigestAlgorithm))

	signingCertificate, err := context.createSigningCertificateAttribute()
	if err != nil {
		return nil, fmt.Errorf("signing certificate attribute: %w", err)
	}

	signerConfig := pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: []pkcs7.Attribute{*signingCertificate},
	}
	if len(context.SignData.RevocationData.CRL) > 0 || len(context.SignData.RevocationData.OCSP) > 0 {
		signerConfig.ExtraSignedAttributes = append(signerConfig.ExtraSignedAttributes, pkcs7.Attribute{
			Type:  oidAdbeRevocationInfoArchiv,
			Value: context.SignData.RevocationData,
		})
	}

	if err := signedData.AddSignerChain(context.SignData.Certificate, context.SignData.Signer, context.SignData.CertificateChain, signerConfig); err != nil {
		return nil, fmt.Errorf("add signer chain: %w", err)
	}

	// The PDF carries the content; the container must not.
	signedData.Detach()

	if context.SignData.TSA.URL != "" {
		signatureData := signedData.GetSignedData()

		tsResponse, err := context.requestTimestamp(signatureData.SignerInfos[0].EncryptedDigest)
		if err != nil {
			return nil, fmt.Errorf("get timestamp: %w", err)
		}

		ts, err := timestamp.ParseResponse(tsResponse)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		if _, err := pkcs7.Parse(ts.RawToken); err != nil {
			return nil, fmt.Errorf("parse timestamp token: %w", err)
		}

		tsAttr := pkcs7.Attribute{
			Type:  oidTimeStampToken,
			Value: asn1.RawValue{FullBytes: ts.RawToken},
		}
		if err := signatureData.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{tsAttr}); err != nil {
			return nil, err
		}
	}

	return signedData.Finish()
}

// requestTimestamp obtains an RFC 3161 token for the signature value.
func (context *SignContext) requestTimestamp(signature []byte) ([]byte, error) {
	tsRequest, err := timestamp.CreateRequest(bytes.NewReader(signature), &timestamp.RequestOptions{
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create timestamp request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, context.SignData.TSA.URL, bytes.NewReader(tsRequest))
	if err != nil {
		return nil, fmt.Errorf("prepare timestamp request (%s): %w", context.SignData.TSA.URL, err)
	}
	req.Header.Add("Content-Type", "application/timestamp-query")
	req.Header.Add("Content-Transfer-Encoding", "binary")
	if context.SignData.TSA.Username != "" && context.SignData.TSA.Password != "" {
		req.SetBasicAuth(context.SignData.TSA.Username, context.SignData.TSA.Password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("timestamp authority returned %s: %s", strconv.Itoa(resp.StatusCode), string(body))
	}

	return io.ReadAll(resp.Body)
}

// replaceSignature patches the hex-encoded container into the
// reservation, right-padded with '0'. The reservation was sized before
// the byte ranges were digested, so a container that does not fit is a
// hard failure: there is no resize path once offsets are fixed.
func (context *SignContext) replaceSignature() error {
	signature, err := context.createSignature()
	if err != nil {
		return fmt.Errorf("create signature container: %w", err)
	}

	dst := make([]byte, hex.EncodedLen(len(signature)))
	hex.Encode(dst, signature)

	if uint32(len(dst)) > context.SignatureMaxLength {
		return fmt.Errorf("%w: container needs %d hex digits, reserved %d",
			ErrContainerTooLarge, len(dst), context.SignatureMaxLength)
	}
	dst = append(dst, bytes.Repeat([]byte("0"), int(context.SignatureMaxLength)-len(dst))...)

	// Skip the '<' delimiter and patch the reservation in place. The
	// buffer's Write appends, so it cannot rewrite an interior region.
	output := context.OutputBuffer.Buff.Bytes()
	start := context.SignatureContentsStartByte + 1
	if start+int64(len(dst)) > int64(len(output)) {
		return fmt.Errorf("%w: reservation at %d outside %d bytes",
			ErrRangeOverflow, start, len(output))
	}
	copy(output[start:], dst)

	return nil
}

// fetchRevocationData runs the configured revocation collector over
// the signing chain before the placeholder is sized, so the archival
// bytes both fit the reservation and end up in the signed attributes.
func (context *SignContext) fetchRevocationData() error {
	if context.SignData.RevocationFunction == nil {
		return nil
	}

	chain := make([]*x509.Certificate, 0, len(context.SignData.CertificateChain)+1)
	if context.SignData.Certificate != nil {
		chain = append(chain, context.SignData.Certificate)
	}
	chain = append(chain, context.SignData.CertificateChain...)

	for i, cert := range chain {
		var issuer *x509.Certificate
		if i+1 < len(chain) {
			issuer = chain[i+1]
		}
		if err := context.SignData.RevocationFunction(cert, issuer, &context.SignData.RevocationData); err != nil {
			return err
		}
	}

	return nil
}
