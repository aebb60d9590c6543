// Package revocation models the Adobe RevocationInfoArchival structure
// embedded in a signature's signed attributes, plus a collector that
// fills it from a certificate's OCSP and CRL distribution points.
package revocation

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/ocsp"
)

// InfoArchival is the revocation container referenced by OID
// 1.2.840.113583.1.1.8. Each list holds complete DER structures.
type InfoArchival struct {
	CRL   CRL   `asn1:"tag:0,optional,explicit"`
	OCSP  OCSP  `asn1:"tag:1,optional,explicit"`
	Other Other `asn1:"tag:2,optional,explicit"`
}

// CRL holds raw DER certificate revocation lists, parseable with
// x509.ParseRevocationList.
type CRL []asn1.RawValue

// OCSP holds raw DER OCSP responses, parseable with
// golang.org/x/crypto/ocsp.ParseResponse.
type OCSP []asn1.RawValue

// Other carries revocation data in a format identified by its own OID.
type Other struct {
	Type  asn1.ObjectIdentifier
	Value []byte
}

// AddCRL embeds the raw bytes of a downloaded CRL.
func (r *InfoArchival) AddCRL(b []byte) error {
	if _, err := x509.ParseRevocationList(b); err != nil {
		return fmt.Errorf("revocation: invalid CRL: %w", err)
	}
	r.CRL = append(r.CRL, asn1.RawValue{FullBytes: b})
	return nil
}

// AddOCSP embeds the raw bytes of an OCSP response.
func (r *InfoArchival) AddOCSP(b []byte) error {
	if _, err := ocsp.ParseResponse(b, nil); err != nil {
		return fmt.Errorf("revocation: invalid OCSP response: %w", err)
	}
	r.OCSP = append(r.OCSP, asn1.RawValue{FullBytes: b})
	return nil
}

// IsRevoked reports whether any embedded CRL or OCSP response marks the
// certificate as revoked. Unparseable entries are skipped; absence of
// status is not revocation.
func (r *InfoArchival) IsRevoked(c *x509.Certificate) bool {
	for _, raw := range r.CRL {
		crl, err := x509.ParseRevocationList(raw.FullBytes)
		if err != nil {
			continue
		}
		for _, entry := range crl.RevokedCertificateEntries {
			if entry.SerialNumber.Cmp(c.SerialNumber) == 0 {
				return true
			}
		}
	}

	for _, raw := range r.OCSP {
		resp, err := ocsp.ParseResponseForCert(raw.FullBytes, c, nil)
		if err != nil {
			continue
		}
		if resp.Status == ocsp.Revoked {
			return true
		}
	}

	return false
}

// HTTPClient performs the fetches issued by DefaultFetcher. Override it
// to control timeouts or routing.
var HTTPClient = &http.Client{Timeout: 10 * time.Second}

// DefaultFetcher queries the certificate's OCSP responder and CRL
// distribution points and appends the results to info. Certificates
// without an issuer (the chain's last element) or without any
// distribution point are skipped. Suitable as a SignData revocation
// function.
func DefaultFetcher(cert, issuer *x509.Certificate, info *InfoArchival) error {
	if issuer == nil {
		return nil
	}

	if len(cert.OCSPServer) > 0 {
		resp, err := fetchOCSP(cert, issuer, cert.OCSPServer[0])
		if err != nil {
			return fmt.Errorf("revocation: ocsp for %q: %w", cert.Subject.CommonName, err)
		}
		if err := info.AddOCSP(resp); err != nil {
			return err
		}
		return nil
	}

	for _, url := range cert.CRLDistributionPoints {
		crl, err := fetchURL(url)
		if err != nil {
			return fmt.Errorf("revocation: crl for %q: %w", cert.Subject.CommonName, err)
		}
		if err := info.AddCRL(crl); err != nil {
			return err
		}
		return nil
	}

	return nil
}

func fetchOCSP(cert, issuer *x509.Certificate, server string) ([]byte, error) {
	req, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, server, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")

	resp, err := HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("responder returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func fetchURL(url string) ([]byte, error) {
	resp, err := HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("distribution point returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
