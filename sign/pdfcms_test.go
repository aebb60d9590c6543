package sign

import (
	"bytes"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/digitorus/pkcs7"

	"github.com/brdoc/padessign/internal/testpki"
	"github.com/brdoc/padessign/revocation"
)

func TestSignBytesWithTimestamp(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	server, err := pki.TSAServer()
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	signData := testSignData(pki)
	signData.TSA = TSA{URL: server.URL}

	signed, err := SignBytes(testpki.MinimalPDF(), signData)
	if err != nil {
		t.Fatalf("SignBytes() with TSA error: %v", err)
	}

	v := signatureValue(t, signed, 0)
	contents := bytes.TrimRight([]byte(v.Key("Contents").RawString()), "\x00")
	if len(contents) == 0 {
		t.Fatal("empty signature contents")
	}
}

func TestSignBytesTimestampAuthorityFailure(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	signData := testSignData(pki)
	signData.TSA = TSA{URL: server.URL}

	if _, err := SignBytes(testpki.MinimalPDF(), signData); err == nil {
		t.Error("TSA failure must fail the signing operation")
	}
}

func TestSignBytesWithRevocationData(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	crl, err := pki.CRL()
	if err != nil {
		t.Fatal(err)
	}

	signData := testSignData(pki)
	signData.RevocationFunction = func(cert, issuer *x509.Certificate, info *revocation.InfoArchival) error {
		if cert == pki.Leaf && issuer != nil {
			return info.AddCRL(crl)
		}
		return nil
	}

	signed, err := SignBytes(testpki.MinimalPDF(), signData)
	if err != nil {
		t.Fatalf("SignBytes() with revocation error: %v", err)
	}

	v := signatureValue(t, signed, 0)
	contents := bytes.TrimRight([]byte(v.Key("Contents").RawString()), "\x00")
	p7, err := pkcs7.Parse(contents)
	if err != nil {
		t.Fatal(err)
	}

	var archival revocation.InfoArchival
	if err := p7.UnmarshalSignedAttribute(oidAdbeRevocationInfoArchiv, &archival); err != nil {
		t.Fatalf("revocation archival attribute missing: %v", err)
	}
	if len(archival.CRL) != 1 {
		t.Errorf("archival carries %d CRLs, want 1", len(archival.CRL))
	}
}
