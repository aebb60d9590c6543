package revocation_test

import (
	"crypto/x509"
	"testing"

	"github.com/brdoc/padessign/internal/testpki"
	"github.com/brdoc/padessign/revocation"
)

func TestAddCRL(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	crl, err := pki.CRL()
	if err != nil {
		t.Fatal(err)
	}

	var info revocation.InfoArchival
	if err := info.AddCRL(crl); err != nil {
		t.Fatalf("AddCRL() error: %v", err)
	}
	if len(info.CRL) != 1 {
		t.Errorf("got %d CRLs, want 1", len(info.CRL))
	}

	if err := info.AddCRL([]byte("junk")); err == nil {
		t.Error("AddCRL() must reject undecodable input")
	}
}

func TestAddOCSPRejectsJunk(t *testing.T) {
	var info revocation.InfoArchival
	if err := info.AddOCSP([]byte{0x30, 0x00}); err == nil {
		t.Error("AddOCSP() must reject undecodable input")
	}
}

func TestDefaultFetcherOCSP(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	server := pki.OCSPResponder()
	defer server.Close()

	leaf, _, err := pki.NewLeaf(func(tmpl *x509.Certificate) {
		tmpl.OCSPServer = []string{server.URL}
	})
	if err != nil {
		t.Fatal(err)
	}

	var info revocation.InfoArchival
	if err := revocation.DefaultFetcher(leaf, pki.Intermediate, &info); err != nil {
		t.Fatalf("DefaultFetcher() error: %v", err)
	}
	if len(info.OCSP) != 1 {
		t.Fatalf("got %d OCSP responses, want 1", len(info.OCSP))
	}

	if info.IsRevoked(leaf) {
		t.Error("good status reported as revoked")
	}
}

func TestDefaultFetcherSkipsWithoutIssuer(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}

	var info revocation.InfoArchival
	if err := revocation.DefaultFetcher(pki.Root, nil, &info); err != nil {
		t.Fatalf("DefaultFetcher() on the chain's last element: %v", err)
	}
	if len(info.OCSP) != 0 || len(info.CRL) != 0 {
		t.Error("nothing should be collected without an issuer")
	}
}

func TestIsRevokedByCRL(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	crl, err := pki.CRL()
	if err != nil {
		t.Fatal(err)
	}

	var info revocation.InfoArchival
	if err := info.AddCRL(crl); err != nil {
		t.Fatal(err)
	}

	// The empty CRL revokes nothing.
	if info.IsRevoked(pki.Leaf) {
		t.Error("empty CRL must not revoke the leaf")
	}

	revoking, err := pki.CRL(pki.Leaf)
	if err != nil {
		t.Fatal(err)
	}
	var revokedInfo revocation.InfoArchival
	if err := revokedInfo.AddCRL(revoking); err != nil {
		t.Fatal(err)
	}
	if !revokedInfo.IsRevoked(pki.Leaf) {
		t.Error("revoking CRL must mark the leaf as revoked")
	}
	if revokedInfo.IsRevoked(pki.Intermediate) {
		t.Error("other certificates must stay unaffected")
	}
}
