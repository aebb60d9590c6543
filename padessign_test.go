package padessign_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/brdoc/padessign"
	"github.com/brdoc/padessign/internal/testpki"
	"github.com/brdoc/padessign/pfx"
	"github.com/brdoc/padessign/sign"
	"github.com/brdoc/padessign/verify"
)

func TestSign(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}
	input := testpki.MinimalPDF()

	signed, err := padessign.Sign(input, p12, "secret", padessign.Options{})
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if !bytes.Equal(signed[:len(input)], input) {
		t.Error("input must reappear untouched as a prefix")
	}

	response, err := verify.Bytes(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(response.Signers) != 1 {
		t.Fatalf("got %d signers, want 1", len(response.Signers))
	}

	signer := response.Signers[0]
	if !signer.ValidSignature {
		t.Error("signature must verify")
	}
	if !signer.TrustedIssuer {
		t.Error("chain must build to the embedded root")
	}
	if !signer.WholeDocument {
		t.Error("byte ranges must cover the whole document")
	}
	if signer.Reason != padessign.DefaultReason {
		t.Errorf("reason = %q, want default %q", signer.Reason, padessign.DefaultReason)
	}
	if signer.Location != padessign.DefaultLocation {
		t.Errorf("location = %q, want default %q", signer.Location, padessign.DefaultLocation)
	}
	if signer.Name != "Test Signer" {
		t.Errorf("name = %q, want certificate common name", signer.Name)
	}
}

func TestSignBadPassphrase(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("right")
	if err != nil {
		t.Fatal(err)
	}

	_, err = padessign.Sign(testpki.MinimalPDF(), p12, "wrong", padessign.Options{})
	if !errors.Is(err, pfx.ErrBadPassphrase) {
		t.Errorf("expected ErrBadPassphrase, got %v", err)
	}
}

func TestSignWithIdentityReuse(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}
	identity, err := pfx.Load(p12, "secret")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		signed, err := padessign.SignWithIdentity(testpki.MinimalPDF(), identity, padessign.Options{
			Reason: "Batch signing",
		})
		if err != nil {
			t.Fatalf("document %d: %v", i, err)
		}
		response, err := verify.Bytes(signed)
		if err != nil {
			t.Fatalf("document %d: %v", i, err)
		}
		if !response.Signers[0].ValidSignature {
			t.Errorf("document %d: invalid signature", i)
		}
	}
}

func TestSignWithIdentityNil(t *testing.T) {
	if _, err := padessign.SignWithIdentity(testpki.MinimalPDF(), nil, padessign.Options{}); err == nil {
		t.Error("nil identity must be rejected")
	}
}

func TestSignAppendedContentDetected(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}

	signed, err := padessign.Sign(testpki.MinimalPDF(), p12, "secret", padessign.Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Appending after the signed update leaves the signature valid but
	// no longer covering the whole file.
	grown := append(append([]byte{}, signed...), []byte("\n% appended later\n")...)
	response, err := verify.Bytes(grown)
	if err != nil {
		t.Fatal(err)
	}
	signer := response.Signers[0]
	if !signer.ValidSignature {
		t.Error("signature over its own ranges must stay valid")
	}
	if signer.WholeDocument {
		t.Error("appended content must be detected")
	}
}

func TestSignTamperedContentFails(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}

	signed, err := padessign.Sign(testpki.MinimalPDF(), p12, "secret", padessign.Options{})
	if err != nil {
		t.Fatal(err)
	}

	tampered := append([]byte{}, signed...)
	tampered[bytes.Index(tampered, []byte("Hello World"))] = 'J'

	response, err := verify.Bytes(tampered)
	if err != nil {
		t.Fatal(err)
	}
	if response.Signers[0].ValidSignature {
		t.Error("flipped content byte must invalidate the signature")
	}
}

func TestSignOversizedContainer(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}

	_, err = padessign.Sign(testpki.MinimalPDF(), p12, "secret", padessign.Options{
		SignatureSize: 16,
	})
	if !errors.Is(err, sign.ErrContainerTooLarge) {
		t.Errorf("expected ErrContainerTooLarge, got %v", err)
	}
}

func TestSignFile(t *testing.T) {
	pki, err := testpki.New()
	if err != nil {
		t.Fatal(err)
	}
	p12, err := pki.LeafPFX("secret")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.pdf")
	outputPath := filepath.Join(dir, "output.pdf")
	p12Path := filepath.Join(dir, "identity.p12")

	if err := os.WriteFile(inputPath, testpki.MinimalPDF(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p12Path, p12, 0o600); err != nil {
		t.Fatal(err)
	}

	if err := padessign.SignFile(inputPath, outputPath, p12Path, "secret", padessign.Options{}); err != nil {
		t.Fatalf("SignFile() error: %v", err)
	}

	response, err := verify.File(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !response.Signers[0].ValidSignature {
		t.Error("signed file does not verify")
	}
}
