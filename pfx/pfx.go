// Package pfx loads signing identities from PKCS#12 (PFX) archives.
//
// An archive is expected to hold exactly one private key, the matching
// end-entity certificate and, optionally, the issuing chain. Decoding
// failures are classified into sentinel errors so callers can tell a
// damaged file from a wrong passphrase.
package pfx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

var (
	// ErrMalformed reports input that is not a PKCS#12 archive at all,
	// or one too damaged to parse.
	ErrMalformed = errors.New("pfx: malformed PKCS#12 data")

	// ErrBadPassphrase reports an archive that parsed but whose MAC or
	// encrypted content did not verify against the given passphrase.
	ErrBadPassphrase = errors.New("pfx: incorrect passphrase")

	// ErrNoKeyOrCertificate reports an archive missing the private key
	// or the end-entity certificate.
	ErrNoKeyOrCertificate = errors.New("pfx: archive holds no usable key and certificate pair")
)

// Identity is a decoded signing identity: the private key, the
// end-entity certificate it belongs to, and any CA certificates the
// archive carried.
type Identity struct {
	PrivateKey     crypto.Signer
	Certificate    *x509.Certificate
	CACertificates []*x509.Certificate
}

// Load decodes a PKCS#12 archive with the given passphrase.
func Load(data []byte, passphrase string) (*Identity, error) {
	// Classify obvious garbage before handing it to the PKCS#12
	// decoder, whose password and structure errors are harder to tell
	// apart on truncated input.
	var outer asn1.RawValue
	if _, err := asn1.Unmarshal(data, &outer); err != nil || outer.Class != 0 || outer.Tag != asn1.TagSequence {
		return nil, fmt.Errorf("%w: not a DER SEQUENCE", ErrMalformed)
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		return nil, classifyDecodeError(err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: private key of type %T cannot sign", ErrNoKeyOrCertificate, key)
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: no end-entity certificate", ErrNoKeyOrCertificate)
	}

	return &Identity{
		PrivateKey:     signer,
		Certificate:    cert,
		CACertificates: dedupe(caCerts),
	}, nil
}

// LoadFile reads and decodes a PKCS#12 archive from disk.
func LoadFile(path string, passphrase string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, passphrase)
}

// Wipe zeroes the private key material this identity references.
// RSA and ECDSA keys hold their secrets in big.Int words; Ed25519 in a
// byte slice. The identity must not be used for signing afterwards.
func (id *Identity) Wipe() {
	switch key := id.PrivateKey.(type) {
	case *rsa.PrivateKey:
		zeroBigInt(key.D)
		for _, p := range key.Primes {
			zeroBigInt(p)
		}
		zeroBigInt(key.Precomputed.Dp)
		zeroBigInt(key.Precomputed.Dq)
		zeroBigInt(key.Precomputed.Qinv)
	case *ecdsa.PrivateKey:
		zeroBigInt(key.D)
	case ed25519.PrivateKey:
		for i := range key {
			key[i] = 0
		}
	}
	id.PrivateKey = nil
}

func classifyDecodeError(err error) error {
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return fmt.Errorf("%w: %v", ErrBadPassphrase, err)
	}
	// The decoder reports absent bags in prose; anything else is
	// structural damage.
	msg := err.Error()
	if strings.Contains(msg, "private key missing") ||
		strings.Contains(msg, "certificate missing") ||
		strings.Contains(msg, "no private key") ||
		strings.Contains(msg, "no certificate") {
		return fmt.Errorf("%w: %v", ErrNoKeyOrCertificate, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func dedupe(certs []*x509.Certificate) []*x509.Certificate {
	seen := make(map[string]bool, len(certs))
	out := certs[:0]
	for _, c := range certs {
		key := c.Issuer.String() + "|" + c.SerialNumber.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func zeroBigInt(i *big.Int) {
	if i == nil {
		return
	}
	words := i.Bits()
	for j := range words {
		words[j] = 0
	}
	i.SetInt64(0)
}
