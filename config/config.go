// Package config loads signing profiles from TOML files. A profile
// carries the signature metadata defaults and the timestamp authority
// used when signing, so batch callers do not repeat them per document.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
)

// DefaultLocation is where Read looks when no path is given.
var DefaultLocation = "./padessign.conf"

// Config is the root of a signing profile.
type Config struct {
	Name        string `toml:"name" valid:"-"`
	Reason      string `toml:"reason" valid:"required"`
	Location    string `toml:"location" valid:"required"`
	ContactInfo string `toml:"contact_info" valid:"-"`

	// SignatureSize overrides the container reservation in bytes.
	// Zero keeps the estimated size.
	SignatureSize uint32 `toml:"signature_size" valid:"-"`

	// EmbedRevocationStatus enables OCSP/CRL collection for the chain.
	EmbedRevocationStatus bool `toml:"embed_revocation_status" valid:"-"`

	TSA TSA `toml:"tsa" valid:"-"`
}

// TSA configures the RFC 3161 timestamp authority.
type TSA struct {
	URL      string `toml:"url" valid:"url,optional"`
	Username string `toml:"username" valid:"-"`
	Password string `toml:"password" valid:"-"`
}

// ValidateFields checks the profile against its field constraints.
func (c Config) ValidateFields() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.TSA.URL != "" && !govalidator.IsURL(c.TSA.URL) {
		return fmt.Errorf("config: tsa url %q is not a valid URL", c.TSA.URL)
	}
	return nil
}

// Read loads and validates the profile at path.
func Read(path string) (Config, error) {
	var c Config

	if _, err := os.Stat(path); err != nil {
		return c, fmt.Errorf("config: missing file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.ValidateFields(); err != nil {
		return c, err
	}
	return c, nil
}
