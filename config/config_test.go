package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"

	"github.com/brdoc/padessign/config"
)

func TestConfig(t *testing.T) {
	const configContent = `
name = "Fulano de Tal"
reason = "Aprovação de contrato"
location = "São Paulo"
contact_info = "fulano@example.com.br"
signature_size = 16384
embed_revocation_status = true

[tsa]
url = "http://timestamp.iti.gov.br/"
username = "user"
password = "pass"
`

	var c config.Config
	_, err := toml.Decode(configContent, &c)
	assert.NoError(t, err)

	assert.Equal(t, "Fulano de Tal", c.Name)
	assert.Equal(t, "Aprovação de contrato", c.Reason)
	assert.Equal(t, "São Paulo", c.Location)
	assert.Equal(t, uint32(16384), c.SignatureSize)
	assert.True(t, c.EmbedRevocationStatus)
	assert.Equal(t, "http://timestamp.iti.gov.br/", c.TSA.URL)

	assert.NoError(t, c.ValidateFields())
}

func TestValidationMissingRequired(t *testing.T) {
	var c config.Config
	_, err := toml.Decode(`name = "only a name"`, &c)
	assert.NoError(t, err)

	assert.Error(t, c.ValidateFields())
}

func TestValidationBadTSAURL(t *testing.T) {
	var c config.Config
	_, err := toml.Decode(`
reason = "r"
location = "l"

[tsa]
url = "::not a url::"
`, &c)
	assert.NoError(t, err)

	assert.Error(t, c.ValidateFields())
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padessign.conf")
	err := os.WriteFile(path, []byte("reason = \"r\"\nlocation = \"l\"\n"), 0o600)
	assert.NoError(t, err)

	c, err := config.Read(path)
	assert.NoError(t, err)
	assert.Equal(t, "r", c.Reason)

	_, err = config.Read(filepath.Join(t.TempDir(), "missing.conf"))
	assert.Error(t, err)
}
