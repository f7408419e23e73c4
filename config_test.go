package rollercoaster

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigTOML = `
delta = 30
keyring = "/tmp/keyring.json"
mode = "double"

[zone]
origin = "example.com."
unsigned = "%s"
signed = "/tmp/signed.zone"

[[algorithms]]
algorithm = "ECDSAP256SHA256"

[[algorithms]]
algorithm = "ED25519"
`

func TestValidateConfigParsesAlgorithms(t *testing.T) {
	dir := t.TempDir()
	unsigned := filepath.Join(dir, "unsigned.zone")
	require.NoError(t, os.WriteFile(unsigned, []byte("@ IN SOA a b 1 2 3 4 5\n"), 0o644))

	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(testConfigTOMLFor(unsigned))))

	cfg, err := ValidateConfig(v, "test.toml")
	require.NoError(t, err)

	specs, err := cfg.AlgorithmSpecs()
	require.NoError(t, err)
	assert.Equal(t, uint8(dns.ECDSAP256SHA256), specs[0].Algorithm)
	assert.Equal(t, uint8(dns.ED25519), specs[1].Algorithm)
	assert.Equal(t, DefaultDnskeyTTL, cfg.DnskeyTTL)
	assert.Equal(t, DefaultSigLifetime, cfg.Lifetime)
}

func TestValidateConfigRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	unsigned := filepath.Join(dir, "unsigned.zone")
	require.NoError(t, os.WriteFile(unsigned, []byte("@ IN SOA a b 1 2 3 4 5\n"), 0o644))

	v := viper.New()
	v.SetConfigType("toml")
	bad := strings.Replace(testConfigTOMLFor(unsigned), `mode = "double"`, `mode = "bogus"`, 1)
	require.NoError(t, v.ReadConfig(strings.NewReader(bad)))

	_, err := ValidateConfig(v, "test.toml")
	assert.Error(t, err)
}

func testConfigTOMLFor(unsignedPath string) string {
	return fmt.Sprintf(testConfigTOML, unsignedPath)
}
