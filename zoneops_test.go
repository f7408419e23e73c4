package rollercoaster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZone = `$ORIGIN example.com.
$TTL 3600
@ IN SOA ns1.example.com. hostmaster.example.com. 1 3600 900 604800 3600
@ IN NS ns1.example.com.
ns1 IN A 192.0.2.1
www IN A 192.0.2.2
`

func writeTestZone(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "unsigned.zone")
	require.NoError(t, os.WriteFile(path, []byte(testZone), 0o644))
	return path
}

func TestLoadZoneAndSignProducesRRSIGs(t *testing.T) {
	path := writeTestZone(t)
	zone, err := LoadZone(path, "example.com.", "")
	require.NoError(t, err)

	ksk, err := GenerateKeyPair(dns.ECDSAP256SHA256, 0, true, "a1-ksk")
	require.NoError(t, err)
	zsk, err := GenerateKeyPair(dns.ECDSAP256SHA256, 0, false, "a1-zsk-q1")
	require.NoError(t, err)

	zone.SetDNSKEYs([]*KeyPair{ksk, zsk}, DefaultDnskeyTTL)
	require.NoError(t, zone.Sign([]*KeyPair{ksk, zsk}, DefaultSigLifetime))

	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "signed.zone")
	require.NoError(t, zone.WriteFile(outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RRSIG")
	assert.Contains(t, string(data), "DNSKEY")
}

func TestDSSetOnlyIncludesKSKs(t *testing.T) {
	path := writeTestZone(t)
	zone, err := LoadZone(path, "example.com.", "")
	require.NoError(t, err)

	ksk, err := GenerateKeyPair(dns.ECDSAP256SHA256, 0, true, "a1-ksk")
	require.NoError(t, err)
	zsk, err := GenerateKeyPair(dns.ECDSAP256SHA256, 0, false, "a1-zsk-q1")
	require.NoError(t, err)

	ds := zone.DSSet([]*KeyPair{ksk, zsk}, dns.SHA256)
	assert.Len(t, ds, 1)
	assert.Equal(t, ksk.DNSKEY().KeyTag(), ds[0].KeyTag)
}
