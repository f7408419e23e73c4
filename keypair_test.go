package rollercoaster

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPairEd25519(t *testing.T) {
	kp, err := GenerateKeyPair(dns.ED25519, 0, true, "a1-ksk")
	require.NoError(t, err)

	assert.True(t, kp.KSK)
	assert.NotZero(t, kp.KeyTag())

	dnskey := kp.DNSKEY()
	assert.Equal(t, uint16(dns.ZONE|dns.SEP), dnskey.Flags)
	assert.Equal(t, dns.ED25519, dnskey.Algorithm)
}

func TestGenerateKeyPairUnknownAlgorithm(t *testing.T) {
	_, err := GenerateKeyPair(255, 0, false, "bogus")
	assert.Error(t, err)
}

func TestRevocationChangesPublishedKeyTag(t *testing.T) {
	// spec.md §3: revoking a key changes the key tag of the DNSKEY it
	// actually publishes, even though KeyPair.KeyTag() keeps returning the
	// pre-revocation identity used for bookkeeping.
	kp, err := GenerateKeyPair(dns.ECDSAP256SHA256, 0, true, "a1-ksk")
	require.NoError(t, err)

	preRevocationTag := kp.DNSKEY().KeyTag()
	assert.Equal(t, kp.KeyTag(), preRevocationTag)

	kp.Revoked = true
	postRevocationTag := kp.DNSKEY().KeyTag()

	assert.NotEqual(t, preRevocationTag, postRevocationTag)
	assert.Equal(t, kp.KeyTag(), preRevocationTag, "KeyTag() stays pinned to generation time")
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	for _, alg := range []uint8{dns.RSASHA256, dns.ECDSAP256SHA256, dns.ECDSAP384SHA384, dns.ED25519} {
		kp, err := GenerateKeyPair(alg, 0, false, "a1-zsk-q1")
		require.NoError(t, err)
		kp.Publish = true
		kp.Sign = true

		persisted, err := kp.Serialize()
		require.NoError(t, err)
		assert.Equal(t, kp.Name, persisted.Name)
		assert.Equal(t, kp.KeyTag(), persisted.KeyTag)

		restored, err := DeserializeKeyPair(persisted)
		require.NoError(t, err)

		assert.Equal(t, kp.Algorithm, restored.Algorithm)
		assert.Equal(t, kp.KeyTag(), restored.KeyTag())
		assert.Equal(t, kp.DNSKEY().PublicKey, restored.DNSKEY().PublicKey)
	}
}
