package rollercoaster

import (
	"path/filepath"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyspecs() [2]AlgorithmSpec {
	return [2]AlgorithmSpec{
		{Algorithm: dns.ECDSAP256SHA256},
		{Algorithm: dns.ED25519},
	}
}

func TestKeyRingGenerateFillsAllRoles(t *testing.T) {
	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)

	for _, keys := range kr.Keypairs() {
		assert.Len(t, keys, 5)
		assert.Contains(t, keys, "ksk")
		for _, role := range zskRoleNames {
			assert.Contains(t, keys, role)
		}
	}
}

func TestKeyRingUpdateRejectsOutOfRange(t *testing.T) {
	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)

	assert.Error(t, kr.Update(0, 1))
	assert.Error(t, kr.Update(5, 1))
	assert.Error(t, kr.Update(1, 0))
	assert.Error(t, kr.Update(1, 10))
}

func TestKeyRingUpdateBuildsExpectedSignSet(t *testing.T) {
	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)

	require.NoError(t, kr.Update(1, 1))

	signSet := kr.SignSet()
	assert.NotEmpty(t, signSet)
	var names []string
	for _, kp := range signSet {
		assert.True(t, kp.Sign)
		assert.True(t, kp.Publish, "the state machine never signs a key it doesn't also publish")
		names = append(names, kp.Name)
	}
	assert.ElementsMatch(t, []string{"a1-ksk", "a1-zsk-q1"}, names)
}

func TestKeyRingRotateSwapsSlots(t *testing.T) {
	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)

	before := kr.Keyspecs()
	kr.Rotate()
	after := kr.Keyspecs()

	assert.Equal(t, before[0], after[1])
	assert.Equal(t, before[1], after[0])
}

func TestKeyRingSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyring.json")

	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)
	require.NoError(t, kr.Update(2, 5))
	require.NoError(t, kr.Save(path))

	reloaded, err := NewKeyRing(testKeyspecs(), path, DoubleSignerPolicy{})
	require.NoError(t, err)

	for i, keys := range kr.Keypairs() {
		for name, kp := range keys {
			got, ok := reloaded.Keypairs()[i][name]
			require.True(t, ok)
			assert.Equal(t, kp.KeyTag(), got.KeyTag())
			assert.Equal(t, kp.Publish, got.Publish)
			assert.Equal(t, kp.Sign, got.Sign)
		}
	}
}

func TestKeyRingGenerateYearBoundaryDeletions(t *testing.T) {
	kr, err := NewKeyRing(testKeyspecs(), "", DoubleSignerPolicy{})
	require.NoError(t, err)

	oldIncoming := kr.Keypairs()[1]["ksk"]
	require.NoError(t, kr.Generate(1, 1))
	newIncoming := kr.Keypairs()[1]["ksk"]
	assert.NotEqual(t, oldIncoming.KeyTag(), newIncoming.KeyTag(), "slot 1 is entirely regenerated at (1,1)")

	oldZSKQ4 := kr.Keypairs()[0]["zsk-q4"]
	require.NoError(t, kr.Generate(1, 2))
	newZSKQ4 := kr.Keypairs()[0]["zsk-q4"]
	assert.NotEqual(t, oldZSKQ4.KeyTag(), newZSKQ4.KeyTag(), "zsk-q4 of slot 0 is regenerated at (1,2)")
}
