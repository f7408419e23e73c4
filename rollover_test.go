package rollercoaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func freshSlots() (a1, a2 map[string]*KeyPair) {
	a1 = map[string]*KeyPair{
		"ksk":    {Name: "a1-ksk", KSK: true},
		"zsk-q1": {Name: "a1-zsk-q1"},
		"zsk-q2": {Name: "a1-zsk-q2"},
		"zsk-q3": {Name: "a1-zsk-q3"},
		"zsk-q4": {Name: "a1-zsk-q4"},
	}
	a2 = map[string]*KeyPair{
		"ksk":    {Name: "a2-ksk", KSK: true},
		"zsk-q1": {Name: "a2-zsk-q1"},
		"zsk-q2": {Name: "a2-zsk-q2"},
		"zsk-q3": {Name: "a2-zsk-q3"},
		"zsk-q4": {Name: "a2-zsk-q4"},
	}
	return
}

func TestDoubleSignerQuarter1Slot1(t *testing.T) {
	a1, a2 := freshSlots()
	DoubleSignerPolicy{}.Apply(1, 1, a1, a2)

	assert.True(t, a1["ksk"].Publish)
	assert.True(t, a1["ksk"].Sign)
	assert.True(t, a1["zsk-q1"].Publish)
	assert.True(t, a1["zsk-q1"].Sign)
	assert.True(t, a1["zsk-q4"].Publish, "last year's final ZSK is post-published at (1,1)")
	assert.False(t, a1["zsk-q4"].Sign)
	assert.False(t, a2["ksk"].Publish, "incoming algorithm is untouched in quarter 1")
}

func TestDoubleSignerQuarter2PreOverlap(t *testing.T) {
	a1, a2 := freshSlots()
	DoubleSignerPolicy{}.Apply(2, 5, a1, a2)

	assert.True(t, a1["ksk"].Sign)
	assert.True(t, a2["ksk"].Publish)
	assert.True(t, a2["ksk"].Sign)
	assert.True(t, a2["zsk-q2"].Sign)
}

func TestDoubleSignerQuarter4RevocationFix(t *testing.T) {
	// spec.md §9's required fix: revoking the outgoing KSK in quarter 4
	// must not also silence its publication/signing, or the REVOKE bit
	// never reaches resolvers.
	a1, a2 := freshSlots()
	DoubleSignerPolicy{}.Apply(4, 5, a1, a2)

	assert.True(t, a1["ksk"].Revoked)
	assert.True(t, a1["ksk"].Publish, "revoked KSK must still be published")
	assert.True(t, a1["ksk"].Sign, "revoked KSK must still sign its own REVOKE announcement")
}

func TestDoubleSignerQuarter4Slot9DropsOutgoing(t *testing.T) {
	a1, a2 := freshSlots()
	DoubleSignerPolicy{}.Apply(4, 9, a1, a2)

	assert.False(t, a1["ksk"].Publish)
	assert.False(t, a1["ksk"].Sign)
	assert.True(t, a2["zsk-q1"].Publish)
}

func TestSingleSignerQuarter3ShiftsToIncoming(t *testing.T) {
	a1, a2 := freshSlots()
	SingleSignerPolicy{}.Apply(3, 5, a1, a2)

	assert.False(t, a1["zsk-q3"].Sign)
	assert.True(t, a2["ksk"].Sign)
	assert.True(t, a2["zsk-q3"].Sign)
}

func TestSingleSignerQuarter2IncomingKSKPublishedNotSigning(t *testing.T) {
	a1, a2 := freshSlots()
	SingleSignerPolicy{}.Apply(2, 5, a1, a2)

	assert.True(t, a2["ksk"].Publish)
	assert.False(t, a2["ksk"].Sign)
}

func TestSingleSignerQuarter4RevocationFix(t *testing.T) {
	a1, a2 := freshSlots()
	SingleSignerPolicy{}.Apply(4, 5, a1, a2)

	assert.True(t, a1["ksk"].Revoked)
	assert.True(t, a1["ksk"].Publish)
	assert.True(t, a1["ksk"].Sign)
}

func TestHybridSignerPublishesIncomingKSKEarly(t *testing.T) {
	a1, a2 := freshSlots()
	HybridSignerPolicy{}.Apply(1, 5, a1, a2)
	assert.True(t, a2["ksk"].Publish, "hybrid publishes the incoming KSK in quarter 1 after slot 1")
	assert.False(t, a2["ksk"].Sign, "publishing does not imply signing")

	a1, a2 = freshSlots()
	HybridSignerPolicy{}.Apply(2, 1, a1, a2)
	assert.True(t, a2["ksk"].Publish, "hybrid publishes the incoming KSK at quarter 2 slot 1 too")
}

func TestHybridSignerQuarter1Slot1YieldsEmptyA2(t *testing.T) {
	// spec.md §8 invariant 6: for (q,s) = (1,1) the double-signer and
	// hybrid policies yield an empty a2 flag set.
	a1, a2 := freshSlots()
	HybridSignerPolicy{}.Apply(1, 1, a1, a2)

	for name, kp := range a2 {
		assert.False(t, kp.Publish, "a2[%q].Publish must be false at (1,1)", name)
		assert.False(t, kp.Sign, "a2[%q].Sign must be false at (1,1)", name)
		assert.False(t, kp.Revoked, "a2[%q].Revoked must be false at (1,1)", name)
	}
}

func TestPolicyByName(t *testing.T) {
	cases := map[string]RolloverPolicy{
		"double": DoubleSignerPolicy{},
		"single": SingleSignerPolicy{},
		"hybrid": HybridSignerPolicy{},
		"":       DoubleSignerPolicy{},
	}
	for name, want := range cases {
		got, err := PolicyByName(name)
		assert.NoError(t, err)
		assert.IsType(t, want, got)
	}

	_, err := PolicyByName("bogus")
	assert.Error(t, err)
}
