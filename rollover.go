/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import "fmt"

// RolloverPolicy is the single method the three rollover variants differ
// in. Rather than a class hierarchy, each policy is a tagged strategy
// value applied to the already-reset keypairs of both slots — see
// spec.md §9 "Class hierarchy -> tagged variants".
type RolloverPolicy interface {
	// Apply assigns Publish/Sign/Revoked on a1 (current algorithm,
	// keypairs[0]) and a2 (incoming algorithm, keypairs[1]) for the given
	// (quarter, slot). Reset() has already cleared every flag.
	Apply(quarter, slot int, a1, a2 map[string]*KeyPair)
}

// PolicyByName resolves a config "mode" string to a RolloverPolicy,
// matching the two values spec.md §6 allows ("double", "single") plus
// the hybrid delta this design adds on top of double-signer. An empty
// mode selects double-signer.
func PolicyByName(name string) (RolloverPolicy, error) {
	switch name {
	case PolicyDoubleSigner, "":
		return DoubleSignerPolicy{}, nil
	case PolicySingleSigner:
		return SingleSignerPolicy{}, nil
	case PolicyHybridSigner:
		return HybridSignerPolicy{}, nil
	default:
		return nil, fmt.Errorf("PolicyByName: unknown rollover mode %q", name)
	}
}

// DoubleSignerPolicy is the default policy: pre/post-publication of ZSKs
// within a quarter, and a KSK/ZSK double-signing overlap across the
// algorithm-rollover year boundary (quarters 2-4).
type DoubleSignerPolicy struct{}

func (DoubleSignerPolicy) Apply(quarter, slot int, a1, a2 map[string]*KeyPair) {
	doubleSignerApply(quarter, slot, a1, a2)
}

func doubleSignerApply(quarter, slot int, a1, a2 map[string]*KeyPair) {
	switch quarter {
	case 1:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q1"].Publish = true
		a1["zsk-q1"].Sign = true

		if slot == 1 {
			// post-publication of last year's final ZSK
			a1["zsk-q4"].Publish = true
		}
		if slot == 9 {
			// pre-publication of next quarter's ZSK
			a1["zsk-q2"].Publish = true
		}

	case 2:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q2"].Publish = true
		a1["zsk-q2"].Sign = true

		if slot == 1 {
			a1["zsk-q1"].Publish = true
		}
		if slot > 1 {
			// introduce the incoming algorithm's KSK
			a2["ksk"].Publish = true
			a2["ksk"].Sign = true
			a2["zsk-q2"].Publish = true
			a2["zsk-q2"].Sign = true
		}
		if slot == 9 {
			a1["zsk-q3"].Publish = true
			a2["zsk-q3"].Publish = true
		}

	case 3:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q3"].Publish = true
		a1["zsk-q3"].Sign = true

		a2["ksk"].Publish = true
		a2["ksk"].Sign = true
		a2["zsk-q3"].Publish = true
		a2["zsk-q3"].Sign = true

		if slot == 1 {
			a1["zsk-q2"].Publish = true
			a2["zsk-q2"].Publish = true
		}
		if slot == 9 {
			a1["zsk-q4"].Publish = true
			a2["zsk-q4"].Publish = true
		}

	case 4:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q4"].Publish = true
		a1["zsk-q4"].Sign = true

		a2["ksk"].Publish = true
		a2["ksk"].Sign = true
		a2["zsk-q4"].Publish = true
		a2["zsk-q4"].Sign = true

		if slot == 1 {
			a1["zsk-q3"].Publish = true
			a2["zsk-q3"].Publish = true
		}
		if slot > 1 {
			a1["zsk-q4"].Publish = false
			a1["zsk-q4"].Sign = false
		}
		if slot > 1 && slot < 9 {
			// revoke the outgoing KSK. The REVOKE bit must actually be
			// published and signed for the announcement to reach resolvers
			// (spec.md invariant 8) — the upstream double-signer left this
			// unset; we carry the fix the single-signer already applies.
			a1["ksk"].Revoked = true
			a1["ksk"].Publish = true
			a1["ksk"].Sign = true
		}
		if slot == 9 {
			// drop the outgoing algorithm entirely; rotate() runs right
			// after this last update of the year.
			a1["ksk"].Publish = false
			a1["ksk"].Sign = false
			a2["zsk-q1"].Publish = true
		}
	}
}

// SingleSignerPolicy shortens the overlap: only one algorithm signs at a
// time. The incoming KSK is published (but doesn't sign) in quarter 2
// slots 2..9; from quarter 3 onward the incoming algorithm does the
// signing, apart from the revoked outgoing KSK, which still signs in
// quarter 4 slots 2..8.
type SingleSignerPolicy struct{}

func (SingleSignerPolicy) Apply(quarter, slot int, a1, a2 map[string]*KeyPair) {
	switch quarter {
	case 1:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q1"].Publish = true
		a1["zsk-q1"].Sign = true

		if slot == 1 {
			a1["zsk-q4"].Publish = true
		}
		if slot == 9 {
			a1["zsk-q2"].Publish = true
		}

	case 2:
		a1["ksk"].Publish = true
		a1["ksk"].Sign = true
		a1["zsk-q2"].Publish = true
		a1["zsk-q2"].Sign = true

		if slot == 1 {
			a1["zsk-q1"].Publish = true
		}
		if slot > 1 {
			// incoming KSK is published early, but does not sign yet
			a2["ksk"].Publish = true
			a2["ksk"].Sign = false
			a2["zsk-q2"].Publish = false
			a2["zsk-q2"].Sign = false
		}
		if slot == 9 {
			a1["zsk-q3"].Publish = true
			a2["zsk-q3"].Publish = false
		}

	case 3:
		// responsibility shifts to a2: a1's quarter-3 ZSK is inactive
		a1["zsk-q3"].Publish = false
		a1["zsk-q3"].Sign = false

		a2["ksk"].Publish = true
		a2["ksk"].Sign = true
		a2["zsk-q3"].Publish = true
		a2["zsk-q3"].Sign = true

		if slot == 1 {
			a1["ksk"].Publish = true
			a1["zsk-q2"].Publish = true
			a2["zsk-q2"].Publish = false
		}
		if slot == 9 {
			a2["zsk-q4"].Publish = true
		}

	case 4:
		a1["ksk"].Publish = false
		a1["ksk"].Sign = false
		a1["zsk-q4"].Publish = false
		a1["zsk-q4"].Sign = false

		a2["ksk"].Publish = true
		a2["ksk"].Sign = true
		a2["zsk-q4"].Publish = true
		a2["zsk-q4"].Sign = true

		if slot == 1 {
			a1["zsk-q3"].Publish = false
			a2["zsk-q3"].Publish = true
		}
		if slot > 1 {
			a1["zsk-q4"].Publish = false
			a1["zsk-q4"].Sign = false
		}
		if slot > 1 && slot < 9 {
			a1["ksk"].Sign = true
			a1["ksk"].Publish = true
			a1["ksk"].Revoked = true
		}
		if slot == 9 {
			a1["ksk"].Publish = false
			a1["ksk"].Sign = false
			a2["zsk-q1"].Publish = true
		}
	}
}

// HybridSignerPolicy is double-signer plus early publication of next
// year's KSK: the incoming KSK's DNSKEY is published in quarter 1 slots
// 2..9 and at quarter 2 slot 1, ahead of when double-signer would normally
// introduce it (quarter 2, slot > 1). Slot (1,1) leaves a2 untouched.
type HybridSignerPolicy struct {
	DoubleSignerPolicy
}

func (h HybridSignerPolicy) Apply(quarter, slot int, a1, a2 map[string]*KeyPair) {
	doubleSignerApply(quarter, slot, a1, a2)

	// (1,1) must stay untouched for a2: spec.md invariant 6 requires an
	// empty a2 flag set at the very first slot of the year.
	if (quarter == 1 && slot > 1) || (quarter == 2 && slot == 1) {
		a2["ksk"].Publish = true
	}
}
