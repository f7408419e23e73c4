/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"math/rand"
	"time"
)

// sigLifetime computes RRSIG inception/expiration, mirroring tdns/sign.go's
// sigLifetime: a small random jitter on both ends plus a 60-second
// allowance for inception to absorb clock skew between signer and
// resolvers.
func sigLifetime(lifetime uint32) (inception, expiration uint32) {
	now := time.Now().UTC()
	jitter := time.Duration(rand.Intn(61)) * time.Second
	validity := time.Duration(lifetime) * time.Second

	incep := now.Add(-jitter).Add(-60 * time.Second)
	expir := now.Add(validity).Add(jitter)

	return uint32(incep.Unix()), uint32(expir.Unix())
}

// Signer is the interface the driver signs through. The only production
// implementation is *Zone; tests substitute a fake to exercise the driver
// loop without touching the filesystem or real crypto.
type Signer interface {
	SetDNSKEYs(publishSet []*KeyPair, ttl uint32)
	Sign(signSet []*KeyPair, lifetime uint32) error
	WriteFile(path string) error
	// DSRecords returns the DS records for every KSK in publishSet, for
	// the driver's optional trust-anchor emission (anchors.go).
	DSRecords(publishSet []*KeyPair, digest uint8) []*DSRecord
}

var _ Signer = (*Zone)(nil)
