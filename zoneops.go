/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/miekg/dns"
)

// rrsetKey groups records the way DNSSEC signs them: by owner name and
// type, case-folded per dns.CanonicalName.
type rrsetKey struct {
	name   string
	rrtype uint16
}

// Zone is an in-memory, fully parsed zone: every record from the unsigned
// source file, grouped by owner+type so DNSKEY/RRSIG can be injected and
// regenerated on every signing pass. The driver reloads a fresh Zone from
// the unsigned file on every tick rather than carrying resigning state
// across ticks — see driver.go's Tick.
type Zone struct {
	Origin string
	TTL    uint32
	Hints  string

	order []rrsetKey
	sets  map[rrsetKey][]dns.RR
}

// LoadZone parses an unsigned zone file using miekg/dns's streaming zone
// parser, grouping records by owner+type in first-seen order so the
// written-out zone stays close to the source's layout. hints, if non-empty,
// is passed through unchanged as the base path $INCLUDE directives resolve
// against (spec.md §6's "hints" config key); empty hints falls back to
// path itself, miekg/dns's own default.
func LoadZone(path, origin, hints string) (*Zone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadZone: %w", err)
	}
	defer f.Close()

	z := &Zone{
		Origin: dns.CanonicalName(origin),
		Hints:  hints,
		sets:   map[rrsetKey][]dns.RR{},
	}

	includeBase := path
	if hints != "" {
		includeBase = hints
	}

	zp := dns.NewZoneParser(bufio.NewReader(f), z.Origin, includeBase)
	zp.SetIncludeAllowed(true)

	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if rr.Header().Rrtype == dns.TypeSOA {
			z.TTL = rr.Header().Ttl
		}
		key := rrsetKey{name: dns.CanonicalName(rr.Header().Name), rrtype: rr.Header().Rrtype}
		if _, seen := z.sets[key]; !seen {
			z.order = append(z.order, key)
		}
		z.sets[key] = append(z.sets[key], rr)
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("LoadZone: %q: %w", path, err)
	}

	if z.TTL == 0 {
		z.TTL = DefaultDnskeyTTL
	}

	return z, nil
}

// SetDNSKEYs replaces the apex DNSKEY RRset with the DNSKEY records of
// every KeyPair in the publish set (spec.md §5's "build the publish set").
func (z *Zone) SetDNSKEYs(publishSet []*KeyPair, ttl uint32) {
	key := rrsetKey{name: z.Origin, rrtype: dns.TypeDNSKEY}
	if _, seen := z.sets[key]; !seen {
		z.order = append(z.order, key)
	}

	rrs := make([]dns.RR, 0, len(publishSet))
	for _, kp := range publishSet {
		dnskey := kp.DNSKEY()
		dnskey.Hdr.Name = z.Origin
		dnskey.Hdr.Ttl = ttl
		rrs = append(rrs, dnskey)
	}
	z.sets[key] = rrs
}

// dropRRSIGs removes every existing RRSIG rrset; they are always
// regenerated wholesale by Sign.
func (z *Zone) dropRRSIGs() {
	var kept []rrsetKey
	for _, k := range z.order {
		if k.rrtype == dns.TypeRRSIG {
			delete(z.sets, k)
			continue
		}
		kept = append(kept, k)
	}
	z.order = kept
}

// Sign regenerates every RRSIG in the zone: the apex DNSKEY RRset is
// signed by every KSK in signSet, everything else by every non-KSK (ZSK)
// key in signSet. lifetime is the signature validity window in seconds
// (spec.md §6's "lifetime"; 0 uses DefaultSigLifetime).
func (z *Zone) Sign(signSet []*KeyPair, lifetime uint32) error {
	z.dropRRSIGs()

	if lifetime == 0 {
		lifetime = DefaultSigLifetime
	}

	var ksks, zsks []*KeyPair
	for _, kp := range signSet {
		if kp.KSK {
			ksks = append(ksks, kp)
		} else {
			zsks = append(zsks, kp)
		}
	}

	incep, expir := sigLifetime(lifetime)

	for _, key := range z.order {
		if key.rrtype == dns.TypeRRSIG {
			continue
		}
		rrs := z.sets[key]
		if len(rrs) == 0 {
			continue
		}

		signers := zsks
		if key.rrtype == dns.TypeDNSKEY {
			signers = ksks
		}

		for _, kp := range signers {
			rrsig := &dns.RRSIG{
				Hdr: dns.RR_Header{
					Name:   key.name,
					Rrtype: dns.TypeRRSIG,
					Class:  dns.ClassINET,
					Ttl:    rrs[0].Header().Ttl,
				},
				Algorithm:  kp.Algorithm,
				Inception:  incep,
				Expiration: expir,
				KeyTag:     kp.DNSKEY().KeyTag(),
				SignerName: z.Origin,
			}
			if err := rrsig.Sign(kp.PrivateKey, rrs); err != nil {
				return fmt.Errorf("Sign: %s %s with key %q: %w", key.name, dns.TypeToString[key.rrtype], kp.Name, err)
			}
			sigKey := rrsetKey{name: key.name, rrtype: dns.TypeRRSIG}
			if _, seen := z.sets[sigKey]; !seen {
				z.order = append(z.order, sigKey)
			}
			z.sets[sigKey] = append(z.sets[sigKey], rrsig)
		}
	}

	return nil
}

// DSSet returns the DS records for every KSK in the publish set, as
// spec.md §5's anchors supplement requires for trust-anchor emission.
func (z *Zone) DSSet(publishSet []*KeyPair, digest uint8) []*dns.DS {
	var out []*dns.DS
	for _, kp := range publishSet {
		if !kp.KSK {
			continue
		}
		dnskey := kp.DNSKEY()
		dnskey.Hdr.Name = z.Origin
		ds := dnskey.ToDS(digest)
		if ds != nil {
			out = append(out, ds)
		}
	}
	return out
}

// DSRecords returns the DS records for every KSK in publishSet as the
// presentation-independent DSRecord shape anchors.go's writers consume.
func (z *Zone) DSRecords(publishSet []*KeyPair, digest uint8) []*DSRecord {
	return DSRecordsFromZone(z, publishSet, digest)
}

// WriteFile writes the zone back out as a flat, sorted-by-first-seen
// master file. Matches signer.py's zone.to_file(fp) — a single pass,
// no atomic rename here since the driver already renames the keyring;
// the signed zone is a derived artifact regenerated every tick.
func (z *Zone) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteFile: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, key := range z.order {
		rrs := z.sets[key]
		sort.SliceStable(rrs, func(i, j int) bool { return rrs[i].String() < rrs[j].String() })
		for _, rr := range rrs {
			if _, err := fmt.Fprintln(w, rr.String()); err != nil {
				return fmt.Errorf("WriteFile: %w", err)
			}
		}
	}
	return w.Flush()
}
