/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"fmt"
	"io"
)

// WriteDSAnchors writes one DS record per line for every DS in ds, in the
// plain RFC 4034 presentation format (grounded on tools/zta.py's make_ds
// output, reimplemented here via Zone.DSSet/dns.DNSKEY.ToDS).
func WriteDSAnchors(w io.Writer, ds []*DSRecord) error {
	for _, d := range ds {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteBINDTrustAnchors writes a BIND9 named.conf "trust-anchors {}"
// stanza, one "initial-ds" statement per DS record, grounded on
// testbed/bind/ta.py.
func WriteBINDTrustAnchors(w io.Writer, ds []*DSRecord) error {
	if _, err := fmt.Fprintln(w, "trust-anchors {"); err != nil {
		return err
	}
	for _, d := range ds {
		if _, err := fmt.Fprintf(w, "    %q initial-ds %d %d %d %q;\n", d.Owner, d.KeyTag, d.Algorithm, d.DigestType, d.Digest); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "};")
	return err
}

// DSRecord is a presentation-independent view of a DS record, decoupling
// anchors.go's two renderers from miekg/dns's dns.DS wire type.
type DSRecord struct {
	Owner      string
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     string
}

// String renders a DSRecord in standard RFC 4034 presentation format.
func (d DSRecord) String() string {
	return fmt.Sprintf("%s IN DS %d %d %d %s", d.Owner, d.KeyTag, d.Algorithm, d.DigestType, d.Digest)
}

// DSRecordsFromZone converts a Zone's DSSet into the DSRecord shape the
// anchor writers consume.
func DSRecordsFromZone(z *Zone, publishSet []*KeyPair, digest uint8) []*DSRecord {
	var out []*DSRecord
	for _, ds := range z.DSSet(publishSet, digest) {
		out = append(out, &DSRecord{
			Owner:      ds.Hdr.Name,
			KeyTag:     ds.KeyTag,
			Algorithm:  ds.Algorithm,
			DigestType: ds.DigestType,
			Digest:     ds.Digest,
		})
	}
	return out
}
