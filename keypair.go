/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/miekg/dns"
)

// KeyPair is a single DNSSEC key: algorithm, private material, and the
// four mutable operational flags the rollover state machine assigns on
// every update(quarter, slot). See dnskey_ops.go in the teacher for the
// equivalent notion of "active" KSKs/ZSKs that this generalizes into an
// explicit, serializable flag set.
type KeyPair struct {
	Algorithm uint8        // IANA DNSSEC algorithm number
	PrivateKey crypto.Signer // opaque handle; the rollover logic never inspects it

	Name string // e.g. "a1-ksk", "a2-zsk-q3"

	KSK bool // immutable: true iff this is a Key Signing Key (SEP)

	Revoked bool
	Sign    bool
	Publish bool

	// keyTag is computed once at generation, from the pre-revocation
	// DNSKEY wire form. Revoking a key changes the key tag of the DNSKEY
	// that is actually published (see DNSKEY, below) — that is expected
	// DNSSEC behavior, not a bug; keyTag here is the stable identity used
	// for bookkeeping and serialization.
	keyTag uint16

	// publicKey caches the base64 public key material produced at
	// generation time, so DNSKEY() never has to touch PrivateKey again.
	publicKey string
}

// zoneKeySize returns the key size (bits) used for key generation when the
// caller didn't request one explicitly, mirroring the algorithm -> bits
// table in the teacher's DNSSEC key generator (tdns/kdc/keygen.go).
func zoneKeySize(algorithm uint8) (int, error) {
	switch algorithm {
	case dns.ECDSAP256SHA256, dns.ED25519:
		return 256, nil
	case dns.ECDSAP384SHA384:
		return 384, nil
	case dns.RSASHA256, dns.RSASHA512:
		return 2048, nil
	default:
		return 0, fmt.Errorf("zoneKeySize: unsupported algorithm %d", algorithm)
	}
}

// GenerateKeyPair produces a fresh KeyPair. Private key material is created
// via miekg/dns's DNSKEY.Generate, exactly as tdns/kdc/keygen.go does it.
// keySize of 0 means "use the algorithm's default size".
func GenerateKeyPair(algorithm uint8, keySize int, ksk bool, name string) (*KeyPair, error) {
	if _, known := dns.AlgorithmToString[algorithm]; !known {
		return nil, fmt.Errorf("GenerateKeyPair: unknown algorithm %d", algorithm)
	}

	bits := keySize
	if bits == 0 {
		var err error
		bits, err = zoneKeySize(algorithm)
		if err != nil {
			return nil, fmt.Errorf("GenerateKeyPair: %w", err)
		}
	}

	dnskey := new(dns.DNSKEY)
	dnskey.Hdr.Rrtype = dns.TypeDNSKEY
	dnskey.Hdr.Class = dns.ClassINET
	dnskey.Algorithm = algorithm
	dnskey.Protocol = 3
	dnskey.Flags = dns.ZONE
	if ksk {
		dnskey.Flags |= dns.SEP
	}

	priv, err := dnskey.Generate(bits)
	if err != nil {
		return nil, fmt.Errorf("GenerateKeyPair: failed to generate %s key: %w", dns.AlgorithmToString[algorithm], err)
	}

	signer, err := toSigner(priv)
	if err != nil {
		return nil, fmt.Errorf("GenerateKeyPair: %w", err)
	}

	kp := &KeyPair{
		Algorithm:  algorithm,
		PrivateKey: signer,
		Name:       name,
		KSK:        ksk,
		publicKey:  dnskey.PublicKey,
	}
	kp.keyTag = dnskey.KeyTag()

	return kp, nil
}

func toSigner(priv crypto.PrivateKey) (crypto.Signer, error) {
	switch k := priv.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

// flags returns ZONE | (SEP if KSK) | (REVOKE if Revoked), per spec.md §3.
func (kp *KeyPair) flags() uint16 {
	f := uint16(dns.ZONE)
	if kp.KSK {
		f |= dns.SEP
	}
	if kp.Revoked {
		f |= dns.REVOKE
	}
	return f
}

// DNSKEY recomputes the DNSKEY wire record from the current flags and the
// cached public key material. It is recomputed rather than cached because
// Revoked mutates after generation (see spec.md §4.1).
func (kp *KeyPair) DNSKEY() *dns.DNSKEY {
	return &dns.DNSKEY{
		Hdr: dns.RR_Header{
			Rrtype: dns.TypeDNSKEY,
			Class:  dns.ClassINET,
		},
		Algorithm: kp.Algorithm,
		Protocol:  3,
		Flags:     kp.flags(),
		PublicKey: kp.publicKey,
	}
}

// KeyTag returns the key tag computed at generation time (pre-revocation).
// Once Revoked is set, the DNSKEY actually published carries a different
// (correct, standard) key tag — see DNSKEY().KeyTag() for that value.
func (kp *KeyPair) KeyTag() uint16 {
	return kp.keyTag
}

// persistedKeyPair is the stable on-disk shape of a KeyPair, matching
// spec.md §6's JSON schema.
type persistedKeyPair struct {
	Name       string `json:"name"`
	Algorithm  uint8  `json:"algorithm"`
	KeyTag     uint16 `json:"keytag"`
	KSK        bool   `json:"ksk"`
	Sign       bool   `json:"sign"`
	Publish    bool   `json:"publish"`
	Revoked    bool   `json:"revoked"`
	PrivateKey string `json:"private_key"`
}

// UnmarshalJSON decodes a persisted KeyPair, leaving sign and publish true
// and revoked false when those fields are absent from the JSON.
func (p *persistedKeyPair) UnmarshalJSON(data []byte) error {
	type plain persistedKeyPair
	aux := plain{Sign: true, Publish: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = persistedKeyPair(aux)
	return nil
}

// Serialize converts the KeyPair into its stable persisted form. Private
// key material is encoded as unencrypted PEM-PKCS8, as spec.md §4.1 requires.
func (kp *KeyPair) Serialize() (persistedKeyPair, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return persistedKeyPair{}, fmt.Errorf("Serialize: failed to marshal private key for %q: %w", kp.Name, err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	return persistedKeyPair{
		Name:       kp.Name,
		Algorithm:  kp.Algorithm,
		KeyTag:     kp.keyTag,
		KSK:        kp.KSK,
		Sign:       kp.Sign,
		Publish:    kp.Publish,
		Revoked:    kp.Revoked,
		PrivateKey: string(pemBytes),
	}, nil
}

// DeserializeKeyPair is the inverse of Serialize. sign and publish default
// to true and revoked to false when absent from the persisted form — the
// rollover state machine resets and recomputes them on the next update
// anyway (spec.md §4.1).
func DeserializeKeyPair(p persistedKeyPair) (*KeyPair, error) {
	block, _ := pem.Decode([]byte(p.PrivateKey))
	if block == nil {
		return nil, fmt.Errorf("DeserializeKeyPair: %q: malformed PEM private key", p.Name)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("DeserializeKeyPair: %q: failed to parse PKCS8 private key: %w", p.Name, err)
	}

	signer, err := toSigner(priv)
	if err != nil {
		return nil, fmt.Errorf("DeserializeKeyPair: %q: %w", p.Name, err)
	}

	kp := &KeyPair{
		Algorithm:  p.Algorithm,
		PrivateKey: signer,
		Name:       p.Name,
		KSK:        p.KSK,
		Revoked:    p.Revoked,
		Sign:       p.Sign,
		Publish:    p.Publish,
		keyTag:     p.KeyTag,
	}

	// Recover the cached public key material so DNSKEY() doesn't need to
	// touch the private key again.
	pk, err := encodeDNSKEYPublicKey(p.Algorithm, signer.Public())
	if err != nil {
		return nil, fmt.Errorf("DeserializeKeyPair: %q: %w", p.Name, err)
	}
	kp.publicKey = pk

	return kp, nil
}

// encodeDNSKEYPublicKey re-derives the base64 DNSKEY public-key wire field
// from a crypto.PublicKey, used only when reloading a persisted KeyPair
// (generation time gets this for free as a side effect of dns.DNSKEY.Generate).
// The wire formats are RFC 3110 (RSA), RFC 6605 (ECDSA) and RFC 8080 (EdDSA).
func encodeDNSKEYPublicKey(algorithm uint8, pub crypto.PublicKey) (string, error) {
	switch algorithm {
	case dns.RSASHA256, dns.RSASHA512, dns.RSASHA1:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return "", fmt.Errorf("encodeDNSKEYPublicKey: algorithm %d expects an RSA public key, got %T", algorithm, pub)
		}
		return encodeRSAPublicKey(rsaPub), nil

	case dns.ECDSAP256SHA256, dns.ECDSAP384SHA384:
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return "", fmt.Errorf("encodeDNSKEYPublicKey: algorithm %d expects an ECDSA public key, got %T", algorithm, pub)
		}
		size := 32
		if algorithm == dns.ECDSAP384SHA384 {
			size = 48
		}
		buf := make([]byte, 2*size)
		ecPub.X.FillBytes(buf[:size])
		ecPub.Y.FillBytes(buf[size:])
		return base64.StdEncoding.EncodeToString(buf), nil

	case dns.ED25519:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return "", fmt.Errorf("encodeDNSKEYPublicKey: algorithm %d expects an Ed25519 public key, got %T", algorithm, pub)
		}
		return base64.StdEncoding.EncodeToString(edPub), nil

	default:
		return "", fmt.Errorf("encodeDNSKEYPublicKey: unsupported algorithm %d", algorithm)
	}
}

// encodeRSAPublicKey implements RFC 3110's exponent/modulus encoding.
func encodeRSAPublicKey(pub *rsa.PublicKey) string {
	e := big.NewInt(int64(pub.E)).Bytes()
	n := pub.N.Bytes()

	var buf []byte
	if len(e) <= 255 {
		buf = append(buf, byte(len(e)))
	} else {
		buf = append(buf, 0)
		buf = append(buf, byte(len(e)>>8), byte(len(e)))
	}
	buf = append(buf, e...)
	buf = append(buf, n...)

	return base64.StdEncoding.EncodeToString(buf)
}
