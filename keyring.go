/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// zskRoleNames are the four quarterly ZSK roles every slot carries,
// in addition to a single "ksk" role.
var zskRoleNames = []string{"zsk-q1", "zsk-q2", "zsk-q3", "zsk-q4"}

// AlgorithmSpec names one of the two algorithm slots a KeyRing juggles:
// the algorithm plus an optional explicit key size.
type AlgorithmSpec struct {
	Algorithm uint8 `json:"algorithm"`
	KeySize   int   `json:"key_size,omitempty"`
}

// KeyRing is the central state container: two algorithm slots (index 0 is
// "current", index 1 is "incoming"), each a role -> KeyPair mapping, plus
// optional on-disk persistence. See spec.md §3/§4.2.
type KeyRing struct {
	keyspecs [2]AlgorithmSpec
	keypairs [2]map[string]*KeyPair
	filename string
	policy   RolloverPolicy
}

// NewKeyRing constructs a KeyRing from a pair of algorithm specs and an
// optional persistence filename. On construction it attempts to load
// persisted state; a missing file is treated as "generate fresh" (logged
// at warning level, matching rollercoaster/keyring.py's KeyRing.__init__).
func NewKeyRing(keyspecs [2]AlgorithmSpec, filename string, policy RolloverPolicy) (*KeyRing, error) {
	kr := &KeyRing{
		keyspecs: keyspecs,
		filename: filename,
		policy:   policy,
	}

	loaded := false
	if filename != "" {
		if err := kr.Load(filename); err != nil {
			if os.IsNotExist(err) {
				log.Printf("NewKeyRing: WARNING: keyring file %q not found, generating new keys", filename)
			} else {
				return nil, fmt.Errorf("NewKeyRing: failed to load %q: %w", filename, err)
			}
		} else {
			loaded = true
		}
	}

	if !loaded {
		if err := kr.Generate(0, 0); err != nil {
			return nil, fmt.Errorf("NewKeyRing: %w", err)
		}
	}

	return kr, nil
}

// Keypairs returns the two slots' role->KeyPair mappings, for callers that
// need to enumerate every key (the signing driver, the dashboard, tests).
func (kr *KeyRing) Keypairs() [2]map[string]*KeyPair {
	return kr.keypairs
}

// Keyspecs returns the current (algorithm, key size) pair per slot.
func (kr *KeyRing) Keyspecs() [2]AlgorithmSpec {
	return kr.keyspecs
}

// Generate ensures every slot has a "ksk" and four "zsk-qN" KeyPairs,
// creating any missing ones using the slot's keyspec. quarter/slot of 0
// means "no special deletion, just fill" (used by the constructor).
//
// Two deletions precede the fill and drive the algorithm-rollover year
// boundary (spec.md §4.2):
//   - (1, 1): delete all keys in slot 1, forcing the incoming algorithm's
//     entire keyset to regenerate at the start of a new year.
//   - (1, 2): delete zsk-q4 from slot 0, forcing the outgoing algorithm's
//     final ZSK to regenerate for the next year.
func (kr *KeyRing) Generate(quarter, slot int) error {
	if kr.keypairs[0] == nil {
		kr.keypairs[0] = map[string]*KeyPair{}
	}
	if kr.keypairs[1] == nil {
		kr.keypairs[1] = map[string]*KeyPair{}
	}

	if quarter == 1 && slot == 1 {
		kr.keypairs[1] = map[string]*KeyPair{}
	}
	if quarter == 1 && slot == 2 {
		delete(kr.keypairs[0], "zsk-q4")
	}

	for i, spec := range kr.keyspecs {
		prefix := fmt.Sprintf("a%d", i+1)

		if _, ok := kr.keypairs[i]["ksk"]; !ok {
			log.Printf("Generate: generating new KSK for slot %d (%s)", i, prefix)
			kp, err := GenerateKeyPair(spec.Algorithm, spec.KeySize, true, prefix+"-ksk")
			if err != nil {
				return fmt.Errorf("Generate: %w", err)
			}
			kr.keypairs[i]["ksk"] = kp
		}

		for _, role := range zskRoleNames {
			if _, ok := kr.keypairs[i][role]; !ok {
				log.Printf("Generate: generating new %s for slot %d (%s)", role, i, prefix)
				kp, err := GenerateKeyPair(spec.Algorithm, spec.KeySize, false, prefix+"-"+role)
				if err != nil {
					return fmt.Errorf("Generate: %w", err)
				}
				kr.keypairs[i][role] = kp
			}
		}
	}

	return nil
}

// Reset clears publish, sign and revoked on every KeyPair in both slots.
// Update always calls this first, so no flag set by a previous
// update(q', s') persists into the next call (spec.md invariant 3).
func (kr *KeyRing) Reset() {
	for _, keys := range kr.keypairs {
		for _, kp := range keys {
			kp.Publish = false
			kp.Sign = false
			kp.Revoked = false
		}
	}
}

// Update recomputes every KeyPair's flags for the given (quarter, slot),
// by resetting all flags and then delegating to the configured rollover
// policy. See rollover.go for the policy implementations.
func (kr *KeyRing) Update(quarter, slot int) error {
	if quarter < 1 || quarter > QuarterCount {
		return fmt.Errorf("Update: quarter %d out of range [1,%d]", quarter, QuarterCount)
	}
	if slot < 1 || slot > SlotsPerQuarter {
		return fmt.Errorf("Update: slot %d out of range [1,%d]", slot, SlotsPerQuarter)
	}

	kr.Reset()
	kr.policy.Apply(quarter, slot, kr.keypairs[0], kr.keypairs[1])
	return nil
}

// Rotate swaps the two slots (and their keyspecs), promoting the
// "incoming" algorithm to "current". Invoked exactly once per year, at
// the end of (quarter=4, slot=SlotsPerQuarter).
func (kr *KeyRing) Rotate() {
	kr.keypairs[0], kr.keypairs[1] = kr.keypairs[1], kr.keypairs[0]
	kr.keyspecs[0], kr.keyspecs[1] = kr.keyspecs[1], kr.keyspecs[0]
}

// PublishSet returns every KeyPair across both slots with Publish set.
func (kr *KeyRing) PublishSet() []*KeyPair {
	var out []*KeyPair
	for _, keys := range kr.keypairs {
		for _, kp := range keys {
			if kp.Publish {
				out = append(out, kp)
			}
		}
	}
	return out
}

// SignSet returns every KeyPair across both slots with Sign set. Per
// spec.md §3, the state machine never produces Sign without Publish; this
// is enforced by the rollover policies, not re-checked here.
func (kr *KeyRing) SignSet() []*KeyPair {
	var out []*KeyPair
	for _, keys := range kr.keypairs {
		for _, kp := range keys {
			if kp.Sign {
				out = append(out, kp)
			}
		}
	}
	return out
}

// persistedKeyRing is the stable on-disk shape of a KeyRing, matching
// spec.md §6's JSON schema.
type persistedKeyRing struct {
	Keyspecs [2]AlgorithmSpec            `json:"keyspecs"`
	Keys     [2]map[string]persistedKeyPair `json:"keys"`
}

// Save writes the keyring to disk in a stable, pretty-printed JSON form.
// An empty filename falls back to the KeyRing's own filename.
func (kr *KeyRing) Save(filename string) error {
	if filename == "" {
		filename = kr.filename
	}
	if filename == "" {
		return fmt.Errorf("Save: no filename given and none configured")
	}

	var pr persistedKeyRing
	pr.Keyspecs = kr.keyspecs
	for i, keys := range kr.keypairs {
		pr.Keys[i] = map[string]persistedKeyPair{}
		for name, kp := range keys {
			p, err := kp.Serialize()
			if err != nil {
				return fmt.Errorf("Save: %w", err)
			}
			pr.Keys[i][name] = p
		}
	}

	data, err := json.MarshalIndent(pr, "", "    ")
	if err != nil {
		return fmt.Errorf("Save: failed to marshal keyring: %w", err)
	}

	// write-to-temp + rename, per spec.md §5: the source repo performs a
	// direct overwrite; this design tightens that so a crash mid-write
	// never leaves a truncated keyring file on disk.
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("Save: failed to write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("Save: failed to rename %q to %q: %w", tmp, filename, err)
	}

	log.Printf("Save: wrote keyring to %s", filename)
	return nil
}

// Load is the inverse of Save. A missing file surfaces as an os.IsNotExist
// error, which NewKeyRing treats as "generate fresh".
func (kr *KeyRing) Load(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	var pr persistedKeyRing
	if err := json.Unmarshal(data, &pr); err != nil {
		return fmt.Errorf("Load: malformed keyring JSON in %q: %w", filename, err)
	}

	var keypairs [2]map[string]*KeyPair
	for i, roleset := range pr.Keys {
		keypairs[i] = map[string]*KeyPair{}
		for name, p := range roleset {
			kp, err := DeserializeKeyPair(p)
			if err != nil {
				return fmt.Errorf("Load: %q slot %d: %w", name, i, err)
			}
			keypairs[i][name] = kp
		}
	}

	kr.keyspecs = pr.Keyspecs
	kr.keypairs = keypairs
	log.Printf("Load: loaded keyring from %s", filename)
	return nil
}
