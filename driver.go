/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/miekg/dns"
)

// Schedule maps wall-clock time onto the (quarter, slot) grid, per
// spec.md §6: slots advance every `delta` seconds and wrap every
// SlotGridSize slots (one rollover year).
type Schedule struct {
	Delta time.Duration
}

// Current returns the (quarter, slot) pair for time t, 1-indexed, per
// spec.md's "n = floor(now/delta) mod 36; q = floor(n/9)+1; s = (n mod 9)+1".
func (s Schedule) Current(t time.Time) (quarter, slot int) {
	secs := s.Delta.Seconds()
	if secs <= 0 {
		secs = DefaultSlotDelta
	}
	n := int(t.Unix()/int64(secs)) % SlotGridSize
	return n/SlotsPerQuarter + 1, n%SlotsPerQuarter + 1
}

// Next blocks until the start of the next slot boundary and returns the
// (quarter, slot) pair for it, mirroring signer.py's get_next_qs.
func (s Schedule) Next() (quarter, slot int) {
	delta := s.Delta
	if delta <= 0 {
		delta = DefaultSlotDelta * time.Second
	}
	now := time.Now()
	boundary := now.Truncate(delta).Add(delta)
	time.Sleep(time.Until(boundary))
	return s.Current(boundary)
}

// DriverConfig bundles the per-tick parameters that come from the loaded
// config (see config.go), keeping Driver itself free of viper.
type DriverConfig struct {
	Schedule Schedule

	UnsignedZoneFile string
	SignedZoneFile   string
	Origin           string
	// Hints is passed through unchanged to LoadZone as the $INCLUDE
	// resolution base (spec.md §6's "hints" config key).
	Hints string

	DnskeyTTL   uint32
	SigLifetime uint32

	// Anchors, if Anchors.File is non-empty, writes the zone's DS records
	// to that file after every successful sign, in the format named by
	// Anchors.Format ("ds" or "bind"; see anchors.go).
	Anchors AnchorsConf
	// Dashboard, if non-empty, is the path an HTML status page is written
	// to after every tick (dashboard.go).
	Dashboard string

	// Reload, if non-empty, is run as a shell command after every signed
	// zone is written, e.g. to tell a name server to reload the zone.
	// A non-zero exit is logged, never fatal (spec.md §4's "hints"/"reload"
	// keys are operational conveniences, not correctness requirements).
	Reload string
}

// Driver runs the signing loop described in spec.md §5: load the unsigned
// zone, regenerate and update the keyring for the current (quarter, slot),
// sign, persist, and — once a year, at (4, SlotsPerQuarter) — rotate.
type Driver struct {
	cfg DriverConfig
	kr  *KeyRing

	// loadZone and newTickID are overridden by tests.
	loadZone  func(path, origin, hints string) (Signer, error)
	newTickID func() string
}

// NewDriver builds a Driver around an already-constructed KeyRing.
func NewDriver(cfg DriverConfig, kr *KeyRing) *Driver {
	return &Driver{
		cfg: cfg,
		kr:  kr,
		loadZone: func(path, origin, hints string) (Signer, error) {
			return LoadZone(path, origin, hints)
		},
		newTickID: func() string { return uuid.New().String() },
	}
}

// KeyRing returns the driver's underlying KeyRing, for callers (cmd/show.go,
// cmd/keyring.go) that need to inspect or act on it directly.
func (d *Driver) KeyRing() *KeyRing {
	return d.kr
}

// Config returns the driver's configuration, for callers (cmd/tick.go)
// that need the schedule without threading DriverConfig through twice.
func (d *Driver) Config() DriverConfig {
	return d.cfg
}

// Tick runs exactly one iteration of the signing loop for the given
// (quarter, slot), without sleeping. Run uses this in a loop; cmd/tick.go
// uses it directly for a single manual tick.
func (d *Driver) Tick(quarter, slot int) error {
	tickID := d.newTickID()
	log.Printf("Tick %s: starting quarter %d slot %d", tickID, quarter, slot)

	if err := d.kr.Generate(quarter, slot); err != nil {
		return fmt.Errorf("Tick %s: %w", tickID, err)
	}
	if err := d.kr.Update(quarter, slot); err != nil {
		return fmt.Errorf("Tick %s: %w", tickID, err)
	}

	for _, keys := range d.kr.Keypairs() {
		for name, kp := range keys {
			switch {
			case kp.Revoked:
				log.Printf("Tick %s: %d %s REVOKED", tickID, kp.Algorithm, name)
			case kp.Sign:
				log.Printf("Tick %s: %d %s SIGNING", tickID, kp.Algorithm, name)
			case kp.Publish:
				log.Printf("Tick %s: %d %s PUBLISHED", tickID, kp.Algorithm, name)
			}
		}
	}

	zone, err := d.loadZone(d.cfg.UnsignedZoneFile, d.cfg.Origin, d.cfg.Hints)
	if err != nil {
		return fmt.Errorf("Tick %s: %w", tickID, err)
	}

	publishSet := d.kr.PublishSet()
	zone.SetDNSKEYs(publishSet, d.cfg.DnskeyTTL)
	if err := zone.Sign(d.kr.SignSet(), d.cfg.SigLifetime); err != nil {
		return fmt.Errorf("Tick %s: failed to sign zone: %w", tickID, err)
	}

	if quarter == QuarterCount && slot == SlotsPerQuarter {
		log.Printf("Tick %s: flip keys", tickID)
		d.kr.Rotate()
	}

	if err := zone.WriteFile(d.cfg.SignedZoneFile); err != nil {
		return fmt.Errorf("Tick %s: failed to write signed zone: %w", tickID, err)
	}
	log.Printf("Tick %s: saved signed zone to %s", tickID, d.cfg.SignedZoneFile)

	if err := d.kr.Save(""); err != nil {
		return fmt.Errorf("Tick %s: failed to save keyring: %w", tickID, err)
	}

	if err := d.writeAnchors(tickID, zone, publishSet); err != nil {
		return fmt.Errorf("Tick %s: %w", tickID, err)
	}
	if err := d.writeDashboard(tickID, quarter, slot); err != nil {
		return fmt.Errorf("Tick %s: %w", tickID, err)
	}

	d.maybeReload(tickID)

	return nil
}

// writeAnchors emits the zone's DS trust anchors, per spec.md §4.4 step 7's
// "persist ... trust anchors (all optional)". A no-op when Anchors.File is
// unset.
func (d *Driver) writeAnchors(tickID string, zone Signer, publishSet []*KeyPair) error {
	if d.cfg.Anchors.File == "" {
		return nil
	}

	ds := zone.DSRecords(publishSet, dns.SHA256)

	f, err := os.Create(d.cfg.Anchors.File)
	if err != nil {
		return fmt.Errorf("writeAnchors: %w", err)
	}
	defer f.Close()

	if d.cfg.Anchors.Format == "bind" {
		err = WriteBINDTrustAnchors(f, ds)
	} else {
		err = WriteDSAnchors(f, ds)
	}
	if err != nil {
		return fmt.Errorf("writeAnchors: %w", err)
	}
	log.Printf("Tick %s: wrote %d trust anchor(s) to %s", tickID, len(ds), d.cfg.Anchors.File)
	return nil
}

// writeDashboard renders the current keyring status to Dashboard as an
// HTML page, refreshed every tick — the "interval" spec.md §4 describes is
// the driver's own tick cadence. A no-op when Dashboard is unset.
func (d *Driver) writeDashboard(tickID string, quarter, slot int) error {
	if d.cfg.Dashboard == "" {
		return nil
	}

	f, err := os.Create(d.cfg.Dashboard)
	if err != nil {
		return fmt.Errorf("writeDashboard: %w", err)
	}
	defer f.Close()

	// BuildDashboard replays Update across the whole year grid, which
	// clobbers the keyring's live flags; restore them for the real
	// (quarter, slot) once it's done (see dashboard.go's BuildDashboard).
	rows := BuildDashboard(d.kr)
	_ = d.kr.Update(quarter, slot)

	refresh := int(d.cfg.Schedule.Delta.Seconds())
	if refresh <= 0 {
		refresh = DefaultSlotDelta
	}
	if err := RenderHTML(f, rows, refresh); err != nil {
		return fmt.Errorf("writeDashboard: %w", err)
	}
	log.Printf("Tick %s: wrote dashboard to %s", tickID, d.cfg.Dashboard)
	return nil
}

// maybeReload runs the configured reload hook, if any. Failures are
// logged, not propagated: a reload hiccup shouldn't stop the next tick
// from signing.
func (d *Driver) maybeReload(tickID string) {
	if d.cfg.Reload == "" {
		return
	}
	cmd := exec.Command("sh", "-c", d.cfg.Reload)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("Tick %s: reload hook failed: %v: %s", tickID, err, out)
	} else {
		log.Printf("Tick %s: reload hook ran", tickID)
	}
}

// Run drives the loop forever, one tick per slot boundary, until done is
// closed. Mirrors signer.py's main() while-True loop with get_next_qs
// sleeping between iterations, wrapped in the teacher's done-channel
// shutdown idiom (music/db_updater.go).
func (d *Driver) Run(done <-chan struct{}) error {
	quarter, slot := d.cfg.Schedule.Current(time.Now())

	for {
		if err := d.Tick(quarter, slot); err != nil {
			return err
		}

		select {
		case <-done:
			log.Printf("Run: received done signal, shutting down")
			return nil
		default:
		}

		quarter, slot = d.cfg.Schedule.Next()
	}
}
