/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/internetstiftelsen/rollercoaster"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the signing loop forever, one tick per slot",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()

		done := make(chan struct{})
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sig
			close(done)
		}()

		if err := driver.Run(done); err != nil {
			log.Fatalf("run: %v", err)
		}
	},
}

// buildDriver constructs the KeyRing and Driver shared by the run, tick,
// show and keyring subcommands, from the already-loaded global cfg.
func buildDriver() *rollercoaster.Driver {
	specs, err := cfg.AlgorithmSpecs()
	if err != nil {
		log.Fatalf("buildDriver: %v", err)
	}

	policy, err := rollercoaster.PolicyByName(cfg.Mode)
	if err != nil {
		log.Fatalf("buildDriver: %v", err)
	}

	kr, err := rollercoaster.NewKeyRing(specs, cfg.Keyring, policy)
	if err != nil {
		log.Fatalf("buildDriver: failed to build keyring: %v", err)
	}

	dcfg := rollercoaster.DriverConfig{
		Schedule:         rollercoaster.Schedule{Delta: time.Duration(cfg.Delta) * time.Second},
		UnsignedZoneFile: cfg.Zone.Unsigned,
		SignedZoneFile:   cfg.Zone.Signed,
		Origin:           cfg.Zone.Origin,
		Hints:            cfg.Hints,
		DnskeyTTL:        uint32(cfg.DnskeyTTL),
		SigLifetime:      uint32(cfg.Lifetime),
		Anchors:          cfg.Anchors,
		Dashboard:        cfg.Dashboard,
		Reload:           cfg.Reload,
	}

	return rollercoaster.NewDriver(dcfg, kr)
}
