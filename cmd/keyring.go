/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/internetstiftelsen/rollercoaster"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Inspect or manage the on-disk keyring",
}

var keyringInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a fresh keyring and write it to the configured path",
	Run: func(cmd *cobra.Command, args []string) {
		specs, err := cfg.AlgorithmSpecs()
		if err != nil {
			log.Fatalf("keyring init: %v", err)
		}
		policy, err := rollercoaster.PolicyByName(cfg.Mode)
		if err != nil {
			log.Fatalf("keyring init: %v", err)
		}

		kr, err := rollercoaster.NewKeyRing(specs, "", policy)
		if err != nil {
			log.Fatalf("keyring init: %v", err)
		}
		if err := kr.Generate(0, 0); err != nil {
			log.Fatalf("keyring init: %v", err)
		}
		if err := kr.Save(cfg.Keyring); err != nil {
			log.Fatalf("keyring init: %v", err)
		}
		fmt.Printf("Wrote new keyring to %s\n", cfg.Keyring)
	},
}

var keyringRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Force-rotate the current and incoming algorithm slots",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()
		kr := driver.KeyRing()
		kr.Rotate()
		if err := kr.Save(cfg.Keyring); err != nil {
			log.Fatalf("keyring rotate: %v", err)
		}
		fmt.Println("Rotated algorithm slots")
	},
}

var keyringInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the current (quarter, slot) and each key's flags",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()
		kr := driver.KeyRing()

		quarter, slot := driver.Config().Schedule.Current(timeNow())
		fmt.Printf("quarter=%d slot=%d\n", quarter, slot)

		for i, keys := range kr.Keypairs() {
			for name, kp := range keys {
				fmt.Printf("slot=%d %-12s alg=%d ksk=%-5v publish=%-5v sign=%-5v revoked=%-5v keytag=%d\n",
					i, name, kp.Algorithm, kp.KSK, kp.Publish, kp.Sign, kp.Revoked, kp.KeyTag())
			}
		}
	},
}

func init() {
	keyringCmd.AddCommand(keyringInitCmd, keyringRotateCmd, keyringInspectCmd)
}
