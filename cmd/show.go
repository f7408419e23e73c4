/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/internetstiftelsen/rollercoaster"
)

var showFormat string
var showOut string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the key-rollover dashboard for a full year",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()
		kr := driver.KeyRing()

		rows := rollercoaster.BuildDashboard(kr)

		var w *os.File
		if showOut == "" || showOut == "-" {
			w = os.Stdout
		} else {
			f, err := os.Create(showOut)
			if err != nil {
				log.Fatalf("show: %v", err)
			}
			defer f.Close()
			w = f
		}

		switch showFormat {
		case "html":
			if err := rollercoaster.RenderHTML(w, rows, 60); err != nil {
				log.Fatalf("show: %v", err)
			}
		default:
			if err := rollercoaster.RenderText(w, rows); err != nil {
				log.Fatalf("show: %v", err)
			}
		}
	},
}

var showKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the current keyring's keys in a table",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()
		kr := driver.KeyRing()

		out := []string{"Slot | Name | Algorithm | KSK | Publish | Sign | Revoked | KeyTag"}
		for i, keys := range kr.Keypairs() {
			for _, kp := range keys {
				out = append(out, fmt.Sprintf("%d | %s | %d | %v | %v | %v | %v | %d",
					i, kp.Name, kp.Algorithm, kp.KSK, kp.Publish, kp.Sign, kp.Revoked, kp.KeyTag()))
			}
		}
		fmt.Println(columnize.SimpleFormat(out))
	},
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "dashboard format: text|html")
	showCmd.Flags().StringVar(&showOut, "out", "-", "output file, - for stdout")
	showCmd.AddCommand(showKeysCmd)
}
