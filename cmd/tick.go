/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
)

var tickQuarter, tickSlot int

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run exactly one signing tick and exit",
	Run: func(cmd *cobra.Command, args []string) {
		driver := buildDriver()

		quarter, slot := tickQuarter, tickSlot
		if quarter == 0 || slot == 0 {
			sched := driver.Config().Schedule
			curQuarter, curSlot := sched.Current(timeNow())
			if quarter == 0 {
				quarter = curQuarter
			}
			if slot == 0 {
				slot = curSlot
			}
		}

		if err := driver.Tick(quarter, slot); err != nil {
			log.Fatalf("tick: %v", err)
		}
	},
}

func init() {
	tickCmd.Flags().IntVarP(&tickQuarter, "quarter", "q", 0, "quarter to run (1-4, default: current)")
	tickCmd.Flags().IntVarP(&tickSlot, "slot", "s", 0, "slot to run (1-9, default: current)")
}

// timeNow is a thin indirection so tests in this package could override
// it; production always wants wall-clock time.
var timeNow = time.Now
