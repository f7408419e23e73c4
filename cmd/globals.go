/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"github.com/internetstiftelsen/rollercoaster"
)

var cfgFile string
var debug, verbose bool

var cfg *rollercoaster.Config
