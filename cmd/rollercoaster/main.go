/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package main

import (
	"github.com/internetstiftelsen/rollercoaster/cmd"
)

func main() {
	cmd.Execute()
}
