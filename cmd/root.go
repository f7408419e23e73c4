/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/internetstiftelsen/rollercoaster"
)

var rootCmd = &cobra.Command{
	Use:   "rollercoaster",
	Short: "rollercoaster runs a DNSSEC key-rollover signer",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", rollercoaster.DefaultCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd, tickCmd, showCmd, keyringCmd)
}

// initConfig reads in the config file, mirroring tdns-cli/cmd/root.go's
// initConfig.
func initConfig() {
	rollercoaster.Globals.Debug = debug
	rollercoaster.Globals.Verbose = verbose

	file := cfgFile
	if file == "" {
		file = rollercoaster.DefaultCfgFile
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", file)
	}

	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	cfg = rollercoaster.LoadConfig(file)
	rollercoaster.Globals.CfgFile = file
}
