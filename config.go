/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package rollercoaster

import (
	"fmt"
	"log"
	"os"

	"github.com/miekg/dns"
	"github.com/spf13/viper"
)

// Config is the top-level shape of rollercoaster.toml, per spec.md §6.
type Config struct {
	Delta      int              `validate:"required,gt=0"`
	Keyring    string           `validate:"required"`
	Zone       ZoneConf         `validate:"required"`
	Mode       string           `validate:"required,oneof=double single hybrid"`
	Algorithms [2]AlgorithmConf `validate:"required,dive"`

	DnskeyTTL int `mapstructure:"dnskey_ttl"`
	Lifetime  int

	Anchors   AnchorsConf
	Dashboard string
	Reload    string
	Hints     string
}

// ZoneConf names the unsigned source zone and the signed destination
// zone, plus the zone's origin (apex name).
type ZoneConf struct {
	Origin   string `validate:"required"`
	Unsigned string `validate:"required,file"`
	Signed   string `validate:"required"`
}

// AlgorithmConf is one of the two algorithm slots a KeyRing juggles,
// the config-file counterpart of AlgorithmSpec.
type AlgorithmConf struct {
	Algorithm string `validate:"required"`
	KeySize   int    `mapstructure:"key_size"`
}

// AnchorsConf controls the optional DS/trust-anchor emission supplement
// (see anchors.go).
type AnchorsConf struct {
	File   string
	Format string `validate:"omitempty,oneof=ds bind"`
}

// ParseAlgorithm resolves a config algorithm name to the IANA DNSSEC
// algorithm number miekg/dns uses internally.
func ParseAlgorithm(name string) (uint8, error) {
	for num, str := range dns.AlgorithmToString {
		if str == name {
			return num, nil
		}
	}
	return 0, fmt.Errorf("ParseAlgorithm: unknown algorithm %q", name)
}

// AlgorithmSpecs converts the two configured algorithm slots into the
// AlgorithmSpec pairs KeyRing expects.
func (c *Config) AlgorithmSpecs() ([2]AlgorithmSpec, error) {
	var specs [2]AlgorithmSpec
	for i, a := range c.Algorithms {
		alg, err := ParseAlgorithm(a.Algorithm)
		if err != nil {
			return specs, fmt.Errorf("AlgorithmSpecs: slot %d: %w", i, err)
		}
		specs[i] = AlgorithmSpec{Algorithm: alg, KeySize: a.KeySize}
	}
	return specs, nil
}

// ValidateConfig unmarshals v (or the global viper instance, if v is nil)
// into a Config and runs struct-tag validation, mirroring the teacher's
// ValidateConfig/LoadMusicConfig split between "parse and check" and
// "parse and commit".
func ValidateConfig(v *viper.Viper, cfgfile string) (*Config, error) {
	var cfg Config

	unmarshal := viper.Unmarshal
	if v != nil {
		unmarshal = v.Unmarshal
	}
	if err := unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ValidateConfig: unable to unmarshal %q: %w", cfgfile, err)
	}

	if err := Validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("ValidateConfig: %q is missing required attributes: %w", cfgfile, err)
	}

	if _, err := cfg.AlgorithmSpecs(); err != nil {
		return nil, fmt.Errorf("ValidateConfig: %w", err)
	}

	if cfg.DnskeyTTL == 0 {
		cfg.DnskeyTTL = DefaultDnskeyTTL
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultSigLifetime
	}

	return &cfg, nil
}

// LoadConfig reads cfgfile from disk into viper and validates it,
// terminating the process on error the way LoadMusicConfig does. Every
// subcommand reaches it through cmd/root.go's initConfig; ValidateConfig
// is the variant that returns errors instead of exiting.
func LoadConfig(cfgfile string) *Config {
	if Globals.Debug {
		log.Printf("LoadConfig: loading %q", cfgfile)
	}

	if _, err := os.Stat(cfgfile); err != nil {
		log.Fatalf("LoadConfig: config file %q: %v", cfgfile, err)
	}

	viper.SetConfigFile(cfgfile)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("LoadConfig: could not read %q: %v", cfgfile, err)
	}

	cfg, err := ValidateConfig(nil, cfgfile)
	if err != nil {
		log.Fatalf("LoadConfig: %v", err)
	}

	return cfg
}
