/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

const (
	// QuarterCount is the number of quarters in a rollover year.
	QuarterCount = 4
	// SlotsPerQuarter is the number of slots per quarter; slots are 1-indexed.
	SlotsPerQuarter = 9

	// SlotGridSize is the total number of slots in a year, used by the
	// wall-clock mapping in Schedule.
	SlotGridSize = QuarterCount * SlotsPerQuarter
)

// Rollover policy names, as accepted by the "mode" config key.
const (
	PolicyDoubleSigner = "double"
	PolicySingleSigner = "single"
	PolicyHybridSigner = "hybrid"
)

const (
	DefaultCfgFile      = "/etc/rollercoaster/rollercoaster.toml"
	DefaultKeyringFile  = "/var/lib/rollercoaster/keyring.json"
	DefaultSlotDelta    = 30 // seconds
	DefaultDnskeyTTL    = 60
	DefaultSigLifetime  = 3600
	DefaultDSDigestType = "SHA256"
)
