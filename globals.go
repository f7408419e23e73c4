/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */

package rollercoaster

import (
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New()
}

// GlobalStuff holds process-wide runtime flags set from the CLI, mirroring
// how the teacher threads CLI-derived state into the rest of the program
// without a context object.
type GlobalStuff struct {
	Zonename string
	CfgFile  string
	Debug    bool
	Verbose  bool
}

var Globals = GlobalStuff{}
