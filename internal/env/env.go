// Package env holds process-wide globals populated once at startup,
// following the teacher's convention of a single package-level config
// handle other packages read from.
package env

import "github.com/bad-antics/glowbarn/internal/config"

var Cfg *config.Config
