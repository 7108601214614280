// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree, so the binary never runs
// with partial or malformed configuration.  The rules in use today are
// `required`/`hostname_port` on the listen address and `url` on the
// upstream; threshold sanity checks can be registered here as the
// configuration surface grows.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
