// Package envconfig defines the environment and credential-field descriptors
// used across envswitch, their JSON codec, and the layered YAML loading of
// environment definition files.
//
// Descriptors are plain data: validator callbacks are deliberately kept out of
// this package (see internal/validate) so that every descriptor survives a
// JSON round-trip unchanged.
package envconfig
