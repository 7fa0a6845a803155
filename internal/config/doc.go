// Package config defines Baler's TOML configuration surface.
//
// Load resolves the file to use (explicit flag, XDG default, or a
// baler.toml in the working directory), decodes it over the built-in
// defaults, expands ~ in every path field, and validates the result. The
// BALER_NTFY_TOPIC environment variable fills the notification topic when
// the file leaves it empty, which keeps credentials out of dotfiles.
//
// Code elsewhere in the repository never reads config files or environment
// variables directly; it receives a *Config whose paths are absolute and
// whose enumerated fields have already been checked.
package config
