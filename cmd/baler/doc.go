// Package main implements the baler command line interface.
//
// The cobra command tree maps terminal invocations onto the internal
// packages: "run" executes a full pipeline pass, "status" reports host
// readiness and catalog counts, "catalog" groups maintenance operations
// like list, retry, and clear, and "config" scaffolds or inspects the TOML
// file. A shared commandContext loads configuration once per invocation
// and lends out catalog handles so subcommands never duplicate that
// plumbing.
//
// Handlers here parse flags, render tables, and map errors to exit codes;
// anything that touches items, the remote store, or an encoder lives in an
// internal package where it can be tested without a terminal.
package main
