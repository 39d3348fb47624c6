// Package main is the entry point for the wren shell daemon.
//
// The daemon owns the desktop shell's windows and exposes a control
// interface on the session bus. Clients (wrenctl, keybinding daemons,
// scripts) toggle windows and run scripts inside the shell's JavaScript
// engine without restarting it.
//
// Architecture:
//
//	wrenctl / bus clients → session bus → bridge → cooperative loop
//	                                               → registry, scheduler, engine
//	                                               → rendering backend
//
// Configuration:
//   - Environment variables (WREN_*)
//   - CLI flags (override env vars)
//   - A YAML descriptor in the config directory
//
// Usage:
//
//	# Default config at $XDG_CONFIG_HOME/wren/config.yaml
//	./wrend
//
//	# Development mode (colored logs, debug level)
//	./wrend -dev -config ./example
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
