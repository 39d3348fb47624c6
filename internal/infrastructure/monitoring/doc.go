/*
Package monitoring provides Prometheus metrics for the shell daemon.

# Overview

Metrics cover window lifecycle (toggles, managed windows, pending delayed
closes, superseded closes), script runs by outcome, and bus calls by method.
The collector uses its own registry so tests can create as many instances as
they like.

# Usage

	metrics := monitoring.NewMetrics()
	metrics.RecordToggle("launcher", true)
	metrics.RecordBusCall("RunJs")

A nil *Metrics is valid and records nothing, so callers never need to guard
the disabled case.

# Metrics Endpoint

	mux.Handle("/metrics", metrics.Handler())
*/
package monitoring
