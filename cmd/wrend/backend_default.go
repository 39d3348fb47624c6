//go:build !gtk

package main

import (
	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/backend/headless"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// newBackend returns the headless backend. Build with -tags gtk for a
// rendering shell.
func newBackend(log *logging.Logger) (backend.Backend, error) {
	log.Info("using headless backend")
	return headless.New(), nil
}
