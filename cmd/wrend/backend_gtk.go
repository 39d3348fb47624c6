//go:build gtk

package main

import (
	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/backend/gtk"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

func newBackend(log *logging.Logger) (backend.Backend, error) {
	log.Info("using gtk backend")
	return gtk.New()
}
