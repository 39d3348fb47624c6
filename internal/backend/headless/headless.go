// Package headless implements the rendering backend as plain in-memory
// state. It backs bus-only deployments and the test suite.
package headless

import (
	"fmt"
	"sync"

	"github.com/wrenshell/wren/internal/backend"
)

// Backend is an in-memory rendering backend.
type Backend struct {
	mu        sync.Mutex
	windows   map[string]*Window
	styles    []string
	iconPaths []string
	inspector bool
	closed    bool
}

// New creates a headless backend.
func New() *Backend {
	return &Backend{windows: make(map[string]*Window)}
}

// CreateWindow creates an in-memory window handle.
func (b *Backend) CreateWindow(decl backend.WindowDecl) (backend.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("backend closed")
	}
	w := &Window{name: decl.Name, visible: decl.Visible}
	b.windows[decl.Name] = w
	return w, nil
}

// LoadStyle records the style path.
func (b *Backend) LoadStyle(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.styles = append(b.styles, path)
	return nil
}

// AddIconPath records the icon search path.
func (b *Backend) AddIconPath(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.iconPaths = append(b.iconPaths, path)
	return nil
}

// OpenInspector marks the inspector as opened.
func (b *Backend) OpenInspector() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inspector = true
	return nil
}

// Close marks the backend as closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Window returns the named window, or nil if it was never created.
func (b *Backend) Window(name string) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.windows[name]
}

// InspectorOpened reports whether OpenInspector was called.
func (b *Backend) InspectorOpened() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inspector
}

// Styles returns the recorded style paths.
func (b *Backend) Styles() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.styles...)
}

// IconPaths returns the recorded icon search paths.
func (b *Backend) IconPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.iconPaths...)
}

// Window is an in-memory window handle.
type Window struct {
	mu        sync.Mutex
	name      string
	visible   bool
	destroyed bool
	observers []func(bool)
}

// Show makes the window visible and notifies observers.
func (w *Window) Show() { w.setVisible(true) }

// Hide makes the window invisible and notifies observers.
func (w *Window) Hide() { w.setVisible(false) }

// Visible reports the current visibility.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Destroy marks the handle as destroyed.
func (w *Window) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	w.observers = nil
}

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// OnVisibilityChanged registers a visibility observer. Observers run
// synchronously on the goroutine that changed the visibility.
func (w *Window) OnVisibilityChanged(fn func(visible bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

func (w *Window) setVisible(v bool) {
	w.mu.Lock()
	if w.destroyed || w.visible == v {
		w.mu.Unlock()
		return
	}
	w.visible = v
	observers := append(([]func(bool))(nil), w.observers...)
	w.mu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}
