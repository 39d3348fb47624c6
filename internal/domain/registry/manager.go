package registry

import (
	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/domain/events"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// Code is the tagged result of a registry operation.
type Code int

const (
	Ok Code = iota
	UnknownWindow
	InvalidWindow
	DuplicateWindow
)

// String returns the code name for logs and diagnostics.
func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case UnknownWindow:
		return "unknown window"
	case InvalidWindow:
		return "invalid window"
	case DuplicateWindow:
		return "duplicate window"
	default:
		return "unknown code"
	}
}

// Poster schedules work onto the cooperative shell loop.
type Poster interface {
	Post(fn func())
}

type window struct {
	name    string
	handle  backend.Handle
	visible bool
}

// Manager orchestrates window lifecycle.
type Manager struct {
	windows map[string]*window
	bus     *events.Bus
	post    Poster
	log     *logging.Logger
}

// NewManager creates a window registry publishing on the given event bus.
// Backend visibility notifications are marshalled through post before they
// touch registry state.
func NewManager(bus *events.Bus, post Poster, log *logging.Logger) *Manager {
	return &Manager{
		windows: make(map[string]*window),
		bus:     bus,
		post:    post,
		log:     log,
	}
}

// Add registers a window handle under name. It subscribes to the handle's
// visibility notifications and republishes them as window-toggled events.
func (m *Manager) Add(name string, h backend.Handle) Code {
	if name == "" {
		m.log.Warn("rejecting window with empty name")
		return InvalidWindow
	}
	if _, exists := m.windows[name]; exists {
		m.log.Error("duplicate window name", zap.String("window", name))
		return DuplicateWindow
	}

	m.windows[name] = &window{name: name, handle: h, visible: h.Visible()}

	// The backend notifies from its own thread; hop onto the loop before
	// touching registry state.
	h.OnVisibilityChanged(func(visible bool) {
		m.post.Post(func() {
			m.sync(name, visible)
		})
	})
	return Ok
}

// Remove destroys the backend handle and deletes the entry.
func (m *Manager) Remove(name string) Code {
	w, ok := m.windows[name]
	if !ok {
		m.log.Warn("remove: no such window", zap.String("window", name))
		return UnknownWindow
	}
	w.handle.Destroy()
	delete(m.windows, name)
	return Ok
}

// Get returns the backend handle for name. Callers must treat a non-Ok code
// as "no such window", not a crash.
func (m *Manager) Get(name string) (backend.Handle, Code) {
	w, ok := m.windows[name]
	if !ok {
		m.log.Warn("get: no such window", zap.String("window", name))
		return nil, UnknownWindow
	}
	return w.handle, Ok
}

// Visible reports the logical visibility of name.
func (m *Manager) Visible(name string) (bool, Code) {
	w, ok := m.windows[name]
	if !ok {
		m.log.Warn("no such window", zap.String("window", name))
		return false, UnknownWindow
	}
	return w.visible, Ok
}

// Open makes the window visible and publishes the transition.
func (m *Manager) Open(name string) Code {
	w, ok := m.windows[name]
	if !ok {
		m.log.Warn("open: no such window", zap.String("window", name))
		return UnknownWindow
	}
	if w.visible {
		return Ok
	}
	w.visible = true
	w.handle.Show()
	m.bus.EmitWindowToggled(name, true)
	return Ok
}

// Hide makes the window invisible immediately and publishes the transition.
func (m *Manager) Hide(name string) Code {
	w, ok := m.windows[name]
	if !ok {
		m.log.Warn("hide: no such window", zap.String("window", name))
		return UnknownWindow
	}
	if !w.visible {
		return Ok
	}
	w.visible = false
	w.handle.Hide()
	m.bus.EmitWindowToggled(name, false)
	return Ok
}

// MarkHidden flips the logical visibility to false and publishes the
// transition without touching the backend. The delayed-close scheduler uses
// it to acknowledge a close before the widget actually hides.
func (m *Manager) MarkHidden(name string) Code {
	w, ok := m.windows[name]
	if !ok {
		return UnknownWindow
	}
	if !w.visible {
		return Ok
	}
	w.visible = false
	m.bus.EmitWindowToggled(name, false)
	return Ok
}

// Names returns the registered window names.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.windows))
	for name := range m.windows {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered windows.
func (m *Manager) Len() int {
	return len(m.windows)
}

// DestroyAll releases every backend handle and empties the registry. Used on
// shutdown.
func (m *Manager) DestroyAll() {
	for name, w := range m.windows {
		w.handle.Destroy()
		delete(m.windows, name)
	}
}

// sync reconciles an externally observed visibility change (e.g. the user
// closed the window through the window manager). It republishes the change
// only when it differs from the logical state, so the acknowledgment event
// emitted at close-schedule time is never duplicated by the backend's
// confirmation.
func (m *Manager) sync(name string, visible bool) {
	w, ok := m.windows[name]
	if !ok || w.visible == visible {
		return
	}
	w.visible = visible
	m.bus.EmitWindowToggled(name, visible)
}
