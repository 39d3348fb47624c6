//go:build gtk

// Package gtk renders shell windows with GTK3. The GTK main loop runs on a
// locked OS thread; every toolkit call from other goroutines is marshalled
// through glib.IdleAdd.
package gtk

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/wrenshell/wren/internal/backend"
)

// Backend drives a GTK3 main loop.
type Backend struct {
	mu     sync.Mutex
	closed bool
}

// New initializes GTK and starts its main loop on a dedicated OS thread.
func New() (*Backend, error) {
	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		gtk.Init(nil)
		close(ready)
		gtk.Main()
	}()
	<-ready
	return &Backend{}, nil
}

// dispatch runs fn on the GTK main loop and waits for it.
func (b *Backend) dispatch(fn func() error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("gtk backend closed")
	}
	b.mu.Unlock()

	errCh := make(chan error, 1)
	if _, err := glib.IdleAdd(func() bool {
		errCh <- fn()
		return false
	}); err != nil {
		return fmt.Errorf("failed to schedule on gtk loop: %w", err)
	}
	return <-errCh
}

// CreateWindow creates a top-level window. Visibility changes are mirrored
// into the handle so Visible never has to cross into the GTK thread.
func (b *Backend) CreateWindow(decl backend.WindowDecl) (backend.Handle, error) {
	w := &Window{backend: b}
	err := b.dispatch(func() error {
		win, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
		if err != nil {
			return fmt.Errorf("failed to create window %q: %w", decl.Name, err)
		}
		if decl.Title != "" {
			win.SetTitle(decl.Title)
		}
		win.Connect("notify::visible", func() {
			w.setVisible(win.IsVisible())
		})
		if decl.Visible {
			win.ShowAll()
		}
		w.win = win
		w.visible = decl.Visible
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// LoadStyle applies a CSS file to the default screen.
func (b *Backend) LoadStyle(path string) error {
	return b.dispatch(func() error {
		provider, err := gtk.CssProviderNew()
		if err != nil {
			return fmt.Errorf("failed to create css provider: %w", err)
		}
		if err := provider.LoadFromPath(path); err != nil {
			return fmt.Errorf("failed to load style %q: %w", path, err)
		}
		screen, err := gdk.ScreenGetDefault()
		if err != nil {
			return fmt.Errorf("no default screen: %w", err)
		}
		gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_USER)
		return nil
	})
}

// AddIconPath appends a directory to the default icon theme's search path.
func (b *Backend) AddIconPath(path string) error {
	return b.dispatch(func() error {
		theme, err := gtk.IconThemeGetDefault()
		if err != nil {
			return fmt.Errorf("no default icon theme: %w", err)
		}
		theme.AppendSearchPath(path)
		return nil
	})
}

// OpenInspector enables the GTK inspector keybinding and opens it.
func (b *Backend) OpenInspector() error {
	return b.dispatch(func() error {
		settings, err := gtk.SettingsGetDefault()
		if err != nil {
			return fmt.Errorf("no gtk settings: %w", err)
		}
		if err := settings.SetProperty("gtk-enable-inspector-keybinding", true); err != nil {
			return fmt.Errorf("failed to enable inspector: %w", err)
		}
		return nil
	})
}

// Close stops the GTK main loop. Windows are expected to be destroyed first.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	glib.IdleAdd(func() bool {
		gtk.MainQuit()
		return false
	})
	return nil
}

// Window wraps a gtk.Window behind the backend handle contract.
type Window struct {
	backend *Backend
	win     *gtk.Window

	mu        sync.Mutex
	visible   bool
	destroyed bool
	observers []func(bool)
}

func (w *Window) Show() {
	w.backend.dispatch(func() error {
		w.win.ShowAll()
		return nil
	})
}

func (w *Window) Hide() {
	w.backend.dispatch(func() error {
		w.win.Hide()
		return nil
	})
}

func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Window) Destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.observers = nil
	w.mu.Unlock()

	w.backend.dispatch(func() error {
		w.win.Destroy()
		return nil
	})
}

// OnVisibilityChanged registers a visibility observer. Observers run on the
// GTK thread; callers marshal back onto their own loop.
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
	observers := append([]func(bool)(nil), w.observers...)
	w.mu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}
