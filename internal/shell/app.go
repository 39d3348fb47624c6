// Package shell wires the window registry, the delayed-close scheduler, the
// event bus, and the script engine behind one explicit application context.
// Capabilities are reached through the App, never through package globals.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/domain/descriptor"
	"github.com/wrenshell/wren/internal/domain/events"
	"github.com/wrenshell/wren/internal/domain/registry"
	"github.com/wrenshell/wren/internal/domain/scheduler"
	"github.com/wrenshell/wren/internal/domain/script"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
	"github.com/wrenshell/wren/internal/infrastructure/monitoring"
)

// ErrDuplicateWindow is returned by Bootstrap when the configuration
// declares two windows with the same name. Duplicate names are a fatal
// configuration error: the caller is expected to shut the process down.
var ErrDuplicateWindow = errors.New("duplicate window name in configuration")

// Options configures a new App.
type Options struct {
	Backend backend.Backend
	Logger  *logging.Logger
	Metrics *monitoring.Metrics // optional
	Stdout  io.Writer           // local print lane for config hooks; defaults to os.Stdout
}

// App is the application context: it owns the cooperative loop and every
// piece of loop-confined state hanging off it.
type App struct {
	loop    *Loop
	bus     *events.Bus
	reg     *registry.Manager
	sched   *scheduler.Scheduler
	engine  *script.Engine
	backend backend.Backend
	log     *logging.Logger
	metrics *monitoring.Metrics
	stdout  io.Writer

	done         chan struct{}
	quitOnce     sync.Once
	teardownOnce sync.Once
}

// New creates an App around the given rendering backend.
func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	loop := NewLoop()
	bus := events.NewBus()
	reg := registry.NewManager(bus, loop, log.Named("registry"))
	sched := scheduler.New(reg, loop, log.Named("scheduler")).WithMetrics(opts.Metrics)

	return &App{
		loop:    loop,
		bus:     bus,
		reg:     reg,
		sched:   sched,
		engine:  script.New(log.Named("script")),
		backend: opts.Backend,
		log:     log,
		metrics: opts.Metrics,
		stdout:  stdout,
		done:    make(chan struct{}),
	}
}

// Engine returns the script engine. The engine is loop-confined; only
// compile on other goroutines.
func (a *App) Engine() *script.Engine { return a.engine }

// Bus returns the in-process event bus.
func (a *App) Bus() *events.Bus { return a.bus }

// Run drives the cooperative loop on the calling goroutine until Quit.
func (a *App) Run() { a.loop.Run() }

// Done is closed once teardown has finished.
func (a *App) Done() <-chan struct{} { return a.done }

// Post schedules work onto the cooperative loop.
func (a *App) Post(fn func()) { a.loop.Post(fn) }

// LoadConfig loads the descriptor at entryPath and applies it. A missing
// entry file is fatal and returned as-is; any other load error is logged and
// the shell continues with an empty descriptor, still emitting config-loaded
// exactly once.
func (a *App) LoadConfig(entryPath string) error {
	desc, err := descriptor.Load(entryPath, a.log)
	switch {
	case err == nil:
	case errors.Is(err, descriptor.ErrNotFound):
		a.log.Error("config entry missing", zap.String("path", entryPath))
		return err
	default:
		a.log.Warn("config load failed, continuing with no windows", zap.Error(err))
		desc = &descriptor.Descriptor{}
	}
	return a.Bootstrap(desc)
}

// Bootstrap applies a descriptor: style and icon paths, the close-delay
// table, the script hooks, and the window list, then emits config-loaded.
// Duplicate window names abort with ErrDuplicateWindow; other per-window
// failures are logged and skipped.
func (a *App) Bootstrap(desc *descriptor.Descriptor) error {
	if desc.Style != "" {
		if err := a.backend.LoadStyle(desc.Style); err != nil {
			a.log.Warn("failed to load style", zap.String("path", desc.Style), zap.Error(err))
		}
	}
	if desc.Icons != "" {
		if err := a.backend.AddIconPath(desc.Icons); err != nil {
			a.log.Warn("failed to add icon path", zap.String("path", desc.Icons), zap.Error(err))
		}
	}

	a.sched.SetDelays(desc.Delays())
	a.registerHooks(desc)

	for _, decl := range desc.Windows {
		h, err := a.backend.CreateWindow(decl)
		if err != nil {
			a.log.Error("failed to create window", zap.String("window", decl.Name), zap.Error(err))
			continue
		}
		switch code := a.reg.Add(decl.Name, h); code {
		case registry.Ok:
		case registry.DuplicateWindow:
			h.Destroy()
			return fmt.Errorf("%w: %q", ErrDuplicateWindow, decl.Name)
		default:
			// InvalidWindow: rejected, non-fatal.
			h.Destroy()
		}
	}

	a.metrics.SetWindows(a.reg.Len())
	a.bus.EmitConfigLoaded()
	return nil
}

// registerHooks compiles the descriptor's script hooks and subscribes them
// to the event bus. A hook that fails to compile is dropped with a warning.
func (a *App) registerHooks(desc *descriptor.Descriptor) {
	hookPrint := func(text string) {
		fmt.Fprintln(a.stdout, text)
	}

	if desc.OnWindowToggled != "" {
		prog, err := a.engine.Prepare(desc.OnWindowToggled, "name", "visible")
		if err != nil {
			a.log.Warn("invalid on_window_toggled hook", zap.Error(err))
		} else {
			a.bus.OnWindowToggled(func(name string, visible bool) {
				if _, err := a.engine.Execute(prog, hookPrint, name, visible); err != nil && !errors.Is(err, script.ErrPending) {
					a.log.Warn("on_window_toggled hook failed", zap.Error(err))
				}
			})
		}
	}

	if desc.OnConfigParsed != "" {
		prog, err := a.engine.Prepare(desc.OnConfigParsed)
		if err != nil {
			a.log.Warn("invalid on_config_parsed hook", zap.Error(err))
		} else {
			a.bus.OnConfigLoaded(func() {
				if _, err := a.engine.Execute(prog, hookPrint); err != nil && !errors.Is(err, script.ErrPending) {
					a.log.Warn("on_config_parsed hook failed", zap.Error(err))
				}
			})
		}
	}
}

// Toggle flips the named window and reports its new logical visibility. Safe
// to call from any goroutine except the loop itself.
func (a *App) Toggle(name string) (bool, registry.Code) {
	var visible bool
	code := registry.UnknownWindow
	a.loop.Call(func() {
		visible, code = a.toggle(name)
	})
	return visible, code
}

// Open shows the named window, cancelling any pending delayed close. Safe to
// call from any goroutine except the loop itself.
func (a *App) Open(name string) registry.Code {
	code := registry.UnknownWindow
	a.loop.Call(func() {
		code = a.open(name)
	})
	return code
}

// Close requests the named window to hide, honouring its configured delay.
// Safe to call from any goroutine except the loop itself.
func (a *App) Close(name string) registry.Code {
	code := registry.UnknownWindow
	a.loop.Call(func() {
		code = a.sched.Close(name)
	})
	return code
}

// Windows lists the registered window names, sorted.
func (a *App) Windows() []string {
	var names []string
	a.loop.Call(func() {
		names = a.reg.Names()
	})
	sort.Strings(names)
	return names
}

// OpenInspector enables the backend's interactive debugging overlay.
func (a *App) OpenInspector() error {
	return a.backend.OpenInspector()
}

// Quit tears the shell down: pending timers cancelled, handles destroyed,
// backend closed, loop stopped. Idempotent; safe from any goroutine,
// including loop tasks.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		if a.loop.Stopped() {
			a.teardown()
			return
		}
		a.loop.Post(func() {
			a.teardown()
			a.loop.Stop()
		})
	})
}

// Abort tears down without going through the loop. Only valid before Run
// has started, after a fatal bootstrap error. Handles created so far are
// destroyed deterministically.
func (a *App) Abort() {
	a.quitOnce.Do(func() {})
	a.loop.Stop()
	a.teardown()
}

// toggle is loop-confined.
func (a *App) toggle(name string) (bool, registry.Code) {
	visible, code := a.reg.Visible(name)
	if code != registry.Ok {
		return false, code
	}
	if visible {
		return false, a.sched.Close(name)
	}
	return true, a.open(name)
}

// open is loop-confined.
func (a *App) open(name string) registry.Code {
	a.sched.CancelPending(name)
	return a.reg.Open(name)
}

// teardown is loop-confined (or runs after the loop has stopped).
func (a *App) teardown() {
	a.teardownOnce.Do(func() {
		a.log.Info("shutting down shell")
		a.sched.CancelAll()
		a.reg.DestroyAll()
		a.metrics.SetWindows(0)
		if err := a.backend.Close(); err != nil {
			a.log.Warn("backend close failed", zap.Error(err))
		}
		a.log.Sync()
		close(a.done)
	})
}
