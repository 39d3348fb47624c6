package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/backend/headless"
	"github.com/wrenshell/wren/internal/domain/descriptor"
	"github.com/wrenshell/wren/internal/domain/registry"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestApp() (*App, *headless.Backend, *bytes.Buffer) {
	b := headless.New()
	stdout := &bytes.Buffer{}
	a := New(Options{Backend: b, Logger: logging.NewNop(), Stdout: stdout})
	return a, b, stdout
}

// startApp runs the loop on its own goroutine and tears the app down when the
// test finishes. Subscriptions and Bootstrap must happen before this call.
func startApp(t *testing.T, a *App) {
	t.Helper()
	go a.Run()
	t.Cleanup(func() {
		a.Quit()
		select {
		case <-a.Done():
		case <-time.After(time.Second):
			t.Error("teardown timed out")
		}
	})
}

func TestBootstrapAppliesDescriptor(t *testing.T) {
	a, b, _ := newTestApp()

	err := a.Bootstrap(&descriptor.Descriptor{
		Windows: []backend.WindowDecl{
			{Name: "bar", Title: "Status Bar", Visible: true},
			{Name: "launcher"},
		},
		Style: "./style.css",
		Icons: "./icons",
	})
	require.NoError(t, err)
	startApp(t, a)

	assert.Equal(t, []string{"bar", "launcher"}, a.Windows())
	assert.Equal(t, []string{"./style.css"}, b.Styles())
	assert.Equal(t, []string{"./icons"}, b.IconPaths())
	assert.True(t, b.Window("bar").Visible())
	assert.False(t, b.Window("launcher").Visible())
}

func TestBootstrapZeroWindowsEmitsConfigLoaded(t *testing.T) {
	a, _, _ := newTestApp()

	loaded := 0
	a.Bus().OnConfigLoaded(func() { loaded++ })

	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{}))
	assert.Equal(t, 1, loaded)
}

func TestBootstrapDuplicateWindowIsFatal(t *testing.T) {
	a, b, _ := newTestApp()

	err := a.Bootstrap(&descriptor.Descriptor{
		Windows: []backend.WindowDecl{{Name: "bar"}, {Name: "bar"}},
	})
	require.ErrorIs(t, err, ErrDuplicateWindow)
	assert.True(t, b.Window("bar").Destroyed(), "rejected handle must be destroyed")

	// The fatal path tears down before the loop ever runs.
	a.Abort()
	assert.True(t, b.Closed())
	select {
	case <-a.Done():
	default:
		t.Error("abort must finish teardown")
	}
}

func TestToggleRoundTrip(t *testing.T) {
	a, b, _ := newTestApp()
	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		Windows: []backend.WindowDecl{{Name: "bar"}},
	}))
	startApp(t, a)

	visible, code := a.Toggle("bar")
	assert.Equal(t, registry.Ok, code)
	assert.True(t, visible)
	assert.True(t, b.Window("bar").Visible())

	visible, code = a.Toggle("bar")
	assert.Equal(t, registry.Ok, code)
	assert.False(t, visible)
	assert.False(t, b.Window("bar").Visible())

	_, code = a.Toggle("missing")
	assert.Equal(t, registry.UnknownWindow, code)
}

func TestToggleDelayedCloseAndReopen(t *testing.T) {
	a, b, _ := newTestApp()
	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		Windows:          []backend.WindowDecl{{Name: "launcher", Visible: true}},
		CloseWindowDelay: map[string]int{"launcher": 50},
	}))
	startApp(t, a)

	// The toggle acknowledges hidden immediately; the backend hides later.
	visible, code := a.Toggle("launcher")
	require.Equal(t, registry.Ok, code)
	assert.False(t, visible)
	assert.True(t, b.Window("launcher").Visible())

	// Reopening before the delay elapses cancels the pending close.
	visible, code = a.Toggle("launcher")
	require.Equal(t, registry.Ok, code)
	assert.True(t, visible)

	time.Sleep(150 * time.Millisecond)
	assert.True(t, b.Window("launcher").Visible(), "cancelled close must not fire")

	_, code = a.Toggle("launcher")
	require.Equal(t, registry.Ok, code)
	eventually(t, time.Second, func() bool {
		return !b.Window("launcher").Visible()
	}, "delayed close should reach the backend")
}

func TestWindowToggledEvents(t *testing.T) {
	a, _, _ := newTestApp()

	type toggle struct {
		name    string
		visible bool
	}
	var seen []toggle
	a.Bus().OnWindowToggled(func(name string, visible bool) {
		seen = append(seen, toggle{name, visible})
	})

	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		Windows: []backend.WindowDecl{{Name: "bar"}},
	}))
	startApp(t, a)

	a.Toggle("bar")
	a.Toggle("bar")

	// Toggle synchronizes with the loop, so seen is safe to read here.
	require.Len(t, seen, 2)
	assert.Equal(t, toggle{"bar", true}, seen[0])
	assert.Equal(t, toggle{"bar", false}, seen[1])
}

func TestConfigHooks(t *testing.T) {
	a, _, stdout := newTestApp()

	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		Windows:         []backend.WindowDecl{{Name: "bar"}},
		OnWindowToggled: "print(name, visible);",
		OnConfigParsed:  "print('ready');",
	}))
	assert.Equal(t, "ready\n", stdout.String())

	startApp(t, a)
	a.Toggle("bar")
	a.Windows() // synchronize with the loop

	assert.Contains(t, stdout.String(), "bar true")
}

func TestInvalidHookIsDropped(t *testing.T) {
	a, _, stdout := newTestApp()

	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		OnConfigParsed: "const = ;",
	}))
	assert.Empty(t, stdout.String())
}

func TestQuitTearsDown(t *testing.T) {
	a, b, _ := newTestApp()
	require.NoError(t, a.Bootstrap(&descriptor.Descriptor{
		Windows:          []backend.WindowDecl{{Name: "launcher", Visible: true}},
		CloseWindowDelay: map[string]int{"launcher": 50},
	}))
	startApp(t, a)

	// Leave a pending close in flight to exercise timer cancellation.
	a.Close("launcher")

	a.Quit()
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("quit did not finish")
	}

	assert.True(t, b.Closed())
	assert.True(t, b.Window("launcher").Destroyed())

	// A second quit is a no-op.
	a.Quit()
}

func TestLoadConfigMissingEntryIsFatal(t *testing.T) {
	a, _, _ := newTestApp()

	loaded := 0
	a.Bus().OnConfigLoaded(func() { loaded++ })

	err := a.LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.ErrorIs(t, err, descriptor.ErrNotFound)
	assert.Zero(t, loaded, "a fatal load must not report config-loaded")
}

func TestLoadConfigMalformedContinuesEmpty(t *testing.T) {
	a, _, _ := newTestApp()

	loaded := 0
	a.Bus().OnConfigLoaded(func() { loaded++ })

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("windows: [unclosed"), 0o644))

	require.NoError(t, a.LoadConfig(path))
	assert.Equal(t, 1, loaded)
	startApp(t, a)
	assert.Empty(t, a.Windows())
}
