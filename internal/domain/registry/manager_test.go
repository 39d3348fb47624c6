package registry

import (
	"testing"

	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/backend/headless"
	"github.com/wrenshell/wren/internal/domain/events"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// syncPoster runs posted work inline; tests are single-goroutine.
type syncPoster struct{}

func (syncPoster) Post(fn func()) { fn() }

func newTestManager() (*Manager, *events.Bus, *headless.Backend) {
	bus := events.NewBus()
	be := headless.New()
	m := NewManager(bus, syncPoster{}, logging.NewNop())
	return m, bus, be
}

func newWindow(t *testing.T, be *headless.Backend, name string, visible bool) backend.Handle {
	t.Helper()
	h, err := be.CreateWindow(backend.WindowDecl{Name: name, Visible: visible})
	if err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}
	return h
}

func TestAddRemoveLifecycle(t *testing.T) {
	m, _, be := newTestManager()

	before := m.Len()
	if code := m.Add("bar", newWindow(t, be, "bar", false)); code != Ok {
		t.Fatalf("Add returned %v", code)
	}
	if m.Len() != before+1 {
		t.Errorf("expected %d windows, got %d", before+1, m.Len())
	}
	if code := m.Remove("bar"); code != Ok {
		t.Fatalf("Remove returned %v", code)
	}
	if m.Len() != before {
		t.Errorf("expected registry restored to size %d, got %d", before, m.Len())
	}
}

func TestAddRejectsEmptyName(t *testing.T) {
	m, _, be := newTestManager()
	if code := m.Add("", newWindow(t, be, "", false)); code != InvalidWindow {
		t.Errorf("expected InvalidWindow, got %v", code)
	}
	if m.Len() != 0 {
		t.Errorf("invalid window must not be registered")
	}
}

func TestAddDuplicateName(t *testing.T) {
	m, _, be := newTestManager()

	if code := m.Add("bar", newWindow(t, be, "bar", false)); code != Ok {
		t.Fatalf("first Add returned %v", code)
	}
	if code := m.Add("bar", newWindow(t, be, "bar", false)); code != DuplicateWindow {
		t.Errorf("expected DuplicateWindow, got %v", code)
	}
	if m.Len() != 1 {
		t.Errorf("duplicate must not replace the original entry")
	}
}

func TestUnknownWindowIsNoOp(t *testing.T) {
	m, _, _ := newTestManager()

	if _, code := m.Get("missing"); code != UnknownWindow {
		t.Errorf("Get: expected UnknownWindow, got %v", code)
	}
	if code := m.Open("missing"); code != UnknownWindow {
		t.Errorf("Open: expected UnknownWindow, got %v", code)
	}
	if code := m.Hide("missing"); code != UnknownWindow {
		t.Errorf("Hide: expected UnknownWindow, got %v", code)
	}
	if code := m.Remove("missing"); code != UnknownWindow {
		t.Errorf("Remove: expected UnknownWindow, got %v", code)
	}
}

func TestOpenHidePublishesEvents(t *testing.T) {
	m, bus, be := newTestManager()

	type toggle struct {
		name    string
		visible bool
	}
	var got []toggle
	bus.OnWindowToggled(func(name string, visible bool) {
		got = append(got, toggle{name, visible})
	})

	m.Add("bar", newWindow(t, be, "bar", false))

	m.Open("bar")
	m.Open("bar") // already visible, no event
	m.Hide("bar")

	want := []toggle{{"bar", true}, {"bar", false}}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestMarkHiddenSuppressesBackendEcho(t *testing.T) {
	m, bus, be := newTestManager()

	events := 0
	bus.OnWindowToggled(func(string, bool) { events++ })

	m.Add("bar", newWindow(t, be, "bar", true))

	// Logical acknowledgment first, backend hide later. The backend's own
	// notification must not produce a second event.
	if code := m.MarkHidden("bar"); code != Ok {
		t.Fatalf("MarkHidden returned %v", code)
	}
	h, _ := m.Get("bar")
	h.Hide()

	if events != 1 {
		t.Errorf("expected exactly 1 event, got %d", events)
	}
	if vis, _ := m.Visible("bar"); vis {
		t.Error("window should be logically hidden")
	}
}

func TestExternalVisibilityChangeRepublished(t *testing.T) {
	m, bus, be := newTestManager()

	type toggle struct {
		name    string
		visible bool
	}
	var got []toggle
	bus.OnWindowToggled(func(name string, visible bool) {
		got = append(got, toggle{name, visible})
	})

	h := newWindow(t, be, "bar", false)
	m.Add("bar", h)

	// Visibility flipped by the backend itself (e.g. the window manager).
	h.Show()

	if len(got) != 1 || got[0].name != "bar" || !got[0].visible {
		t.Fatalf("expected republished toggle, got %v", got)
	}
	if vis, _ := m.Visible("bar"); !vis {
		t.Error("logical state should follow the backend")
	}
}

func TestRemoveDestroysHandle(t *testing.T) {
	m, _, be := newTestManager()

	h := newWindow(t, be, "bar", false).(*headless.Window)
	m.Add("bar", h)
	m.Remove("bar")

	if !h.Destroyed() {
		t.Error("Remove must destroy the backend handle")
	}
}

func TestDestroyAll(t *testing.T) {
	m, _, be := newTestManager()

	h1 := newWindow(t, be, "bar", false).(*headless.Window)
	h2 := newWindow(t, be, "launcher", true).(*headless.Window)
	m.Add("bar", h1)
	m.Add("launcher", h2)

	m.DestroyAll()

	if m.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", m.Len())
	}
	if !h1.Destroyed() || !h2.Destroyed() {
		t.Error("all handles must be destroyed")
	}
}
