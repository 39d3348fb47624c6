// Package events is the in-process publish mechanism for shell events.
//
// Delivery is synchronous on the cooperative loop that owns all shell state.
// A slow handler delays every subsequent event and bus call; there is no
// queueing.
package events

// Bus dispatches the two shell event kinds to registered listeners.
//
// Bus is loop-confined: Emit and On methods must run on the shell loop.
type Bus struct {
	toggled []func(name string, visible bool)
	loaded  []func()
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnWindowToggled registers a listener for window visibility transitions.
//
// The event is a request acknowledgment, not a completion confirmation: for
// a delayed close it fires when the close is scheduled, before the backend
// has hidden the widget.
func (b *Bus) OnWindowToggled(fn func(name string, visible bool)) {
	b.toggled = append(b.toggled, fn)
}

// OnConfigLoaded registers a listener for config-loaded.
func (b *Bus) OnConfigLoaded(fn func()) {
	b.loaded = append(b.loaded, fn)
}

// EmitWindowToggled publishes a window visibility transition.
func (b *Bus) EmitWindowToggled(name string, visible bool) {
	for _, fn := range b.toggled {
		fn(name, visible)
	}
}

// EmitConfigLoaded publishes config-loaded.
func (b *Bus) EmitConfigLoaded() {
	for _, fn := range b.loaded {
		fn()
	}
}
