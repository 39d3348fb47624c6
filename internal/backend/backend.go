// Package backend abstracts the rendering toolkit behind opaque window
// handles. The shell core never touches widgets directly; it only shows,
// hides, and destroys handles and observes their visibility.
package backend

// WindowDecl is a single window declaration from the user configuration.
type WindowDecl struct {
	Name    string `yaml:"name"`
	Title   string `yaml:"title"`
	Visible bool   `yaml:"visible"`
}

// Handle is an opaque top-level window owned by the rendering backend.
//
// Implementations deliver OnVisibilityChanged callbacks from whatever thread
// the toolkit uses; callers are expected to marshal back onto their own loop.
type Handle interface {
	Show()
	Hide()
	Visible() bool
	Destroy()
	OnVisibilityChanged(fn func(visible bool))
}

// Backend creates windows and plumbs opaque style and icon paths to the
// toolkit. No rendering semantics are defined here.
type Backend interface {
	CreateWindow(decl WindowDecl) (Handle, error)
	LoadStyle(path string) error
	AddIconPath(path string) error
	OpenInspector() error
	Close() error
}
