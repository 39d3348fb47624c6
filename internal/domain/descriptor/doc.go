// Package descriptor loads the declarative shell configuration.
//
// The descriptor is consumed, not produced, by the core: it declares the
// window list, opaque style and icon paths, the per-window close delay
// table, and two optional script hooks run on shell events. Legacy and
// unknown fields are warned about and ignored; loading never fails on them.
package descriptor
