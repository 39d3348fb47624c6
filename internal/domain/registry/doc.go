// Package registry owns the mapping from logical window name to its backend
// handle.
//
// All methods are loop-confined: they must run on the cooperative shell
// loop, so no locking is needed. Operations report tagged result codes
// instead of errors; the registry never decides that a failure is fatal.
// That policy belongs to the bootstrap caller.
//
// Components:
//   - Manager: add/remove/get/open/hide with duplicate and missing-name policy
//   - Code: tagged result {Ok, UnknownWindow, InvalidWindow, DuplicateWindow}
//
// Example Usage:
//
//	reg := registry.NewManager(bus, loop, logger)
//	code := reg.Add("bar", handle)
//	reg.Open("bar")
package registry
