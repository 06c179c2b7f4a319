// Package backend defines the contract between the renderer and the code
// that actually draws.
//
// A backend contributes optimizer passes (typically a specialization pass
// that replaces abstract tasks such as task.Fill with runnable ones) and owns
// whatever resources its tasks need. Backends register a factory under a
// name, usually from an init function:
//
//	func init() {
//		backend.Register(backend.NameSoftware, func() backend.Backend {
//			return New()
//		})
//	}
//
// The rendering package creates one renderer per available backend when
// the rendering system is initialized.
//
// # Logging
//
// Backends log through Logger, which the rendering package configures via
// SetLogger. It is silent by default.
package backend
