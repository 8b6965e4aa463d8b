// Package modules contains all self-contained application features.
//
// Each subdirectory is a module that implements the `module.Module` interface.
// Modules are listed in `internal/app/modules.go`, registered and booted by
// `server.InitModules`, and shut down in reverse order.
package modules
