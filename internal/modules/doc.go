// Package modules contains the HTTP features of the service.
//
// Each subdirectory is a module implementing `module.Module`. Modules are
// listed in `internal/app/modules.go` and mounted by the server under
// /api/<name>.
package modules
