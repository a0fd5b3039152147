// Package preflight provides readiness checks for the binaries and
// filesystem paths audiochain depends on.
//
// The `audiochain doctor` command renders every check; `audiochain run`
// calls RunAll first and refuses to start a recipe when a required check
// fails, so a misconfigured engine path is reported before any work begins.
package preflight
