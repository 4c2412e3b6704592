// Package preflight provides readiness checks for the external services and
// filesystem paths a caption run depends on.
//
// The CLI "capstan status" command runs the full set before any audio is
// touched: directory access, external binaries, recognizer reachability, and
// the run ledger. A failing check names what to fix; none of them mutate
// state beyond creating the configured directories.
package preflight
