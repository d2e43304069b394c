package blockrepo

import "github.com/btcsuite/btclog"

// log is the package-wide logger, disabled by default until a caller
// wires one in with UseLogger. This mirrors the convention used
// throughout the btcd-family database packages: every package that wants
// logging owns a single unexported btclog.Logger and exposes UseLogger /
// DisableLog rather than taking a logger as a constructor argument.
var log = btclog.Disabled

// UseLogger sets the package-wide logger. Caller packages (typically a
// node's top-level log-file setup) call this once during startup, the
// same way btcd wires loggers into each of its subsystems.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// DisableLog disables all library log output. Logging is disabled by
// default until UseLogger is called.
func DisableLog() {
	log = btclog.Disabled
}
