// Package vlog is the service runtime's logger. The retrieval pack's
// closest analogue to a companion-app daemon, kryptco-kr, wraps
// github.com/op/go-logging behind a single package-level logger
// (kryptco-kr/logging.go: `log = logging.MustGetLogger("")`) and logs
// through it with .Debug/.Info/.Notice/.Error instead of the bare
// stdlib log package. vaultlink follows the same shape.
package vlog

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("vaultlink")

var format = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{shortfunc} ▶ %{message}`,
)

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.NOTICE, "vaultlink")
	logging.SetBackend(leveled)
}

// SetLevel adjusts the minimum level vaultlink logs at. Embedding
// applications that want DEBUG-level frame tracing call this once at
// startup.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, "vaultlink")
}

// Logger returns the package-level logger, for components that want to
// tag a sub-scope (e.g. `vlog.Logger().Debugf(...)`).
func Logger() *logging.Logger {
	return log
}

func Debugf(format string, args ...any)   { log.Debugf(format, args...) }
func Infof(format string, args ...any)    { log.Infof(format, args...) }
func Noticef(format string, args ...any)  { log.Noticef(format, args...) }
func Warningf(format string, args ...any) { log.Warningf(format, args...) }
func Errorf(format string, args ...any)   { log.Errorf(format, args...) }
