// Package monitoring holds the package-level diagnostic logger shared by the
// library packages.
package monitoring

import (
	"io"
	"log"
)

// Logf defaults to log.Printf. Tests or commands may replace it with
// SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput points Logf at a new *log.Logger writing to w with the given
// prefix. The CLI points it at the command's stderr.
func SetOutput(w io.Writer, prefix string) {
	l := log.New(w, prefix, log.LstdFlags)
	Logf = l.Printf
}
