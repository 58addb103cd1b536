// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Log is the shared logger. Output goes to stderr so command output on
// stdout stays machine-readable.
var Log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "bookfetch",
})

// SetLevel parses a level name ("debug", "info", "warn", "error") and applies
// it to Log. Unknown names leave the level unchanged.
func SetLevel(name string) {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		Log.Warn("unknown log level; keeping current", "level", name)
		return
	}
	Log.SetLevel(lvl)
}
