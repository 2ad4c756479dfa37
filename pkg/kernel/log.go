package kernel

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr stores the active logger. Accessed atomically so that SetLogger
// can be called while generators log from other goroutines.
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	loggerPtr.Store(&l)
}

// SetLogger configures the logger shared by the kernel packages. By default
// nothing is logged. Pass nil to restore the silent default.
//
// Levels used:
//   - debug: parameter clamps, filtered degenerate points
//   - warn: dropped input (holes with no owner, failed triangulations)
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	loggerPtr.Store(l)
}

// Logger returns the current kernel logger. Sub-packages call this so that a
// single SetLogger configures all of them.
func Logger() *zerolog.Logger {
	return loggerPtr.Load()
}
