package logger

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

var (
	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")

	dropped atomic.Uint64 //nolint:gochecknoglobals
)

// ErrorHandler reports events zerolog failed to write, e.g. when a rolling
// log file became unwritable. Only the first failure and every 1000th after
// it reach stderr.
func ErrorHandler(err error) {
	n := dropped.Add(1)
	if n == 1 || n%1000 == 0 {
		_, _ = fmt.Fprintf(os.Stderr, "zerolog: could not write event (%d dropped): %v\n", n, err)
	}
}

// Dropped returns the number of log events that could not be written.
func Dropped() uint64 {
	return dropped.Load()
}
