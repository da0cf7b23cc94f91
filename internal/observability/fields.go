package observability

import (
	"time"

	"go.uber.org/zap"
)

// Field helpers keep call sites independent of the zap import.
//
//nolint:gochecknoglobals // Function aliases, not mutable state
var (
	String = zap.String
	Int    = zap.Int
	Bool   = zap.Bool
	Any    = zap.Any
)

// Error wraps an error as a log field.
func Error(err error) zap.Field {
	return zap.Error(err)
}

// Elapsed reports the time since start as a duration field named "elapsed".
func Elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
