package application

import (
	"log/slog"
	"time"

	"ballotbox/contexts/election-integrity/ballot-ledger/ports"
)

const ModuleName = "election-integrity/ballot-ledger"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Now reads the clock in UTC, falling back to wall time when clock is nil.
func Now(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// CurrentYear resolves the active election year. A configured cycle wins;
// otherwise the calendar year of the clock is used.
func CurrentYear(cycle ports.ElectionCycle, clock ports.Clock) int {
	if cycle != nil {
		if year := cycle.CurrentYear(); year > 0 {
			return year
		}
	}
	return Now(clock).Year()
}
