package postgresadapter

import "time"

// SystemClock implements ports.Clock using wall-clock UTC time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedElectionCycle implements ports.ElectionCycle. Year zero defers to the
// calendar year of the clock.
type FixedElectionCycle struct {
	Year int
}

func (c FixedElectionCycle) CurrentYear() int {
	return c.Year
}
