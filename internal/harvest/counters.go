package harvest

import "sync/atomic"

// Counters is the live run tally, safe for concurrent reads while a
// harvest is in flight.
type Counters struct {
	successful atomic.Int64
	failed     atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{}
}

// Snapshot returns the current tally.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Successful: int(c.successful.Load()),
		Failed:     int(c.failed.Load()),
	}
}
