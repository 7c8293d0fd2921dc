package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tallies request outcomes for the /metrics endpoint. Counters are
// process-local and reset on restart.
type Collector struct {
	requests     atomic.Uint64
	serverErrors atomic.Uint64
	rateLimited  atomic.Uint64
	durationMs   atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status == 429:
		c.rateLimited.Add(1)
	case status >= 500:
		c.serverErrors.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

type Snapshot struct {
	Requests      uint64  `json:"requests"`
	ServerErrors  uint64  `json:"serverErrors"`
	RateLimited   uint64  `json:"rateLimited"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:     c.requests.Load(),
		ServerErrors: c.serverErrors.Load(),
		RateLimited:  c.rateLimited.Load(),
	}
	if snap.Requests > 0 {
		snap.AvgDurationMs = float64(c.durationMs.Load()) / float64(snap.Requests)
	}
	return snap
}
