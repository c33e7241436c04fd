// Package status simulates a resource-usage snapshot that changes over time.
//
// The Simulator runs on its own goroutine and owns its random source and the
// previous value. It never touches server state; each new Snapshot is sent on
// a channel and the protocol loop decides what to do with it.
package status

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Snapshot is the simulated state reported by mcp.resource.status.
// Percentages are always within [0, 100].
type Snapshot struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	Disk      float64   `json:"disk"`
	Network   Network   `json:"network"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Network holds cumulative simulated traffic counters.
type Network struct {
	RxBytes uint64 `json:"rxBytes"`
	TxBytes uint64 `json:"txBytes"`
}

// Initial returns a starting snapshot drawn from rng.
func Initial(rng *rand.Rand, now time.Time) Snapshot {
	return Snapshot{
		CPU:       round(10 + rng.Float64()*30),
		Memory:    round(30 + rng.Float64()*30),
		Disk:      round(40 + rng.Float64()*20),
		UpdatedAt: now.UTC(),
	}
}

// Next derives the following snapshot by a bounded random walk.
func Next(prev Snapshot, rng *rand.Rand, now time.Time) Snapshot {
	return Snapshot{
		CPU:    step(prev.CPU, 15, rng),
		Memory: step(prev.Memory, 5, rng),
		Disk:   step(prev.Disk, 0.5, rng),
		Network: Network{
			RxBytes: prev.Network.RxBytes + uint64(rng.Intn(64*1024)),
			TxBytes: prev.Network.TxBytes + uint64(rng.Intn(32*1024)),
		},
		UpdatedAt: now.UTC(),
	}
}

func step(v, spread float64, rng *rand.Rand) float64 {
	v += (rng.Float64()*2 - 1) * spread
	return round(math.Max(0, math.Min(100, v)))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source. The simulator must be its only user.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		s.rng = rng
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

// Simulator periodically produces new snapshots.
type Simulator struct {
	interval time.Duration
	rng      *rand.Rand
	now      func() time.Time
	current  Snapshot
}

// NewSimulator creates a simulator ticking every interval.
func NewSimulator(interval time.Duration, opts ...Option) *Simulator {
	s := &Simulator{
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = Initial(s.rng, s.now())
	return s
}

// Current returns the snapshot the simulator starts from. Call it before Run.
func (s *Simulator) Current() Snapshot {
	return s.current
}

// Run starts the ticker and returns the channel of new snapshots.
// The channel is closed when ctx is done. A slow reader delays ticks
// rather than queuing them.
func (s *Simulator) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.current = Next(s.current, s.rng, s.now())
				select {
				case out <- s.current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
