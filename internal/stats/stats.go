// Package stats holds atomic counters for connection and forwarding
// activity, readable as a point-in-time Snapshot.
package stats

import "sync/atomic"

// Stats collects proxy activity counters. The zero value is ready to
// use.
type Stats struct {
	Connections       atomic.Uint64
	ForwardedSessions atomic.Uint64
	LocalSessions     atomic.Uint64

	BytesToBackend atomic.Uint64
	BytesToClient  atomic.Uint64

	SpawnAttempts  atomic.Uint64
	SpawnsStarted  atomic.Uint64
	SpawnFailures  atomic.Uint64

	ConnectionErrors atomic.Uint64
}

// New returns a ready-to-use Stats.
func New() *Stats {
	return &Stats{}
}

func (s *Stats) IncrementConnections()       { s.Connections.Add(1) }
func (s *Stats) IncrementForwardedSessions() { s.ForwardedSessions.Add(1) }
func (s *Stats) IncrementLocalSessions()     { s.LocalSessions.Add(1) }

func (s *Stats) AddBytesToBackend(n uint64) { s.BytesToBackend.Add(n) }
func (s *Stats) AddBytesToClient(n uint64)  { s.BytesToClient.Add(n) }

func (s *Stats) IncrementSpawnAttempts() { s.SpawnAttempts.Add(1) }
func (s *Stats) IncrementSpawnsStarted() { s.SpawnsStarted.Add(1) }
func (s *Stats) IncrementSpawnFailures() { s.SpawnFailures.Add(1) }

func (s *Stats) IncrementConnectionErrors() { s.ConnectionErrors.Add(1) }

// Snapshot is a point-in-time copy of Stats, safe to read without races.
type Snapshot struct {
	Connections       uint64
	ForwardedSessions uint64
	LocalSessions     uint64
	BytesToBackend    uint64
	BytesToClient     uint64
	SpawnAttempts     uint64
	SpawnsStarted     uint64
	SpawnFailures     uint64
	ConnectionErrors  uint64
}

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Connections:       s.Connections.Load(),
		ForwardedSessions: s.ForwardedSessions.Load(),
		LocalSessions:     s.LocalSessions.Load(),
		BytesToBackend:    s.BytesToBackend.Load(),
		BytesToClient:     s.BytesToClient.Load(),
		SpawnAttempts:     s.SpawnAttempts.Load(),
		SpawnsStarted:     s.SpawnsStarted.Load(),
		SpawnFailures:     s.SpawnFailures.Load(),
		ConnectionErrors:  s.ConnectionErrors.Load(),
	}
}
