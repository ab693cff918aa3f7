package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats is the process-wide transport counter set. Counters are atomic so
// the CLI reporter can read them while endpoints run on other goroutines.
var Stats = &stats{}

type stats struct {
	packetsSent atomic.Int64
	packetsRecv atomic.Int64
	bytesSent   atomic.Int64
	bytesRecv   atomic.Int64

	acksSent      atomic.Int64 // SEEN frames emitted
	fragmentsSent atomic.Int64 // FRAG chunks produced by the splitter
	reassembled   atomic.Int64 // logical messages completed from chunks
	expired       atomic.Int64 // partial messages destroyed by the sweep

	peersAdded   atomic.Int64
	peersRemoved atomic.Int64
}

func (s *stats) CountSent(bytes int) {
	s.packetsSent.Add(1)
	s.bytesSent.Add(int64(bytes))
}

func (s *stats) CountRecv(bytes int) {
	s.packetsRecv.Add(1)
	s.bytesRecv.Add(int64(bytes))
}

func (s *stats) CountAck()            { s.acksSent.Add(1) }
func (s *stats) CountFragments(n int) { s.fragmentsSent.Add(int64(n)) }
func (s *stats) CountReassembled()    { s.reassembled.Add(1) }
func (s *stats) CountExpired()        { s.expired.Add(1) }
func (s *stats) AddPeer()             { s.peersAdded.Add(1) }
func (s *stats) RemovePeer()          { s.peersRemoved.Add(1) }

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	PacketsSent   int64
	PacketsRecv   int64
	BytesSent     int64
	BytesRecv     int64
	AcksSent      int64
	FragmentsSent int64
	Reassembled   int64
	Expired       int64
	Peers         int64 // currently registered (added minus removed)
}

// Snapshot copies the counters.
func (s *stats) Snapshot() Snapshot {
	return Snapshot{
		PacketsSent:   s.packetsSent.Load(),
		PacketsRecv:   s.packetsRecv.Load(),
		BytesSent:     s.bytesSent.Load(),
		BytesRecv:     s.bytesRecv.Load(),
		AcksSent:      s.acksSent.Load(),
		FragmentsSent: s.fragmentsSent.Load(),
		Reassembled:   s.reassembled.Load(),
		Expired:       s.expired.Load(),
		Peers:         s.peersAdded.Load() - s.peersRemoved.Load(),
	}
}

// delta returns the per-interval difference against an earlier snapshot.
// Peers stays absolute — a gauge, not a rate.
func (cur Snapshot) delta(prev Snapshot) Snapshot {
	return Snapshot{
		PacketsSent:   cur.PacketsSent - prev.PacketsSent,
		PacketsRecv:   cur.PacketsRecv - prev.PacketsRecv,
		BytesSent:     cur.BytesSent - prev.BytesSent,
		BytesRecv:     cur.BytesRecv - prev.BytesRecv,
		AcksSent:      cur.AcksSent - prev.AcksSent,
		FragmentsSent: cur.FragmentsSent - prev.FragmentsSent,
		Reassembled:   cur.Reassembled - prev.Reassembled,
		Expired:       cur.Expired - prev.Expired,
		Peers:         cur.Peers,
	}
}

// String renders a one-line transport summary.
func (s Snapshot) String() string {
	line := fmt.Sprintf("pkts %d↑/%d↓ (%s↑/%s↓), acks %d, peers %d",
		s.PacketsSent, s.PacketsRecv, kib(s.BytesSent), kib(s.BytesRecv), s.AcksSent, s.Peers)
	if s.FragmentsSent > 0 || s.Reassembled > 0 || s.Expired > 0 {
		line += fmt.Sprintf(", frags %d, reasm %d ok/%d expired",
			s.FragmentsSent, s.Reassembled, s.Expired)
	}
	return line
}

func kib(n int64) string {
	return fmt.Sprintf("%.1f KiB", float64(n)/1024)
}

// StartStatsReporter launches a goroutine that logs a transport summary for
// every interval in which traffic moved. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.Snapshot()
		for {
			select {
			case <-ticker.C:
				cur := Stats.Snapshot()
				d := cur.delta(prev)
				prev = cur
				if d.PacketsSent == 0 && d.PacketsRecv == 0 {
					continue
				}
				LogInfo("%s", d)

			case <-ctx.Done():
				return
			}
		}
	}()
}
