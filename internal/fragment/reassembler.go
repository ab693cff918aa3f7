package fragment

import (
	"encoding/binary"
	"time"

	"github.com/LinkNavi/HERO/internal/protocol"
	"github.com/LinkNavi/HERO/internal/util"
)

// pending is the receiver-side record of one partially-arrived message.
type pending struct {
	total      uint16
	original   protocol.Flag
	chunks     map[uint16][]byte
	lastUpdate time.Time
}

// Reassembler buffers FRAG chunks per message id and surfaces each completed
// logical packet exactly once. It is exclusively owned by one connection
// core and is not synchronized.
type Reassembler struct {
	timeout time.Duration
	table   map[uint16]*pending
}

// NewReassembler creates a reassembler that destroys records whose newest
// chunk is older than timeout.
func NewReassembler(timeout time.Duration) *Reassembler {
	return &Reassembler{
		timeout: timeout,
		table:   make(map[uint16]*pending),
	}
}

// Feed accepts one FRAG packet. When the chunk completes its message, Feed
// returns the reassembled logical packet: original flag, empty requirements,
// and seq copied from this last-received fragment (the value any SEEN for
// the message will carry — callers should not read anything else into it).
// Otherwise Feed returns nil. Malformed or inconsistent chunks are dropped
// silently; every call also sweeps expired records.
func (r *Reassembler) Feed(pkt *protocol.Packet) *protocol.Packet {
	now := time.Now()
	r.Sweep(now)

	if len(pkt.Payload) < subHeaderSize {
		util.LogDebug("fragment: dropping short chunk (%d bytes)", len(pkt.Payload))
		return nil
	}

	msgID := binary.LittleEndian.Uint16(pkt.Payload[0:2])
	index := binary.LittleEndian.Uint16(pkt.Payload[2:4])
	total := binary.LittleEndian.Uint16(pkt.Payload[4:6])
	original := protocol.Flag(pkt.Payload[6])

	if total == 0 || index >= total {
		util.LogDebug("fragment: dropping chunk with index %d of %d", index, total)
		return nil
	}

	rec, exists := r.table[msgID]
	if !exists {
		rec = &pending{
			total:    total,
			original: original,
			chunks:   make(map[uint16][]byte),
		}
		r.table[msgID] = rec
	} else if rec.total != total {
		util.LogDebug("fragment: msg %d chunk declares %d fragments, record has %d", msgID, total, rec.total)
		return nil
	}

	// A duplicate index overwrites idempotently.
	chunk := make([]byte, len(pkt.Payload)-subHeaderSize)
	copy(chunk, pkt.Payload[subHeaderSize:])
	rec.chunks[index] = chunk
	rec.lastUpdate = now

	if len(rec.chunks) < int(rec.total) {
		return nil
	}

	size := 0
	for _, c := range rec.chunks {
		size += len(c)
	}
	payload := make([]byte, 0, size)
	for i := uint16(0); i < rec.total; i++ {
		payload = append(payload, rec.chunks[i]...)
	}
	delete(r.table, msgID)
	util.Stats.CountReassembled()

	out := protocol.New(rec.original, pkt.Seq)
	out.Payload = payload
	return out
}

// Sweep destroys records whose newest chunk is older than the reassembly
// timeout. Partial messages are dropped without surfacing.
func (r *Reassembler) Sweep(now time.Time) {
	for id, rec := range r.table {
		if now.Sub(rec.lastUpdate) > r.timeout {
			util.LogDebug("fragment: msg %d timed out with %d/%d chunks", id, len(rec.chunks), rec.total)
			delete(r.table, id)
			util.Stats.CountExpired()
		}
	}
}

// PendingCount returns the number of partially-assembled messages.
func (r *Reassembler) PendingCount() int {
	return len(r.table)
}
