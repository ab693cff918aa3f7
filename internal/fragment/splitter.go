// Package fragment splits oversize payloads into FRAG packets and rebuilds
// logical packets from the chunks a peer sends, preserving the original flag
// across the round trip.
package fragment

import (
	"encoding/binary"

	"github.com/LinkNavi/HERO/internal/protocol"
	"github.com/LinkNavi/HERO/internal/util"
)

const (
	// maxFragPayload caps one FRAG packet's payload, leaving a safe margin
	// under the 65507-byte UDP payload limit once the packet header is added.
	maxFragPayload = 60000

	// subHeaderSize is the fragment sub-header carried inside the FRAG
	// payload: MsgID(2) + Index(2) + Total(2) + OriginalFlag(1).
	subHeaderSize = 7

	// ChunkCapacity is the number of logical payload bytes one chunk carries.
	ChunkCapacity = maxFragPayload - subHeaderSize
)

// Oversize reports whether a payload must be fragmented before sending.
func Oversize(payload []byte) bool {
	return len(payload) > ChunkCapacity
}

// Splitter assigns message ids and cuts oversize payloads into FRAG packets.
// It is exclusively owned by one connection core and is not synchronized.
type Splitter struct {
	nextMsgID uint16
}

// Split cuts payload into FRAG packets carrying the given original flag.
// Each packet has seq = fragment index, empty requirements, and a payload of
// sub-header + chunk bytes. The caller is responsible for pacing the sends.
func (s *Splitter) Split(payload []byte, original protocol.Flag) []*protocol.Packet {
	msgID := s.nextMsgID
	s.nextMsgID++ // wraparound is legal

	total := (len(payload) + ChunkCapacity - 1) / ChunkCapacity
	packets := make([]*protocol.Packet, 0, total)

	for i := 0; i < total; i++ {
		start := i * ChunkCapacity
		end := min(start+ChunkCapacity, len(payload))

		body := make([]byte, subHeaderSize+end-start)
		binary.LittleEndian.PutUint16(body[0:2], msgID)
		binary.LittleEndian.PutUint16(body[2:4], uint16(i))
		binary.LittleEndian.PutUint16(body[4:6], uint16(total))
		body[6] = byte(original)
		copy(body[subHeaderSize:], payload[start:end])

		pkt := protocol.New(protocol.FlagFrag, uint16(i))
		pkt.Payload = body
		packets = append(packets, pkt)
	}

	util.Stats.CountFragments(len(packets))
	return packets
}
