package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Decode error categories. Malformed peer traffic is dropped by the
// connection cores, so these surface only in logs and tests.
var (
	ErrTooSmall        = errors.New("packet smaller than header")
	ErrTruncated       = errors.New("declared lengths overrun packet")
	ErrUnknownFlag     = errors.New("unknown packet flag")
	ErrVersionMismatch = errors.New("protocol version mismatch")
)

// Encode serializes a Packet into its wire form. Encoding always succeeds;
// the result is HeaderSize + len(Requirements) + len(Payload) bytes.
func Encode(pkt *Packet) []byte {
	buf := make([]byte, HeaderSize+len(pkt.Requirements)+len(pkt.Payload))
	buf[0] = byte(pkt.Flag)
	buf[1] = pkt.Version
	binary.BigEndian.PutUint16(buf[2:4], pkt.Seq)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(pkt.Payload)))
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(pkt.Requirements)))
	copy(buf[HeaderSize:], pkt.Requirements)
	copy(buf[HeaderSize+len(pkt.Requirements):], pkt.Payload)
	return buf
}

// Decode deserializes a wire-format packet. It never surfaces a partial
// packet: any length, flag, or version violation fails the whole frame.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (need at least %d)", ErrTooSmall, len(data), HeaderSize)
	}

	if Flag(data[0]) > flagMax {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFlag, data[0])
	}
	if data[1] != Version {
		return nil, fmt.Errorf("%w: got %d, support %d", ErrVersionMismatch, data[1], Version)
	}

	payloadLen := int(binary.BigEndian.Uint16(data[4:6]))
	reqLen := int(binary.BigEndian.Uint16(data[6:8]))
	if HeaderSize+reqLen+payloadLen > len(data) {
		return nil, fmt.Errorf("%w: declared %d+%d bytes, have %d",
			ErrTruncated, reqLen, payloadLen, len(data)-HeaderSize)
	}

	pkt := &Packet{
		Flag:    Flag(data[0]),
		Version: data[1],
		Seq:     binary.BigEndian.Uint16(data[2:4]),
	}
	if reqLen > 0 {
		pkt.Requirements = make([]byte, reqLen)
		copy(pkt.Requirements, data[HeaderSize:HeaderSize+reqLen])
	}
	if payloadLen > 0 {
		pkt.Payload = make([]byte, payloadLen)
		copy(pkt.Payload, data[HeaderSize+reqLen:HeaderSize+reqLen+payloadLen])
	}
	return pkt, nil
}
