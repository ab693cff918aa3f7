// Package protocol defines the packet format and flag set for the HERO
// datagram transport.
package protocol

// Version is the protocol version stamped into every outgoing packet.
// Version 1 predates FRAG/PING/PONG; decoders reject anything but the
// current version outright rather than attempt fallback, because a v1 peer
// would silently drop the extended flags.
const Version uint8 = 2

// Flag identifies the role of a packet within the connection lifecycle.
type Flag uint8

// Packet flag constants.
const (
	FlagConn Flag = 0 // handshake request, requirements carry the peer key
	FlagGive Flag = 1 // data push, requirements may carry a recipient routing key
	FlagTake Flag = 2 // data request, requirements may carry a resource identifier
	FlagSeen Flag = 3 // acknowledgement of the sequence number it carries
	FlagStop Flag = 4 // graceful teardown notification
	FlagFrag Flag = 5 // one chunk of a fragmented logical packet
	FlagPing Flag = 6 // keepalive probe
	FlagPong Flag = 7 // keepalive reply
)

// flagMax bounds the valid flag range for decoding.
const flagMax = FlagPong

// String implements fmt.Stringer for log output.
func (f Flag) String() string {
	switch f {
	case FlagConn:
		return "CONN"
	case FlagGive:
		return "GIVE"
	case FlagTake:
		return "TAKE"
	case FlagSeen:
		return "SEEN"
	case FlagStop:
		return "STOP"
	case FlagFrag:
		return "FRAG"
	case FlagPing:
		return "PING"
	case FlagPong:
		return "PONG"
	default:
		return "INVALID"
	}
}

// HeaderSize is the fixed header size:
// Flag(1) + Version(1) + Seq(2) + PayloadLen(2) + RequirementsLen(2).
const HeaderSize = 8

// Packet represents a HERO message carried inside one datagram (or, when
// fragmented, reassembled from several FRAG datagrams).
type Packet struct {
	Flag         Flag   // packet role, one of the Flag* constants
	Version      uint8  // protocol version, always Version on outgoing packets
	Seq          uint16 // sender-assigned sequence number, wraps modulo 2^16
	Requirements []byte // flag-dependent metadata (peer key, routing key, resource id)
	Payload      []byte // user-visible message body
}

// New creates a packet stamped with the current protocol version.
func New(flag Flag, seq uint16) *Packet {
	return &Packet{Flag: flag, Version: Version, Seq: seq}
}
