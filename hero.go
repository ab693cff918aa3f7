// Package hero implements a lightweight datagram transport layering a
// minimal connection lifecycle, per-packet acknowledgement, and
// large-message fragmentation on top of unreliable unicast UDP.
//
// The transport targets realtime interactive workloads where sub-MTU
// messages are the norm but occasional larger payloads must still transit.
// Reliability is best-effort single-packet delivery: every accepted inbound
// frame other than PING, PONG and SEEN is answered with a SEEN
// acknowledgement carrying its sequence number, which is enough to build an
// at-least-once scheme on top.
//
// Endpoints are single-threaded cooperative: progress is made by the caller
// invoking Poll (server) or Receive/Update (client). No method spawns
// goroutines, and no endpoint instance may be shared across goroutines.
package hero

import (
	"time"

	"github.com/LinkNavi/HERO/internal/command"
	"github.com/LinkNavi/HERO/internal/fragment"
	"github.com/LinkNavi/HERO/internal/protocol"
)

// Packet and Flag are the wire-level types surfaced to callers.
type (
	Packet = protocol.Packet
	Flag   = protocol.Flag
)

// Packet flag constants, re-exported for handler code.
const (
	FlagConn = protocol.FlagConn
	FlagGive = protocol.FlagGive
	FlagTake = protocol.FlagTake
	FlagSeen = protocol.FlagSeen
	FlagStop = protocol.FlagStop
	FlagFrag = protocol.FlagFrag
	FlagPing = protocol.FlagPing
	FlagPong = protocol.FlagPong
)

// Transport defaults. Every blocking-looking operation is a bounded poll
// loop; callers cancel by letting the deadline elapse.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultPingTimeout       = time.Second
	DefaultReceiveTimeout    = 100 * time.Millisecond
	DefaultReassemblyTimeout = 30 * time.Second
	DefaultStaleTimeout      = 30 * time.Second
	DefaultKeepaliveInterval = 5 * time.Second

	// fragmentPacing separates consecutive FRAG sends to reduce
	// receive-side drops during a burst.
	fragmentPacing = time.Millisecond

	// recvPollInterval is the sleep between recv attempts inside the
	// bounded poll loops.
	recvPollInterval = 10 * time.Millisecond
)

// ChunkCapacity is the largest payload that still fits one datagram; larger
// payloads are fragmented transparently.
const ChunkCapacity = fragment.ChunkCapacity

// placeholderKey identifies peers that supply no key material of their own.
// Non-empty so that CONN stays distinguishable from a malformed frame in a
// packet capture.
var placeholderKey = []byte{0x01, 0x02, 0x03, 0x04}

// CommandArgs is the positional argument vector produced by DecodeCommand.
type CommandArgs = command.Args

// RegisterCommand binds a symbolic command name to a two-character mnemonic
// code. The registry is process-wide and unlocked: populate it during
// initialization, before endpoints run on other goroutines.
func RegisterCommand(name, code string) error {
	return command.Register(name, code)
}

// EncodeCommand renders a command payload: mnemonic, '|', then each
// argument terminated by ';'. The '|' and ';' bytes are reserved; arguments
// that must carry them need pre-escaping by the caller.
func EncodeCommand(mnemonic string, args ...string) []byte {
	return command.Encode(mnemonic, args...)
}

// EncodeCommandValues is EncodeCommand for non-string arguments.
func EncodeCommandValues(mnemonic string, args ...interface{}) []byte {
	return command.EncodeValues(mnemonic, args...)
}

// DecodeCommand parses a command payload. It never fails; input without a
// '|' decodes as a bare mnemonic with no arguments.
func DecodeCommand(data []byte) (string, CommandArgs) {
	return command.Decode(data)
}
