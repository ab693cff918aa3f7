package hero

import (
	"time"

	"github.com/LinkNavi/HERO/internal/endpoint"
	"github.com/LinkNavi/HERO/internal/fragment"
	"github.com/LinkNavi/HERO/internal/protocol"
	"github.com/LinkNavi/HERO/internal/util"
)

// clientState tracks the connection lifecycle.
type clientState int

const (
	stateIdle clientState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Client is the connecting side of a HERO connection. It owns its socket,
// sequence counter, and reassembly table; it is single-threaded cooperative
// and must not be shared across goroutines.
type Client struct {
	ep    endpoint.Endpoint
	state clientState

	host string
	port int
	key  []byte

	seq      uint16
	splitter fragment.Splitter
	reasm    *fragment.Reassembler

	// Packets that arrived during a ping wait, surfaced by the next Receive.
	queued []*protocol.Packet

	lastPing   time.Time
	pingSeq    uint16
	pingSentAt time.Time
	rtt        time.Duration

	connectTimeout    time.Duration
	pingTimeout       time.Duration
	keepaliveInterval time.Duration
}

// NewClient creates an idle client with the default timeouts.
func NewClient() *Client {
	return &Client{
		reasm:             fragment.NewReassembler(DefaultReassemblyTimeout),
		connectTimeout:    DefaultConnectTimeout,
		pingTimeout:       DefaultPingTimeout,
		keepaliveInterval: DefaultKeepaliveInterval,
	}
}

// SetConnectTimeout overrides the handshake deadline. Must be called before
// Connect.
func (c *Client) SetConnectTimeout(d time.Duration) { c.connectTimeout = d }

// SetKeepaliveInterval overrides the cadence KeepAlive pings at.
func (c *Client) SetKeepaliveInterval(d time.Duration) { c.keepaliveInterval = d }

// nextSeq advances the outgoing sequence counter. Wraparound is legal; a
// value is never reused within one connection lifetime in practice.
func (c *Client) nextSeq() uint16 {
	c.seq++
	return c.seq
}

// Connect binds an ephemeral port, sends CONN with the given identity key,
// and waits up to the connect timeout for the server's SEEN. A nil or empty
// key is replaced with the placeholder identity bytes. Returns false on
// timeout or send failure, leaving the client closed; the caller decides
// whether to retry.
func (c *Client) Connect(host string, port int, key []byte) bool {
	if c.state == stateConnecting || c.state == stateConnected {
		return false
	}
	if err := c.ep.Bind(0); err != nil {
		util.LogError("connect: %v", err)
		return false
	}

	if len(key) == 0 {
		key = placeholderKey
	}
	c.host = host
	c.port = port
	c.key = append([]byte(nil), key...)
	c.state = stateConnecting

	pkt := protocol.New(protocol.FlagConn, c.nextSeq())
	pkt.Requirements = c.key
	if !c.ep.Send(protocol.Encode(pkt), host, port) {
		c.close()
		return false
	}

	deadline := time.Now().Add(c.connectTimeout)
	for time.Now().Before(deadline) {
		if in := c.recvPacket(); in != nil {
			if in.Flag == protocol.FlagSeen {
				c.state = stateConnected
				c.lastPing = time.Now()
				util.LogInfo("connected to %s:%d", host, port)
				return true
			}
			continue
		}
		time.Sleep(recvPollInterval)
	}

	util.LogWarning("connect to %s:%d timed out", host, port)
	c.close()
	return false
}

// Send transmits payload as a single GIVE, or as a paced burst of FRAG
// packets when it exceeds ChunkCapacity. Returns false when not connected
// or when the OS rejected a send; there is no retransmission.
func (c *Client) Send(payload []byte) bool {
	return c.send(payload, nil)
}

// SendKeyed is Send with a recipient routing key in the requirements field.
func (c *Client) SendKeyed(payload, recipientKey []byte) bool {
	return c.send(payload, recipientKey)
}

// SendText sends a UTF-8 string payload.
func (c *Client) SendText(text string) bool {
	return c.send([]byte(text), nil)
}

// SendCommand encodes and sends a mnemonic command payload.
func (c *Client) SendCommand(mnemonic string, args ...string) bool {
	return c.send(EncodeCommand(mnemonic, args...), nil)
}

// SendTake requests a resource from the server: a TAKE packet whose
// requirements carry the resource identifier. The response, if any, arrives
// through Receive.
func (c *Client) SendTake(resource string) bool {
	if c.state != stateConnected {
		return false
	}
	pkt := protocol.New(protocol.FlagTake, c.nextSeq())
	pkt.Requirements = []byte(resource)
	return c.ep.Send(protocol.Encode(pkt), c.host, c.port)
}

func (c *Client) send(payload, recipientKey []byte) bool {
	if c.state != stateConnected {
		return false
	}

	if !fragment.Oversize(payload) {
		pkt := protocol.New(protocol.FlagGive, c.nextSeq())
		pkt.Requirements = recipientKey
		pkt.Payload = payload
		return c.ep.Send(protocol.Encode(pkt), c.host, c.port)
	}

	ok := true
	for _, fp := range c.splitter.Split(payload, protocol.FlagGive) {
		ok = c.ep.Send(protocol.Encode(fp), c.host, c.port) && ok
		time.Sleep(fragmentPacing)
	}
	return ok
}

// Receive polls for up to timeout and returns the first packet addressed to
// the caller. PING/PONG/STOP are consumed by the connection core; every
// surfaced non-SEEN packet is acknowledged with a SEEN carrying its
// sequence number before being returned. Returns (nil, false) on timeout or
// when not connected.
func (c *Client) Receive(timeout time.Duration) (*Packet, bool) {
	if c.state != stateConnected {
		return nil, false
	}

	if len(c.queued) > 0 {
		pkt := c.queued[0]
		c.queued = c.queued[1:]
		return pkt, true
	}

	deadline := time.Now().Add(timeout)
	for {
		in := c.recvPacket()
		if in == nil {
			if !time.Now().Before(deadline) {
				return nil, false
			}
			time.Sleep(recvPollInterval)
			continue
		}
		if pkt, surface := c.handleInbound(in); surface {
			return pkt, true
		}
		if c.state != stateConnected || !time.Now().Before(deadline) {
			return nil, false
		}
	}
}

// ReceiveText is Receive surfacing the payload as a string.
func (c *Client) ReceiveText(timeout time.Duration) (string, bool) {
	pkt, ok := c.Receive(timeout)
	if !ok {
		return "", false
	}
	return string(pkt.Payload), true
}

// ReceiveCommand is Receive decoding the payload as a mnemonic command.
func (c *Client) ReceiveCommand(timeout time.Duration) (string, CommandArgs, bool) {
	pkt, ok := c.Receive(timeout)
	if !ok {
		return "", nil, false
	}
	mnemonic, args := DecodeCommand(pkt.Payload)
	return mnemonic, args, true
}

// handleInbound applies the client-side classification rule to one logical
// packet. It reports whether the packet should be surfaced to the caller.
func (c *Client) handleInbound(pkt *protocol.Packet) (*Packet, bool) {
	switch pkt.Flag {
	case protocol.FlagPong:
		if pkt.Seq == c.pingSeq && !c.pingSentAt.IsZero() {
			c.rtt = time.Since(c.pingSentAt)
			c.pingSentAt = time.Time{}
		}
		return nil, false

	case protocol.FlagPing:
		pong := protocol.New(protocol.FlagPong, pkt.Seq)
		c.ep.Send(protocol.Encode(pong), c.host, c.port)
		return nil, false

	case protocol.FlagStop:
		util.LogInfo("server stopped the connection")
		c.close()
		return nil, false

	case protocol.FlagSeen:
		// Acknowledgements are surfaced but never acknowledged themselves.
		return pkt, true

	default:
		ack := protocol.New(protocol.FlagSeen, pkt.Seq)
		c.ep.Send(protocol.Encode(ack), c.host, c.port)
		util.Stats.CountAck()
		return pkt, true
	}
}

// Ping sends a PING and waits up to the ping timeout for the matching PONG,
// updating the measured round-trip time on success. Unrelated packets that
// arrive while waiting are processed normally and queued for the next
// Receive.
func (c *Client) Ping() bool {
	if c.state != stateConnected {
		return false
	}

	c.pingSeq = c.nextSeq()
	c.pingSentAt = time.Now()
	c.lastPing = c.pingSentAt

	ping := protocol.New(protocol.FlagPing, c.pingSeq)
	if !c.ep.Send(protocol.Encode(ping), c.host, c.port) {
		return false
	}

	deadline := time.Now().Add(c.pingTimeout)
	for time.Now().Before(deadline) {
		in := c.recvPacket()
		if in == nil {
			time.Sleep(recvPollInterval)
			continue
		}
		if in.Flag == protocol.FlagPong && in.Seq == c.pingSeq {
			c.rtt = time.Since(c.pingSentAt)
			c.pingSentAt = time.Time{}
			return true
		}
		if pkt, surface := c.handleInbound(in); surface {
			c.queued = append(c.queued, pkt)
		}
		if c.state != stateConnected {
			return false
		}
	}
	return false
}

// KeepAlive pings when more than the keepalive interval has elapsed since
// the last ping. Call it once per application tick.
func (c *Client) KeepAlive() {
	if c.state != stateConnected {
		return
	}
	if time.Since(c.lastPing) > c.keepaliveInterval {
		c.Ping()
	}
}

// Update runs the per-tick housekeeping: stale-fragment sweep and keepalive.
func (c *Client) Update() {
	c.reasm.Sweep(time.Now())
	c.KeepAlive()
}

// Disconnect emits STOP and closes the socket. It does not wait for an
// acknowledgement.
func (c *Client) Disconnect() {
	if c.state != stateConnected && c.state != stateConnecting {
		return
	}
	stop := protocol.New(protocol.FlagStop, c.nextSeq())
	c.ep.Send(protocol.Encode(stop), c.host, c.port)
	c.close()
	util.LogInfo("disconnected from %s:%d", c.host, c.port)
}

// IsConnected reports whether the handshake completed and the connection is
// still open.
func (c *Client) IsConnected() bool {
	return c.state == stateConnected
}

// RTT returns the round-trip time measured by the most recent successful
// ping, or zero before the first one.
func (c *Client) RTT() time.Duration {
	return c.rtt
}

// PingMS returns the measured round-trip time in milliseconds.
func (c *Client) PingMS() int64 {
	return c.rtt.Milliseconds()
}

// Seq returns the running outgoing sequence number.
func (c *Client) Seq() uint16 {
	return c.seq
}

// recvPacket pulls one datagram off the socket and decodes it. FRAG frames
// are fed to the reassembler and yield a packet only when they complete a
// message. Malformed datagrams are dropped without surfacing an error.
func (c *Client) recvPacket() *protocol.Packet {
	data, _, _, ok := c.ep.Recv()
	if !ok {
		return nil
	}
	pkt, err := protocol.Decode(data)
	if err != nil {
		util.LogDebug("dropping malformed datagram: %v", err)
		return nil
	}
	if pkt.Flag == protocol.FlagFrag {
		return c.reasm.Feed(pkt)
	}
	return pkt
}

// close tears down socket state without emitting anything.
func (c *Client) close() {
	c.state = stateClosed
	c.ep.Close()
}
