package hero

import (
	"sync"
	"time"

	"github.com/LinkNavi/HERO/internal/endpoint"
	"github.com/LinkNavi/HERO/internal/fragment"
	"github.com/LinkNavi/HERO/internal/protocol"
	"github.com/LinkNavi/HERO/internal/util"
)

// Handler consumes one delivered packet together with its origin address.
// It borrows the server for the duration of the call — replying through the
// server from inside the handler is the intended pattern. Panics inside the
// handler are the caller's responsibility.
type Handler func(pkt *Packet, host string, port int)

// Server is the listening side of the transport. It owns the socket, the
// peer registry, and its reassembly table. Poll drives all progress; no
// background goroutines exist. The registry mutex only makes the
// observability accessors safe to call from another goroutine — Poll and
// the send methods must stay on a single goroutine.
type Server struct {
	ep      endpoint.Endpoint
	port    int
	running bool

	seq      uint16
	splitter fragment.Splitter
	reasm    *fragment.Reassembler

	mu    sync.Mutex
	peers map[string]*Peer

	staleTimeout time.Duration
}

// NewServer creates a stopped server for the given UDP port.
func NewServer(port int) *Server {
	return &Server{
		port:         port,
		reasm:        fragment.NewReassembler(DefaultReassemblyTimeout),
		peers:        make(map[string]*Peer),
		staleTimeout: DefaultStaleTimeout,
	}
}

// SetStaleTimeout overrides the idle threshold after which Poll evicts a
// peer.
func (s *Server) SetStaleTimeout(d time.Duration) { s.staleTimeout = d }

// Start binds the socket. Errors: address in use, permission denied.
func (s *Server) Start() error {
	if err := s.ep.Bind(s.port); err != nil {
		return err
	}
	s.running = true
	util.LogInfo("listening on udp port %d", s.ep.LocalPort())
	return nil
}

// Stop closes the socket. Connected peers discover the absence through
// their own keepalive failures.
func (s *Server) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.ep.Close()
	util.LogInfo("stopped")
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (s *Server) IsRunning() bool { return s.running }

// Port returns the bound port (useful when constructed with port 0).
func (s *Server) Port() int { return s.ep.LocalPort() }

// Seq returns the running outgoing sequence number.
func (s *Server) Seq() uint16 { return s.seq }

// Peers returns a snapshot of the registry.
func (s *Server) Peers() []*Peer {
	return s.peerSnapshot()
}

// ClientCount returns the number of registered peers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) nextSeq() uint16 {
	s.seq++
	return s.seq
}

// Poll drains every datagram currently queued on the socket, classifies
// each one, and delivers application packets to handler. It then sweeps
// stale reassembly records and evicts stale peers. When nothing at all was
// queued it sleeps one poll interval so that a bare `for { Poll(h) }` loop
// does not spin.
func (s *Server) Poll(handler Handler) {
	if !s.running {
		return
	}

	drained := 0
	for {
		data, host, port, ok := s.ep.Recv()
		if !ok {
			break
		}
		drained++

		pkt, err := protocol.Decode(data)
		if err != nil {
			util.LogDebug("dropping malformed datagram from %s:%d: %v", host, port, err)
			continue
		}
		if pkt.Flag == protocol.FlagFrag {
			if pkt = s.reasm.Feed(pkt); pkt == nil {
				continue
			}
		}
		s.dispatch(pkt, host, port, handler)
	}

	now := time.Now()
	s.reasm.Sweep(now)
	s.CleanupStaleClients(s.staleTimeout)

	if drained == 0 {
		time.Sleep(recvPollInterval)
	}
}

// dispatch applies the server-side classification rule to one logical
// packet. PING is answered with a PONG, SEEN and PONG are never answered;
// everything else accepted from a peer is answered with exactly one SEEN
// carrying its sequence.
func (s *Server) dispatch(pkt *protocol.Packet, host string, port int, handler Handler) {
	now := time.Now()

	switch pkt.Flag {
	case protocol.FlagConn:
		s.upsertPeer(pkt, host, port, now)
		s.ack(pkt.Seq, host, port)

	case protocol.FlagStop:
		s.ack(pkt.Seq, host, port)
		s.removePeer(host, port)

	case protocol.FlagPing:
		if p := s.lookupPeer(host, port); p != nil {
			p.LastPing = now
			p.LastSeen = now
		}
		pong := protocol.New(protocol.FlagPong, pkt.Seq)
		s.ep.Send(protocol.Encode(pong), host, port)

	case protocol.FlagSeen, protocol.FlagPong:
		// Acks of our own sends; consumed without reply.

	default:
		if p := s.lookupPeer(host, port); p != nil {
			p.LastSeen = now
		}
		s.ack(pkt.Seq, host, port)
		handler(pkt, host, port)
	}
}

// ack emits one SEEN for the given inbound sequence number.
func (s *Server) ack(seq uint16, host string, port int) {
	seen := protocol.New(protocol.FlagSeen, seq)
	s.ep.Send(protocol.Encode(seen), host, port)
	util.Stats.CountAck()
}

// SendTo transmits payload to one peer address, fragmenting transparently.
func (s *Server) SendTo(host string, port int, payload []byte) bool {
	if !s.running {
		return false
	}

	if !fragment.Oversize(payload) {
		pkt := protocol.New(protocol.FlagGive, s.nextSeq())
		pkt.Payload = payload
		return s.ep.Send(protocol.Encode(pkt), host, port)
	}

	ok := true
	for _, fp := range s.splitter.Split(payload, protocol.FlagGive) {
		ok = s.ep.Send(protocol.Encode(fp), host, port) && ok
		time.Sleep(fragmentPacing)
	}
	return ok
}

// SendTextTo sends a UTF-8 string payload to one peer address.
func (s *Server) SendTextTo(host string, port int, text string) bool {
	return s.SendTo(host, port, []byte(text))
}

// SendCommandTo encodes and sends a mnemonic command to one peer address.
func (s *Server) SendCommandTo(host string, port int, mnemonic string, args ...string) bool {
	return s.SendTo(host, port, EncodeCommand(mnemonic, args...))
}

// Reply answers a delivered packet, carrying the inbound requirements back
// as the routing key. An oversize payload is fragmented through SendTo and
// carries no routing key. Intended for use inside a Poll handler.
func (s *Server) Reply(pkt *Packet, payload []byte, host string, port int) bool {
	if !s.running {
		return false
	}
	if fragment.Oversize(payload) {
		return s.SendTo(host, port, payload)
	}
	out := protocol.New(protocol.FlagGive, s.nextSeq())
	out.Requirements = pkt.Requirements
	out.Payload = payload
	return s.ep.Send(protocol.Encode(out), host, port)
}

// Broadcast sends payload to every registered peer, fragmenting per peer.
// Returns true only when every send succeeded.
func (s *Server) Broadcast(payload []byte) bool {
	ok := true
	for _, p := range s.peerSnapshot() {
		ok = s.SendTo(p.Host, p.Port, payload) && ok
	}
	return ok
}

// BroadcastText sends a UTF-8 string payload to every registered peer.
func (s *Server) BroadcastText(text string) bool {
	return s.Broadcast([]byte(text))
}

// BroadcastCommand encodes and sends a mnemonic command to every peer.
func (s *Server) BroadcastCommand(mnemonic string, args ...string) bool {
	return s.Broadcast(EncodeCommand(mnemonic, args...))
}

// CleanupStaleClients evicts peers whose last accepted inbound is older
// than timeout.
func (s *Server) CleanupStaleClients(timeout time.Duration) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, p := range s.peers {
		if now.Sub(p.LastSeen) > timeout {
			util.LogInfo("evicting stale peer %s", addr)
			delete(s.peers, addr)
			util.Stats.RemovePeer()
		}
	}
}

// upsertPeer registers a peer from its CONN packet, replacing any previous
// record for the same address.
func (s *Server) upsertPeer(pkt *protocol.Packet, host string, port int, now time.Time) {
	p := &Peer{
		Host:     host,
		Port:     port,
		Key:      append([]byte(nil), pkt.Requirements...),
		LastSeen: now,
		LastPing: now,
	}

	s.mu.Lock()
	_, existed := s.peers[p.Addr()]
	s.peers[p.Addr()] = p
	s.mu.Unlock()

	if !existed {
		util.Stats.AddPeer()
		util.LogInfo("peer %s connected", p.Addr())
	}
}

func (s *Server) lookupPeer(host string, port int) *Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[peerAddr(host, port)]
}

func (s *Server) removePeer(host string, port int) {
	addr := peerAddr(host, port)
	s.mu.Lock()
	_, existed := s.peers[addr]
	delete(s.peers, addr)
	s.mu.Unlock()

	if existed {
		util.Stats.RemovePeer()
		util.LogInfo("peer %s disconnected", addr)
	}
}

// peerSnapshot copies the registry for iteration outside the lock.
func (s *Server) peerSnapshot() []*Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}
