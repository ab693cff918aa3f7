// Package endpoint wraps a UDP socket in the thin non-blocking surface the
// connection cores poll against: bind, one-shot send, one-shot recv. It does
// not interpret bytes and keeps no state beyond the socket itself.
package endpoint

import (
	"fmt"
	"net"
	"time"

	"github.com/LinkNavi/HERO/internal/util"
)

// MaxDatagramSize is the largest UDP payload a single recv can surface
// (the IPv4 UDP limit).
const MaxDatagramSize = 65507

// recvBufferSize is requested for the socket receive buffer at bind time so
// that an unpaced burst of large fragments does not overflow the OS default.
const recvBufferSize = 4 << 20

// Endpoint is a non-blocking unicast datagram socket. It is exclusively
// owned by one connection core and is not internally synchronized.
type Endpoint struct {
	conn *net.UDPConn
	buf  [MaxDatagramSize]byte
}

// Bind associates the endpoint with a local UDP port. Port 0 lets the OS
// pick an ephemeral port (used by clients).
func (e *Endpoint) Bind(port int) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return fmt.Errorf("bind udp port %d: %w", port, err)
	}
	// Best effort — a smaller buffer only raises the drop rate under burst.
	_ = conn.SetReadBuffer(recvBufferSize)
	e.conn = conn
	return nil
}

// LocalPort returns the bound port, or 0 when unbound.
func (e *Endpoint) LocalPort() int {
	if e.conn == nil {
		return 0
	}
	return e.conn.LocalAddr().(*net.UDPAddr).Port
}

// Send attempts a single sendto and reports whether the OS accepted the
// bytes. There is no retry at this layer.
func (e *Endpoint) Send(data []byte, host string, port int) bool {
	if e.conn == nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil || len(addrs) == 0 {
			util.LogDebug("send: cannot resolve %q: %v", host, err)
			return false
		}
		ip = addrs[0]
	}
	n, err := e.conn.WriteToUDP(data, &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		util.LogDebug("send to %s:%d failed: %v", host, port, err)
		return false
	}
	util.Stats.CountSent(n)
	return n == len(data)
}

// Recv performs a single recvfrom. A datagram already queued is returned at
// once; when none is waiting it returns ok=false after waiting at most about
// one millisecond. It never loops internally.
func (e *Endpoint) Recv() (data []byte, host string, port int, ok bool) {
	if e.conn == nil {
		return nil, "", 0, false
	}
	// A deadline just ahead of now turns the blocking read into a poll. A
	// deadline at or before now would fail the read without attempting it,
	// even with a datagram queued.
	_ = e.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	n, addr, err := e.conn.ReadFromUDP(e.buf[:])
	if err != nil {
		if ne, isNet := err.(net.Error); !isNet || !ne.Timeout() {
			util.LogDebug("recv failed: %v", err)
		}
		return nil, "", 0, false
	}
	data = make([]byte, n)
	copy(data, e.buf[:n])
	util.Stats.CountRecv(n)
	return data, addr.IP.String(), addr.Port, true
}

// Close releases the socket. Further Send/Recv calls report failure.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}
