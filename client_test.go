package hero_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hero "github.com/LinkNavi/HERO"
	"github.com/LinkNavi/HERO/internal/endpoint"
	"github.com/LinkNavi/HERO/internal/protocol"
)

// newTestServer starts a server on an ephemeral port and stops it when the
// test ends.
func newTestServer(t *testing.T) *hero.Server {
	t.Helper()
	srv := hero.NewServer(0)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

// runPoll drives srv.Poll(handler) on a background goroutine until the test
// ends. The server must only be touched from handler after this call.
func runPoll(t *testing.T, srv *hero.Server, handler hero.Handler) {
	t.Helper()

	if handler == nil {
		handler = func(*hero.Packet, string, int) {}
	}

	var stopped atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for !stopped.Load() {
			srv.Poll(handler)
		}
	}()

	t.Cleanup(func() {
		stopped.Store(true)
		<-done
	})
}

// startServer is newTestServer + runPoll for tests that do not reply.
func startServer(t *testing.T, handler hero.Handler) *hero.Server {
	t.Helper()
	srv := newTestServer(t)
	runPoll(t, srv, handler)
	return srv
}

// connectClient connects a fresh client to srv and fails the test when the
// handshake does not complete.
func connectClient(t *testing.T, srv *hero.Server, key []byte) *hero.Client {
	t.Helper()
	c := hero.NewClient()
	c.SetConnectTimeout(2 * time.Second)
	require.True(t, c.Connect("127.0.0.1", srv.Port(), key))
	t.Cleanup(c.Disconnect)
	return c
}

// recvGive polls Receive until a GIVE arrives, skipping surfaced SEEN acks.
func recvGive(c *hero.Client, timeout time.Duration) (*hero.Packet, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pkt, ok := c.Receive(50 * time.Millisecond); ok && pkt.Flag == hero.FlagGive {
			return pkt, true
		}
	}
	return nil, false
}

// rawRecv polls a bare endpoint until a decodable packet arrives.
func rawRecv(e *endpoint.Endpoint, timeout time.Duration) (*protocol.Packet, string, int, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data, host, port, ok := e.Recv()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if pkt, err := protocol.Decode(data); err == nil {
			return pkt, host, port, true
		}
	}
	return nil, "", 0, false
}

func TestConnectHandshake(t *testing.T) {
	srv := startServer(t, nil)

	key := []byte("identity-bytes")
	c := connectClient(t, srv, key)
	assert.True(t, c.IsConnected())

	require.Eventually(t, func() bool { return srv.ClientCount() == 1 },
		2*time.Second, 20*time.Millisecond)

	peers := srv.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, key, peers[0].Key, "peer key is copied from the CONN requirements")
}

func TestConnectPlaceholderKey(t *testing.T) {
	srv := startServer(t, nil)

	connectClient(t, srv, nil)
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 },
		2*time.Second, 20*time.Millisecond)

	peers := srv.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, peers[0].Key)
}

func TestConnectTimeout(t *testing.T) {
	c := hero.NewClient()
	c.SetConnectTimeout(300 * time.Millisecond)

	start := time.Now()
	assert.False(t, c.Connect("127.0.0.1", 1, nil), "nothing listens on port 1")
	assert.WithinDuration(t, start.Add(300*time.Millisecond), time.Now(), 500*time.Millisecond)
	assert.False(t, c.IsConnected())
}

func TestNotConnectedStateErrors(t *testing.T) {
	c := hero.NewClient()

	assert.False(t, c.Send([]byte("payload")))
	assert.False(t, c.Ping())
	_, ok := c.Receive(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestEcho(t *testing.T) {
	srv := newTestServer(t)
	runPoll(t, srv, func(pkt *hero.Packet, host string, port int) {
		if pkt.Flag != hero.FlagGive || len(pkt.Payload) == 0 {
			return
		}
		srv.Reply(pkt, append([]byte("Echo: "), pkt.Payload...), host, port)
	})

	c := connectClient(t, srv, nil)
	require.True(t, c.SendText("hello"))

	pkt, ok := recvGive(c, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "Echo: hello", string(pkt.Payload))
}

func TestClientAcksServerGive(t *testing.T) {
	var fake endpoint.Endpoint
	require.NoError(t, fake.Bind(0))
	defer fake.Close()

	type ackResult struct {
		seq uint16
		ok  bool
	}
	acked := make(chan ackResult, 1)

	// A hand-rolled server: complete the handshake, push one GIVE, then
	// report the SEEN the client answers with.
	go func() {
		pkt, host, port, ok := rawRecv(&fake, 2*time.Second)
		if !ok || pkt.Flag != protocol.FlagConn {
			acked <- ackResult{}
			return
		}
		fake.Send(protocol.Encode(protocol.New(protocol.FlagSeen, pkt.Seq)), host, port)

		give := protocol.New(protocol.FlagGive, 99)
		give.Payload = []byte("from server")
		fake.Send(protocol.Encode(give), host, port)

		for {
			in, _, _, ok := rawRecv(&fake, 2*time.Second)
			if !ok {
				acked <- ackResult{}
				return
			}
			if in.Flag == protocol.FlagSeen {
				acked <- ackResult{seq: in.Seq, ok: true}
				return
			}
		}
	}()

	c := hero.NewClient()
	c.SetConnectTimeout(2 * time.Second)
	require.True(t, c.Connect("127.0.0.1", fake.LocalPort(), nil))

	pkt, ok := recvGive(c, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "from server", string(pkt.Payload))
	assert.Equal(t, uint16(99), pkt.Seq)

	res := <-acked
	require.True(t, res.ok, "client must acknowledge the GIVE")
	assert.Equal(t, uint16(99), res.seq, "the SEEN carries the inbound sequence")
}

func TestPingMeasuresRTT(t *testing.T) {
	srv := startServer(t, nil)
	c := connectClient(t, srv, nil)

	require.True(t, c.Ping())
	assert.Greater(t, c.RTT(), time.Duration(0))
	assert.Less(t, c.RTT(), time.Second)
	assert.GreaterOrEqual(t, c.PingMS(), int64(0))
	assert.LessOrEqual(t, c.PingMS(), int64(1000))
}

func TestKeepAlive(t *testing.T) {
	srv := startServer(t, nil)
	c := connectClient(t, srv, nil)
	c.SetKeepaliveInterval(100 * time.Millisecond)

	// Immediately after connecting the interval has not elapsed.
	c.KeepAlive()
	assert.Equal(t, time.Duration(0), c.RTT())

	time.Sleep(150 * time.Millisecond)
	c.KeepAlive()
	assert.Greater(t, c.RTT(), time.Duration(0), "keepalive pinged and measured the round trip")
}

func TestSequenceAdvances(t *testing.T) {
	srv := startServer(t, nil)
	c := connectClient(t, srv, nil)

	before := c.Seq()
	require.True(t, c.SendText("one"))
	require.True(t, c.SendText("two"))
	assert.Equal(t, before+2, c.Seq())
}
