package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvWait polls e until a datagram arrives or the deadline passes.
func recvWait(e *Endpoint, timeout time.Duration) ([]byte, string, int, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if data, host, port, ok := e.Recv(); ok {
			return data, host, port, ok
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil, "", 0, false
}

func TestSendRecvLoopback(t *testing.T) {
	var a, b Endpoint
	require.NoError(t, a.Bind(0))
	require.NoError(t, b.Bind(0))
	defer a.Close()
	defer b.Close()

	require.NotZero(t, b.LocalPort())
	assert.True(t, a.Send([]byte("ping over udp"), "127.0.0.1", b.LocalPort()))

	data, host, port, ok := recvWait(&b, time.Second)
	require.True(t, ok)
	assert.Equal(t, []byte("ping over udp"), data)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, a.LocalPort(), port)
}

func TestRecvNonBlocking(t *testing.T) {
	var e Endpoint
	require.NoError(t, e.Bind(0))
	defer e.Close()

	start := time.Now()
	_, _, _, ok := e.Recv()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "recv must not block")
}

func TestUnboundEndpoint(t *testing.T) {
	var e Endpoint
	assert.False(t, e.Send([]byte("x"), "127.0.0.1", 9))
	_, _, _, ok := e.Recv()
	assert.False(t, ok)
	assert.Zero(t, e.LocalPort())
	assert.NoError(t, e.Close())
}

func TestSendToClosedEndpoint(t *testing.T) {
	var e Endpoint
	require.NoError(t, e.Bind(0))
	require.NoError(t, e.Close())
	assert.False(t, e.Send([]byte("x"), "127.0.0.1", 9))
}
