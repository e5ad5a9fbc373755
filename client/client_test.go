package client

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/PropzSaladaz/Laze/action"
)

func TestParseReply(t *testing.T) {
	addr, err := ParseReply("MOBILE_CONTROLLER:192.168.1.7:7878")
	assert.NilError(t, err)
	assert.Equal(t, addr, "192.168.1.7:7878")
}

func TestParseReplyRejectsGarbage(t *testing.T) {
	for _, reply := range []string{
		"",
		"MOBILE_CONTROLLER",
		"MOBILE_CONTROLLER:",
		"MOBILE_CONTROLLER:192.168.1.7",
		"MOBILE_CONTROLLER:192.168.1.7:port",
		"SOMETHING_ELSE:10.0.0.1:7878",
	} {
		_, err := ParseReply(reply)
		assert.Assert(t, err != nil, "reply %q should not parse", reply)
	}
}

// stubHandshake runs a one-shot handshake listener that admits onto a
// session listener, writes the sentinel, or closes without writing.
func stubHandshake(t *testing.T, respond func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	assert.NilError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		respond(conn)
	}()
	return ln.Addr().String()
}

func TestConnectAdmitted(t *testing.T) {
	sessLn, err := net.Listen("tcp4", "127.0.0.1:0")
	assert.NilError(t, err)
	defer sessLn.Close()
	sessPort := sessLn.Addr().(*net.TCPAddr).Port

	addr := stubHandshake(t, func(conn net.Conn) {
		data, _ := json.Marshal(handshake{Port: int32(sessPort), ServerOS: "linux"})
		conn.Write(data)
	})

	type accepted struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan accepted, 1)
	go func() {
		c, err := sessLn.Accept()
		acceptCh <- accepted{c, err}
	}()

	sess, err := Connect(addr)
	assert.NilError(t, err)
	defer sess.Close()
	assert.Equal(t, sess.ServerOS(), "linux")

	got := <-acceptCh
	assert.NilError(t, got.err)
	defer got.conn.Close()

	// The frame arrives as the concatenated wire bytes.
	assert.NilError(t, sess.Send(action.KeyPress{Key: action.KeyEnter}, action.Scroll{Delta: 3}))
	assert.NilError(t, got.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 16)
	n, err := got.conn.Read(buf)
	assert.NilError(t, err)
	assert.DeepEqual(t, buf[:n], []byte{0x00, 0x06, 0x02, 0x03})
}

func TestConnectPoolFull(t *testing.T) {
	addr := stubHandshake(t, func(conn net.Conn) {
		data, _ := json.Marshal(handshake{Port: -1, ServerOS: "linux"})
		conn.Write(data)
	})

	_, err := Connect(addr)
	assert.ErrorIs(t, err, ErrPoolFull)
}

func TestConnectNotAdmitted(t *testing.T) {
	addr := stubHandshake(t, func(conn net.Conn) {
		// Admission gate: close without writing a byte.
	})

	_, err := Connect(addr)
	assert.ErrorIs(t, err, ErrNotAdmitted)
}
