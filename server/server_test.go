package server

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/PropzSaladaz/Laze/action"
	"github.com/PropzSaladaz/Laze/client"
)

func startTestServer(t *testing.T, port, maxClients int) (*Communicator, *fakeDispatcher) {
	t.Helper()
	fake := &fakeDispatcher{}
	comm, err := Start(Config{
		StartingPort: port,
		MaxClients:   maxClients,
		Discovery:    false,
	}, fake)
	assert.NilError(t, err)
	t.Cleanup(func() {
		resp, err := comm.Roundtrip(TerminateServer{})
		if err == nil {
			assert.DeepEqual(t, resp, Response(ServerTerminated{}))
		}
		// Drain until the control plane closes so the next test can rebind.
		for {
			if _, err := comm.Receive(); err != nil {
				break
			}
		}
		comm.Close()
	})
	return comm, fake
}

func handshakeAddr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func TestServerHandshakeAdmit(t *testing.T) {
	const port = 42810
	comm, fake := startTestServer(t, port, 2)

	resp, err := comm.Roundtrip(InitServer{})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ServerStarted{}))

	sess, err := client.Connect(handshakeAddr(port))
	assert.NilError(t, err)
	defer sess.Close()
	assert.Assert(t, sess.ServerOS() != "", "handshake must carry the server OS")

	// Scroll(+3) over the dedicated session socket reaches the dispatcher
	// as the literal frame bytes.
	assert.NilError(t, sess.Send(action.Scroll{Delta: 3}))
	waitFor(t, "scroll dispatch", func() bool { return fake.frameCount() > 0 })
	assert.DeepEqual(t, fake.lastFrame(), []byte{0x02, 0x03})
}

func TestServerHandshakeRefuseWhenStopped(t *testing.T) {
	const port = 42820
	comm, _ := startTestServer(t, port, 2)

	// Admission starts closed; a connect sees EOF with zero bytes.
	_, err := client.Connect(handshakeAddr(port))
	assert.ErrorIs(t, err, client.ErrNotAdmitted)

	resp, err := comm.Roundtrip(InitServer{})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ServerStarted{}))

	sess, err := client.Connect(handshakeAddr(port))
	assert.NilError(t, err)
	sess.Close()

	resp, err = comm.Roundtrip(StopServer{})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ServerStopped{}))

	_, err = client.Connect(handshakeAddr(port))
	assert.ErrorIs(t, err, client.ErrNotAdmitted)

	// StopServer is idempotent.
	resp, err = comm.Roundtrip(StopServer{})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ServerStopped{}))
}

func TestServerPoolFullSentinel(t *testing.T) {
	const port = 42830
	comm, _ := startTestServer(t, port, 1)

	_, err := comm.Roundtrip(InitServer{})
	assert.NilError(t, err)

	first, err := client.Connect(handshakeAddr(port))
	assert.NilError(t, err)
	defer first.Close()

	_, err = client.Connect(handshakeAddr(port))
	assert.ErrorIs(t, err, client.ErrPoolFull)
}

func TestServerTerminateClientRoundtrip(t *testing.T) {
	const port = 42840
	comm, _ := startTestServer(t, port, 2)
	sub := comm.Subscribe()

	_, err := comm.Roundtrip(InitServer{})
	assert.NilError(t, err)

	sess, err := client.Connect(handshakeAddr(port))
	assert.NilError(t, err)
	defer sess.Close()

	ev := recvEvent(t, sub)
	added, ok := ev.(ClientAdded)
	assert.Assert(t, ok, "expected ClientAdded, got %T", ev)

	list, err := comm.Roundtrip(GetClients{})
	assert.NilError(t, err)
	clients, ok := list.(ClientList)
	assert.Assert(t, ok)
	assert.Equal(t, len(clients.Clients), 1)
	assert.Equal(t, clients.Clients[0].ID, added.Client.ID)

	// Response first, removal event second.
	resp, err := comm.Roundtrip(TerminateClient{ClientID: added.Client.ID})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ClientTerminated{ClientID: added.Client.ID}))

	ev = recvEvent(t, sub)
	removed, ok := ev.(ClientRemoved)
	assert.Assert(t, ok, "expected ClientRemoved, got %T", ev)
	assert.Equal(t, removed.Client.ID, added.Client.ID)

	// Unknown id surfaces as an Error response, and the listener survives.
	resp, err = comm.Roundtrip(TerminateClient{ClientID: 999})
	assert.NilError(t, err)
	_, ok = resp.(Error)
	assert.Assert(t, ok, "expected Error, got %T", resp)
}

func TestServerTerminate(t *testing.T) {
	const port = 42850
	fake := &fakeDispatcher{}
	comm, err := Start(Config{StartingPort: port, MaxClients: 2, Discovery: false}, fake)
	assert.NilError(t, err)
	defer comm.Close()

	resp, err := comm.Roundtrip(TerminateServer{})
	assert.NilError(t, err)
	assert.DeepEqual(t, resp, Response(ServerTerminated{}))

	// The accept loop observes the signal within one poll tick and the
	// control plane drains and closes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, err := comm.Receive()
		if err != nil {
			break
		}
		assert.Assert(t, time.Now().Before(deadline), "control plane did not close")
	}

	// The handshake port is released.
	waitFor(t, "handshake port release", func() bool {
		_, err := client.Connect(handshakeAddr(port))
		return err != nil && !errors.Is(err, client.ErrNotAdmitted)
	})
}
