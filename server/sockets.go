package server

import (
	"context"
	"fmt"
	"net"
)

// The handshake and session ports are deterministic (base and base+id), so
// listeners are created with SO_REUSEADDR: a terminated session's port must
// be rebindable for the next server run without waiting out TIME_WAIT.
// The discovery socket additionally enables SO_BROADCAST, since probes
// arrive on the broadcast address.

func listenHandshakeTCP(port int) (*net.TCPListener, error) {
	return listenTCP(port)
}

func listenSessionTCP(port int) (*net.TCPListener, error) {
	return listenTCP(port)
}

func listenTCP(port int) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return ln.(*net.TCPListener), nil
}

func listenDiscoveryUDP(port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
