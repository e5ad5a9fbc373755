//go:build unix

package client

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenBroadcastUDP opens an ephemeral UDP socket allowed to send to the
// broadcast address.
func listenBroadcastUDP() (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
