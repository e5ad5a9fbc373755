//go:build !unix

package client

import "net"

// listenBroadcastUDP opens an ephemeral UDP socket. Without the unix
// sockopt shim the broadcast flag is left to the platform default; unicast
// probes via DiscoverAt still work everywhere.
func listenBroadcastUDP() (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
}
