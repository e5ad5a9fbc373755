// Package client implements the controller side of the wire protocol:
// UDP discovery, the two-phase connect handshake, and the per-session
// action stream. The CLI and the end-to-end tests drive the server with it.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/PropzSaladaz/Laze/action"
)

// ErrPoolFull means the server answered the handshake with the -1 port
// sentinel: max_clients sessions are already live.
var ErrPoolFull = errors.New("client: server pool is full")

// ErrNotAdmitted means the server closed the handshake socket without
// writing a byte: it is up but not listening to clients.
var ErrNotAdmitted = errors.New("client: server is not accepting clients")

// handshake mirrors the server's admission response.
type handshake struct {
	Port     int32  `json:"port"`
	ServerOS string `json:"server_os"`
}

// Session is one admitted connection streaming actions to the server.
type Session struct {
	conn     net.Conn
	serverOS string
}

// Connect performs the two-phase connect: dial the handshake address, read
// the admission JSON, then dial the dedicated session port.
func Connect(addr string) (*Session, error) {
	hs, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("client: dial handshake: %w", err)
	}
	defer hs.Close()

	if err := hs.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, err
	}
	buf := make([]byte, 512)
	n, err := hs.Read(buf)
	if n == 0 {
		// EOF with zero bytes is the admission gate, not a failure of ours.
		if errors.Is(err, io.EOF) {
			return nil, ErrNotAdmitted
		}
		if err != nil {
			return nil, fmt.Errorf("client: read handshake: %w", err)
		}
		return nil, fmt.Errorf("client: empty handshake response")
	}

	var resp handshake
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return nil, fmt.Errorf("client: decode handshake: %w", err)
	}
	if resp.Port < 0 {
		return nil, ErrPoolFull
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("client: split handshake address: %w", err)
	}
	sessAddr := net.JoinHostPort(host, strconv.Itoa(int(resp.Port)))
	conn, err := net.DialTimeout("tcp", sessAddr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("client: dial session port: %w", err)
	}

	return &Session{conn: conn, serverOS: resp.ServerOS}, nil
}

// ServerOS reports the OS string the server announced in the handshake.
func (s *Session) ServerOS() string {
	return s.serverOS
}

// Send encodes the actions into one frame and writes it to the session
// socket. The server decodes concatenated actions from a single write.
func (s *Session) Send(actions ...action.Action) error {
	frame, err := action.Encode(actions...)
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("client: write frame: %w", err)
	}
	return nil
}

// Disconnect tells the server to end the session, then closes the socket.
func (s *Session) Disconnect() error {
	if err := s.Send(action.Disconnect{}); err != nil {
		s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// Close closes the session socket without notifying the server.
func (s *Session) Close() error {
	return s.conn.Close()
}

// probe is the exact discovery payload; anything else is ignored by
// servers.
const probe = "DISCOVER_MOBILE_CONTROLLER"

const replyPrefix = "MOBILE_CONTROLLER:"

// Discover broadcasts the discovery probe on udpPort and waits up to
// timeout for the first server reply. It returns the server's handshake
// address as host:port.
func Discover(udpPort int, timeout time.Duration) (string, error) {
	return discover(&net.UDPAddr{IP: net.IPv4bcast, Port: udpPort}, timeout)
}

// DiscoverAt probes one specific host instead of the broadcast address.
func DiscoverAt(host string, udpPort int, timeout time.Duration) (string, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("client: invalid discovery host %q", host)
	}
	return discover(&net.UDPAddr{IP: ip, Port: udpPort}, timeout)
}

func discover(dst *net.UDPAddr, timeout time.Duration) (string, error) {
	conn, err := listenBroadcastUDP()
	if err != nil {
		return "", fmt.Errorf("client: bind discovery socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(probe), dst); err != nil {
		return "", fmt.Errorf("client: send probe: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	buf := make([]byte, 256)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		return "", fmt.Errorf("client: no discovery reply: %w", err)
	}
	return ParseReply(string(buf[:n]))
}

// ParseReply extracts host:port from a MOBILE_CONTROLLER:<ip>:<port> reply.
func ParseReply(reply string) (string, error) {
	rest, ok := strings.CutPrefix(reply, replyPrefix)
	if !ok {
		return "", fmt.Errorf("client: unexpected discovery reply %q", reply)
	}
	ip, port, ok := strings.Cut(rest, ":")
	if !ok {
		return "", fmt.Errorf("client: malformed discovery reply %q", reply)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("client: malformed discovery port %q: %w", port, err)
	}
	return net.JoinHostPort(ip, port), nil
}
