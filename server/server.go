package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"sync"
	"time"
)

// Config holds the server's operational knobs.
type Config struct {
	// StartingPort is the handshake port; session ports are
	// StartingPort+id.
	StartingPort int
	// MaxClients bounds concurrent sessions.
	MaxClients int
	// Discovery enables the UDP discovery responder.
	Discovery bool
	// DiscoveryPort is the UDP port the responder binds (default 7877).
	DiscoveryPort int
	// EventBuffer is the per-subscriber event capacity (default 100).
	EventBuffer int
}

// acceptPollInterval is the deadline used by the non-blocking handshake
// accept loop between termination checks.
const acceptPollInterval = time.Second

// poolFullPort is the handshake sentinel for a rejected admission.
const poolFullPort = -1

// handshakeResponse is the JSON object written to a freshly connected
// client: the dedicated session port (or -1 when the pool is full) and the
// server's OS so the client can adjust its key vocabulary.
type handshakeResponse struct {
	Port     int32  `json:"port"`
	ServerOS string `json:"server_os"`
}

// Server owns the configuration, the pool, the shared dispatcher and the
// admission/termination gates. All state mutations happen under one mutex,
// held only for point mutations, never across blocking calls.
type Server struct {
	mu                 sync.Mutex
	cfg                Config
	pool               *ClientPool
	dispatcher         *SharedDispatcher
	listeningToClients bool
	terminateSignal    bool
}

// Communicator is the front-end's handle on a running server: the request
// and response endpoints of the control plane, the event-subscribe
// capability, and the discovery responder's drop-time shutdown.
type Communicator struct {
	requests  chan<- Request
	responses <-chan Response
	bus       *Bus
	disc      *discoveryResponder
	closeOnce sync.Once
}

// Send submits a control request. Requests are processed strictly FIFO.
func (c *Communicator) Send(req Request) {
	c.requests <- req
}

// Receive blocks for the next control response. It fails once the server
// has terminated and drained.
func (c *Communicator) Receive() (Response, error) {
	resp, ok := <-c.responses
	if !ok {
		return nil, errors.New("server: control plane closed")
	}
	return resp, nil
}

// Roundtrip sends one request and waits for its response.
func (c *Communicator) Roundtrip(req Request) (Response, error) {
	c.Send(req)
	return c.Receive()
}

// Subscribe returns a subscription to the server's lifecycle events.
func (c *Communicator) Subscribe() *Subscription {
	return c.bus.Subscribe()
}

// Close stops the discovery responder. It does not terminate the server;
// send TerminateServer for that.
func (c *Communicator) Close() {
	c.closeOnce.Do(func() {
		if c.disc != nil {
			c.disc.shutdown()
		}
	})
}

// Start brings the server up and returns the front-end handle.
//
// The handshake listener bind is fatal; the discovery responder bind is
// best-effort. Admission starts closed: send InitServer to open it.
func Start(cfg Config, d Dispatcher) (*Communicator, error) {
	ln, err := listenHandshakeTCP(cfg.StartingPort)
	if err != nil {
		return nil, fmt.Errorf("server: bind handshake listener: %w", err)
	}
	slog.Info("handshake listener bound", "addr", ln.Addr().String())

	bus := NewBus(cfg.EventBuffer)
	pool := NewPool(cfg.StartingPort, cfg.MaxClients, bus)

	requests := make(chan Request, 16)
	responses := make(chan Response)
	listener := NewControlListener(requests, responses)

	go func() {
		srv := &Server{
			cfg:        cfg,
			pool:       pool,
			dispatcher: NewSharedDispatcher(d),
		}
		listener.SetProcessor(srv.process)
		handle := listener.Listen(time.Second)

		srv.acceptLoop(ln)
		slog.Info("accept loop exited")

		handle.ScheduleShutdown()
		handle.Wait()
		// Idempotent: TerminateServer already shut the pool down on the
		// normal path, but the accept loop can also exit on its own.
		pool.Shutdown()
		pool.Wait()
		close(responses)
		bus.Close()
	}()

	var disc *discoveryResponder
	if cfg.Discovery {
		port := cfg.DiscoveryPort
		if port == 0 {
			port = DiscoveryPort
		}
		disc, err = startDiscovery(port, cfg.StartingPort)
		if err != nil {
			slog.Warn("discovery responder unavailable", "err", err)
			disc = nil
		}
	}

	return &Communicator{
		requests:  requests,
		responses: responses,
		bus:       bus,
		disc:      disc,
	}, nil
}

// process is the control-plane processor installed on the listener.
func (s *Server) process(req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r := req.(type) {
	case InitServer:
		s.listeningToClients = true
		slog.Info("server admission opened")
		return ServerStarted{}, nil
	case StopServer:
		s.listeningToClients = false
		s.pool.Clear()
		slog.Info("server admission stopped, pool cleared")
		return ServerStopped{}, nil
	case TerminateServer:
		s.terminateSignal = true
		s.listeningToClients = false
		s.pool.Shutdown()
		slog.Info("server scheduled for termination")
		return ServerTerminated{}, nil
	case TerminateClient:
		if err := s.pool.TerminateClient(r.ClientID); err != nil {
			return nil, err
		}
		return ClientTerminated{ClientID: r.ClientID}, nil
	case GetClients:
		return ClientList{Clients: s.pool.Snapshot()}, nil
	default:
		return nil, fmt.Errorf("server: unknown control request %T", req)
	}
}

func (s *Server) terminating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminateSignal
}

// acceptLoop polls the handshake listener with a short deadline so the
// terminate signal is observed within one tick. It exits on that signal or
// when the accept deadline cannot be set; per-connection failures are
// logged and skipped.
func (s *Server) acceptLoop(ln *net.TCPListener) {
	defer ln.Close()
	for {
		if s.terminating() {
			slog.Info("terminating handshake accept loop")
			return
		}

		if err := ln.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			slog.Error("set accept deadline", "err", err)
			return
		}
		conn, err := ln.AcceptTCP()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			slog.Error("accept error", "err", err)
			continue
		}
		s.handleNewClient(conn)
	}
}

// handleNewClient runs the two-phase connect handshake: admit the client
// into the pool (binding its dedicated session listener) and tell it which
// port to reconnect to. When admission is gated off the connection is
// dropped without writing a byte.
func (s *Server) handleNewClient(conn *net.TCPConn) {
	defer conn.Close()

	s.mu.Lock()
	if !s.listeningToClients {
		s.mu.Unlock()
		slog.Warn("connection while not listening to clients", "addr", conn.RemoteAddr().String())
		return
	}

	port := poolFullPort
	info, err := s.pool.Add(conn.RemoteAddr(), s.dispatcher)
	if err != nil {
		slog.Error("client admission failed", "addr", conn.RemoteAddr().String(), "err", err)
	} else {
		port = info.Port
	}
	s.mu.Unlock()

	// The write happens outside the server lock; the handshake socket is
	// single-purpose and closed right after.
	data, err := json.Marshal(handshakeResponse{
		Port:     int32(port),
		ServerOS: serverOS(),
	})
	if err != nil {
		slog.Error("encode handshake response", "err", err)
		return
	}
	if _, err := conn.Write(data); err != nil {
		slog.Error("write handshake response", "addr", conn.RemoteAddr().String(), "err", err)
	}
}

// serverOS reports the host OS in the vocabulary the mobile clients expect.
func serverOS() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}
	return runtime.GOOS
}
