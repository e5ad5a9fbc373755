package server

import (
	"errors"
	"log/slog"
	"net"
	"time"
)

// sessionReadTimeout bounds the latency with which a server-initiated
// termination takes effect while keeping per-session CPU negligible.
const sessionReadTimeout = time.Second

// sessionReadBuffer is the per-read ceiling. Each read is dispatched on its
// own; an action cut off at the end of a read fails to decode and ends the
// session as an unexpected exit.
const sessionReadBuffer = 1024

type exitReason int

const (
	exitRequestedByClient exitReason = iota
	exitRequestedByServer
	exitUnexpected
)

func (r exitReason) String() string {
	switch r {
	case exitRequestedByClient:
		return "requested by client"
	case exitRequestedByServer:
		return "requested by server"
	default:
		return "unexpected"
	}
}

var errExitRequested = errors.New("server: session exit requested")

// session is the per-client goroutine. It owns a dedicated TCP listener on
// basePort+id, waits for the client's second-phase connection, then reads
// and dispatches the action stream until one of the three exit paths fires.
type session struct {
	rec    *clientRecord
	ln     *net.TCPListener
	disp   *SharedDispatcher
	notify func(id uint64)
}

func (s *session) run() {
	reason := s.serve()
	slog.Info("session exited", "client", s.rec.id, "reason", reason.String())

	// The pool set the flag for server-requested exits, so it already
	// knows; notifying again would double-remove.
	if reason != exitRequestedByServer {
		s.notify(s.rec.id)
	}
}

func (s *session) serve() exitReason {
	defer s.ln.Close()

	conn, err := s.acceptClient()
	if err != nil {
		if errors.Is(err, errExitRequested) {
			return exitRequestedByServer
		}
		slog.Error("session accept failed", "client", s.rec.id, "err", err)
		return exitUnexpected
	}
	defer conn.Close()

	buf := make([]byte, sessionReadBuffer)
	for {
		if s.rec.exitRequested.Load() {
			return exitRequestedByServer
		}

		if err := conn.SetReadDeadline(time.Now().Add(sessionReadTimeout)); err != nil {
			slog.Error("session set read deadline", "client", s.rec.id, "err", err)
			return exitUnexpected
		}

		n, err := conn.Read(buf)
		if n > 0 {
			status, derr := s.disp.Dispatch(buf[:n])
			if derr != nil {
				slog.Error("session dispatch failed", "client", s.rec.id, "err", derr)
				return exitUnexpected
			}
			if status == Disconnected {
				return exitRequestedByClient
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			slog.Info("session read ended", "client", s.rec.id, "err", err)
			return exitUnexpected
		}
	}
}

// acceptClient waits for the second-phase connection, polling the exit flag
// on every deadline tick so a termination during the listening state is
// honoured too.
func (s *session) acceptClient() (*net.TCPConn, error) {
	for {
		if s.rec.exitRequested.Load() {
			return nil, errExitRequested
		}
		if err := s.ln.SetDeadline(time.Now().Add(sessionReadTimeout)); err != nil {
			return nil, err
		}
		conn, err := s.ln.AcceptTCP()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return nil, err
		}
		return conn, nil
	}
}
