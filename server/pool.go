package server

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
)

// poolShutdownID is the reserved termination-channel sentinel that stops the
// termination listener. It is never assigned to a client.
const poolShutdownID uint64 = 0

// ErrPoolFull is returned by Add when max_clients sessions are live.
var ErrPoolFull = fmt.Errorf("server: maximum number of concurrent clients reached")

type terminate struct {
	clientID uint64
}

// clientRecord is the pool's view of one session. The session goroutine
// holds the same record and polls exitRequested on every read-timeout tick.
type clientRecord struct {
	id            uint64
	remoteAddr    string
	port          int
	exitRequested atomic.Bool
}

func (r *clientRecord) info() ClientInfo {
	return ClientInfo{ID: r.id, Addr: r.remoteAddr, Port: r.port}
}

// ClientPool is the registry of live sessions. Ids are strictly monotonic
// per server instance, starting at 1, and are never recycled: the session
// port is basePort+id, and reusing an id would race the OS releasing the
// old port.
type ClientPool struct {
	basePort   int
	maxClients int

	mu      sync.Mutex
	nextID  uint64
	clients map[uint64]*clientRecord

	termCh chan terminate
	bus    *Bus

	shutdownOnce sync.Once
	done         chan struct{}
}

// NewPool creates the pool and starts its termination-listener goroutine.
// Events are published on bus; publishing with no subscriber is fine.
func NewPool(basePort, maxClients int, bus *Bus) *ClientPool {
	p := &ClientPool{
		basePort:   basePort,
		maxClients: maxClients,
		nextID:     1,
		clients:    make(map[uint64]*clientRecord),
		// Generous slack: sessions that outlive a Shutdown still push
		// their exit notification after the listener is gone.
		termCh: make(chan terminate, 2*maxClients+2),
		bus:    bus,
		done:   make(chan struct{}),
	}
	go p.terminationListener()
	return p
}

// Add admits a new client: assigns the next id, binds the session listener
// on basePort+id, spawns the session goroutine and publishes ClientAdded.
// The listener is bound before Add returns so the client's immediate
// connect to the returned port always succeeds.
func (p *ClientPool) Add(remoteAddr net.Addr, disp *SharedDispatcher) (ClientInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.clients) >= p.maxClients {
		return ClientInfo{}, ErrPoolFull
	}

	id := p.nextID
	port := p.basePort + int(id)
	if port > math.MaxUint16 {
		return ClientInfo{}, fmt.Errorf("server: session port space exhausted (id %d)", id)
	}

	ln, err := listenSessionTCP(port)
	if err != nil {
		return ClientInfo{}, fmt.Errorf("server: bind session listener: %w", err)
	}
	p.nextID++

	rec := &clientRecord{
		id:         id,
		remoteAddr: remoteAddr.String(),
		port:       port,
	}
	p.clients[id] = rec

	sess := &session{
		rec:    rec,
		ln:     ln,
		disp:   disp,
		notify: p.notifyTerminate,
	}
	go sess.run()

	p.bus.Publish(ClientAdded{Client: rec.info()})
	slog.Info("client admitted", "client", id, "addr", rec.remoteAddr, "port", port)
	return rec.info(), nil
}

// TerminateClient requests a session's exit by setting its record flag.
// It returns immediately: the session observes the flag within its read
// timeout, and the termination listener removes the record and publishes
// ClientRemoved. The session itself does not notify the pool for this exit
// path, the pool already knows.
func (p *ClientPool) TerminateClient(id uint64) error {
	p.mu.Lock()
	rec, ok := p.clients[id]
	if ok {
		rec.exitRequested.Store(true)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("server: client %d is not in the pool", id)
	}
	p.notifyTerminate(id)
	return nil
}

// Clear requests exit from every session and empties the registry without
// publishing removal events. The pool stays alive and accepts new
// admissions afterwards.
func (p *ClientPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, rec := range p.clients {
		rec.exitRequested.Store(true)
		delete(p.clients, id)
	}
}

// Shutdown is Clear plus stopping the termination listener via the reserved
// id-0 sentinel. Idempotent.
func (p *ClientPool) Shutdown() {
	p.Clear()
	p.shutdownOnce.Do(func() {
		p.termCh <- terminate{clientID: poolShutdownID}
	})
}

// Wait blocks until the termination listener has exited.
func (p *ClientPool) Wait() {
	<-p.done
}

// Snapshot returns the live clients, for the control plane.
func (p *ClientPool) Snapshot() []ClientInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	infos := make([]ClientInfo, 0, len(p.clients))
	for _, rec := range p.clients {
		infos = append(infos, rec.info())
	}
	return infos
}

// Len reports the number of live records.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// notifyTerminate pushes a removal onto the termination channel. The send
// never blocks: after Shutdown nobody drains the channel, and the buffer
// slack absorbs the stragglers.
func (p *ClientPool) notifyTerminate(id uint64) {
	select {
	case p.termCh <- terminate{clientID: id}:
	default:
		slog.Warn("termination channel full, dropping notification", "client", id)
	}
}

// terminationListener consumes session-exit notifications. Decoupling
// removal from the session goroutine means a session's exit never blocks on
// the pool mutex while it still owns its sockets, and ClientRemoved is
// published exactly once per client no matter which path terminated it.
func (p *ClientPool) terminationListener() {
	defer close(p.done)
	for t := range p.termCh {
		if t.clientID == poolShutdownID {
			return
		}

		p.mu.Lock()
		rec, ok := p.clients[t.clientID]
		if ok {
			delete(p.clients, t.clientID)
		}
		p.mu.Unlock()

		if !ok {
			// Already removed by an earlier termination message or by Clear.
			slog.Warn("termination for client not in pool", "client", t.clientID)
			continue
		}
		slog.Info("removed client", "client", t.clientID, "addr", rec.remoteAddr)
		p.bus.Publish(ClientRemoved{Client: rec.info()})
	}
}
