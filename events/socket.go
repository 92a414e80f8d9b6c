package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
)

// Socket is a Sink that republishes every Record as a JSON line to every
// client connected on a Unix domain socket, adapted from the teacher's
// eventsocket.Server — same accept-loop/broadcast/remove-on-error shape,
// generalized from TCP flow open/close notifications to scrubber verdict
// events.
type Socket struct {
	recordC      chan Record
	filename     string
	clients      map[net.Conn]struct{}
	unixListener net.Listener
	mu           sync.Mutex
	servingWG    sync.WaitGroup
}

// NewSocket returns a Socket that will listen on filename once Listen is
// called.
func NewSocket(filename string) *Socket {
	return &Socket{
		filename: filename,
		recordC:  make(chan Record, 100),
		clients:  make(map[net.Conn]struct{}),
	}
}

// Emit implements Sink with a non-blocking send; a saturated internal
// channel drops the record rather than stalling the drain goroutine.
func (s *Socket) Emit(rec Record) {
	select {
	case s.recordC <- rec:
	default:
	}
}

func (s *Socket) addClient(c net.Conn) {
	log.Println("events: new socket client", c.RemoteAddr())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Socket) removeClient(c net.Conn) {
	s.servingWG.Add(1)
	defer s.servingWG.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
}

func (s *Socket) sendToAllListeners(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if _, err := fmt.Fprintln(c, data); err != nil {
			go s.removeClient(c)
			go c.Close()
		}
	}
}

func (s *Socket) notifyClients(ctx context.Context) {
	s.servingWG.Add(1)
	defer s.servingWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-s.recordC:
			if !ok {
				return
			}
			b, err := json.Marshal(rec)
			if err != nil {
				log.Println("events: bad record, could not marshal:", err)
				continue
			}
			s.sendToAllListeners(string(b))
		}
	}
}

// Listen binds the Unix domain socket. Serve must be called afterward to
// start accepting connections.
func (s *Socket) Listen() error {
	s.servingWG.Add(1)
	var err error
	s.unixListener, err = net.Listen("unix", s.filename)
	return err
}

// Serve accepts client connections until ctx is canceled.
func (s *Socket) Serve(ctx context.Context) error {
	defer s.servingWG.Done()
	derivedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.notifyClients(derivedCtx)

	s.servingWG.Add(1)
	go func() {
		<-derivedCtx.Done()
		s.unixListener.Close()
		close(s.recordC)
		s.servingWG.Done()
	}()

	var err error
	for derivedCtx.Err() == nil {
		var conn net.Conn
		conn, err = s.unixListener.Accept()
		if err != nil {
			log.Printf("events: accept on %q failed: %s\n", s.filename, err)
			break
		}
		s.addClient(conn)
	}
	return err
}
