package worker

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/WatchJani/K-means/protocol"
)

const network = "tcp"

// Server : line-protocol TCP front end of a Service, one goroutine per connected peer
type Server struct {
	Service  *Service
	listener net.Listener
	mutex    sync.Mutex
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer wraps the service
func NewServer(svc *Service) *Server {
	return &Server{Service: svc, conns: make(map[net.Conn]struct{})}
}

// Listen binds the TCP address without serving yet
func (s *Server) Listen(address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ListenAndServe binds address and serves until TERMINATE or Close
func (s *Server) ListenAndServe(address string) error {
	if err := s.Listen(address); err != nil {
		return err
	}
	return s.Serve()
}

// Serve accepts peers until the server is closed
func (s *Server) Serve() error {
	log.Printf("Serving requests on: %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() {
				s.wg.Wait()
				return nil
			}
			log.Printf("--> accept failure: %v", err)
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Close stops accepting peers and drops the open connections
func (s *Server) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) isClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.conns, conn)
}

// serve a single peer: one request line, one response line
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()
	log.Printf("--> new connection from %s", conn.RemoteAddr())

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.isClosed() {
				log.Printf("--> connection to %s lost: %v", conn.RemoteAddr(), err)
			}
			return
		}
		cmd, data := protocol.ParseRequest(line)
		resp, stop := s.Service.Handle(cmd, data)
		if _, err = writer.WriteString(resp + "\n"); err == nil {
			err = writer.Flush()
		}
		if err != nil {
			log.Printf("--> could not answer %s: %v", conn.RemoteAddr(), err)
			return
		}
		if stop {
			log.Printf("--> %s requested termination", conn.RemoteAddr())
			go func() { _ = s.Close() }()
			return
		}
	}
}
