// Package mockfeed serves a scripted SBS feed over TCP for tests and local
// development, standing in for a dump1090 BaseStation output port.
package mockfeed

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Server replays a fixed set of feed lines to every client that connects.
type Server struct {
	ln       net.Listener
	lines    []string
	interval time.Duration
	hold     bool

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Start listens on an ephemeral localhost port. With a non-zero interval the
// replay is paced one line per tick. With hold the connection stays open
// after the replay until the server is closed; without it the connection is
// dropped, like an upstream going away mid-session.
func Start(lines []string, interval time.Duration, hold bool) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:       ln,
		lines:    lines,
		interval: interval,
		hold:     hold,
		conns:    make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.accept()
	return s, nil
}

// Addr returns the dialable address of the feed.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops the listener and drops every open connection.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.ln.Close()
	s.wg.Wait()
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	for _, line := range s.lines {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			s.drop(conn)
			return
		}
		if s.interval > 0 {
			time.Sleep(s.interval)
		}
	}
	if !s.hold {
		s.drop(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) drop(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}
