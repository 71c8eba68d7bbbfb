package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	residentHost  = "127.0.0.1"
	pingRequest   = "PING\n"
	pongResponse  = "PONG\n"
	captureVerb   = "CAPTURE"
	successStatus = "SUCCESS\n"
	errorStatus   = "ERROR\n"
)

func formatRequest(mode string) string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return captureVerb + "\n"
	}
	return captureVerb + " " + mode + "\n"
}

// parseRequest accepts "CAPTURE" with an optional mode word.
func parseRequest(line string) (Request, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != captureVerb || len(fields) > 2 {
		return Request{}, false
	}
	if len(fields) == 2 {
		return Request{Mode: strings.ToLower(fields[1])}, true
	}
	return Request{}, true
}

type tcpServer struct {
	lis       net.Listener
	incoming  chan *tcpConn
	done      chan struct{}
	closeOnce sync.Once
	port      int
}

func newTcpServer() Server {
	return &tcpServer{incoming: make(chan *tcpConn, 8), done: make(chan struct{})}
}

func (s *tcpServer) Start(ctx context.Context) error {
	if s.lis != nil {
		return nil
	}
	start, end := getPortRange()
	var lastErr error
	for port := start; port <= end; port++ {
		addr := fmt.Sprintf("%s:%d", residentHost, port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		s.lis = lis
		s.port = port
		log.Printf("singleinstance: listening on %s", addr)
		go s.acceptLoop(ctx)
		return nil
	}
	log.Printf("singleinstance: no free port in %d-%d: %v", start, end, lastErr)
	return fmt.Errorf("singleinstance: no free port in %d-%d: %w", start, end, lastErr)
}

func (s *tcpServer) Port() int { return s.port }

func (s *tcpServer) acceptLoop(ctx context.Context) {
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(3 * time.Second))
		br := bufio.NewReader(c)
		line, _ := br.ReadString('\n')
		bw := bufio.NewWriter(c)
		if line == pingRequest {
			log.Printf("singleinstance: PING from %s -> PONG", remote)
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
			continue
		}
		req, ok := parseRequest(line)
		if !ok {
			log.Printf("singleinstance: malformed request from %s: %q", remote, line)
			_, _ = bw.WriteString(errorStatus + "malformed request")
			_ = bw.Flush()
			_ = c.Close()
			continue
		}
		_ = c.SetDeadline(time.Time{})
		log.Printf("singleinstance: capture request from %s mode=%q", remote, req.Mode)
		select {
		case s.incoming <- &tcpConn{c: c, r: req, w: bw}:
		case <-s.done:
			_ = c.Close()
			return
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.lis != nil {
			_ = s.lis.Close()
		}
	})
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(path string) error {
	if _, err := tc.w.WriteString(successStatus + path); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorStatus + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
