package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryRunOnce(ctx context.Context, mode string) (bool, string, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if !ping(addr, deadline) {
			continue
		}
		conn, err := net.DialTimeout("tcp", addr, deadline)
		if err != nil {
			continue
		}
		// The resident may wait on the user dragging a selection, so only ctx bounds the reply.
		stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		path, err := exchange(conn, mode)
		stop()
		conn.Close()
		if errors.Is(err, errUnknownReply) {
			continue
		}
		return true, path, err
	}
	return false, "", nil
}

var errUnknownReply = errors.New("unknown reply from resident")

func exchange(conn net.Conn, mode string) (string, error) {
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(formatRequest(mode)); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case successStatus:
		return strings.TrimSpace(string(body)), nil
	case errorStatus:
		return "", errors.New(strings.TrimSpace(string(body)))
	default:
		return "", errUnknownReply
	}
}
