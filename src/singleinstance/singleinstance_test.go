package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func startTestServer(t *testing.T, ctx context.Context) Server {
	t.Helper()
	Configure(PortRange{Start: 49610, End: 49640})
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestServerClientRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startTestServer(t, ctx)

	type reply struct {
		delegated bool
		path      string
		err       error
	}
	replyCh := make(chan reply, 1)
	go func() {
		delegated, path, err := NewClient().TryRunOnce(ctx, "area")
		replyCh <- reply{delegated, path, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if conn.Request().Mode != "area" {
		t.Errorf("expected area request, got %q", conn.Request().Mode)
	}
	if err := conn.RespondSuccess("/tmp/Screenshot_2024-01-02_03-04-05.png"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	conn.Close()

	r := <-replyCh
	if r.err != nil || !r.delegated {
		t.Fatalf("expected delegated success, got %+v", r)
	}
	if r.path != "/tmp/Screenshot_2024-01-02_03-04-05.png" {
		t.Fatalf("unexpected path %q", r.path)
	}
}

func TestServerClientError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startTestServer(t, ctx)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryRunOnce(ctx, "")
		errCh <- err
	}()
	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if conn.Request().Mode != "" {
		t.Errorf("expected stored-mode request, got %q", conn.Request().Mode)
	}
	_ = conn.RespondError("Busy, please retry")
	conn.Close()

	if err := <-errCh; err == nil || err.Error() != "Busy, please retry" {
		t.Fatalf("expected busy error, got %v", err)
	}
}

func TestMalformedRequestIsRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startTestServer(t, ctx)

	c, err := net.DialTimeout("tcp", net.JoinHostPort(residentHost, strconv.Itoa(srv.Port())), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Write([]byte("STDOUT\n")); err != nil {
		t.Fatal(err)
	}
	status, err := bufio.NewReader(c).ReadString('\n')
	if err != nil || status != errorStatus {
		t.Fatalf("expected error status, got %q (%v)", status, err)
	}
}

func TestDetectResidentPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startTestServer(t, ctx)

	port, ok := DetectResidentPort(context.Background())
	if !ok || port != srv.Port() {
		t.Fatalf("expected resident on %d, got %d (%v)", srv.Port(), port, ok)
	}
}

func TestNoResidentMeansNoDelegation(t *testing.T) {
	Configure(PortRange{Start: 49700, End: 49702})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	delegated, _, err := NewClient().TryRunOnce(ctx, "full")
	if delegated || err != nil {
		t.Fatalf("expected no delegation, got delegated=%v err=%v", delegated, err)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line string
		want Request
		ok   bool
	}{
		{"CAPTURE\n", Request{}, true},
		{"CAPTURE full\n", Request{Mode: "full"}, true},
		{"CAPTURE AREA\n", Request{Mode: "area"}, true},
		{"CAPTURE a b\n", Request{}, false},
		{"STDOUT\n", Request{}, false},
		{"", Request{}, false},
	}
	for _, tt := range tests {
		got, ok := parseRequest(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseRequest(%q) = %+v, %v; expected %+v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
	if diff := cmp.Diff("CAPTURE area\n", formatRequest(" area ")); diff != "" {
		t.Errorf("formatRequest mismatch (-want +got):\n%s", diff)
	}
}

func TestPortRangeNormalize(t *testing.T) {
	got := PortRange{Start: 70000, End: 80}.normalize()
	if got != (PortRange{Start: 1024, End: 65535}) {
		t.Fatalf("unexpected range %+v", got)
	}
}
