package mockfeed

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func TestReplayThenDrop(t *testing.T) {
	lines := []string{",,,,AA1,,,,,,,,,,51.5,-0.12", ",,,,BB2,,,,,,,,,,1.0,2.0"}
	s, err := Start(lines, 0, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	conn, err := net.DialTimeout("tcp", s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for i, want := range lines {
		if !sc.Scan() {
			t.Fatalf("line %d: scan failed: %v", i, sc.Err())
		}
		if sc.Text() != want {
			t.Fatalf("line %d = %q, want %q", i, sc.Text(), want)
		}
	}
	if sc.Scan() {
		t.Fatalf("connection not dropped after replay, got %q", sc.Text())
	}
}

func TestHoldKeepsConnectionOpen(t *testing.T) {
	s, err := Start([]string{",,,,AA1,,,,,,,,,,51.5,-0.12"}, 0, true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	conn, err := net.DialTimeout("tcp", s.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		t.Fatalf("scan: %v", sc.Err())
	}

	// held connection closes only when the server does
	s.Close()
	if sc.Scan() {
		t.Fatalf("unexpected extra line %q", sc.Text())
	}

	s.Close() // idempotent
}
