package logutil

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	dir := filepath.Join(t.TempDir(), "logs")
	path := Setup(true, dir)
	if path != filepath.Join(dir, logFileName) {
		t.Fatalf("unexpected log path %q", path)
	}
	log.Printf("hello from test")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Fatalf("log line missing, got %q", data)
	}
}

func TestSetupDisabledDiscards(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	if path := Setup(false, t.TempDir()); path != "" {
		t.Fatalf("expected no log file, got %q", path)
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logFileName)
	for i, content := range []string{"old", "older"} {
		name := path
		if i == 1 {
			name = archiveName(path, 1)
		}
		if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected current log to be moved")
	}
	one, _ := os.ReadFile(archiveName(path, 1))
	two, _ := os.ReadFile(archiveName(path, 2))
	if !bytes.Equal(one, []byte("old")) || !bytes.Equal(two, []byte("older")) {
		t.Fatalf("unexpected archives %q %q", one, two)
	}
}
