package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	logFileName  = "snipper.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// DefaultDir is ~/Library/Logs/Snipper on macOS, else the user cache dir.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err == nil {
		if lib := filepath.Join(home, "Library", "Logs"); dirExists(lib) {
			return filepath.Join(lib, "Snipper")
		}
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "snipper")
	}
	return "."
}

// Setup enables file logging with basic size-based rotation (10MB, max 3 files) in dir.
// When disabled, logs are discarded (keeps stdout clean for --run-once output).
// It returns the log file path, or "" when logging to a file is off.
func Setup(enableFileLogging bool, dir string) string {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		return ""
	}
	path := filepath.Join(dir, logFileName)
	rotateIfNeeded(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return ""
	}
	log.SetOutput(&rotatingWriter{f: f, path: path})
	return path
}

type rotatingWriter struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotate(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded(path string) {
	if st, err := os.Stat(path); err == nil && st.Size() > maxSizeBytes {
		rotate(path)
	}
}

// rotate shifts path to .1, .2, .3; the oldest is discarded.
func rotate(path string) {
	_ = os.Remove(archiveName(path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
	}
	_ = os.Rename(path, archiveName(path, 1))
}

func archiveName(path string, n int) string { return fmt.Sprintf("%s.%d", path, n) }

func dirExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
