package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	settingsFileName = "settings.json"
	watchDebounce    = 150 * time.Millisecond
	subscriberBuffer = 8
)

type values struct {
	SavePath    string `json:"savePath,omitempty"`
	CaptureMode Mode   `json:"captureMode,omitempty"`
}

// FileStore persists settings as JSON and publishes changes to subscribers.
type FileStore struct {
	path string

	mu      sync.RWMutex
	current values

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Change
}

// DefaultPath returns settings.json under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "snipper", settingsFileName)
}

// DefaultSavePath is the Snipper folder in the user's pictures directory,
// or in the home directory when there is no pictures directory.
func DefaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "Snipper")
	}
	pictures := filepath.Join(home, "Pictures")
	if st, err := os.Stat(pictures); err == nil && st.IsDir() {
		return filepath.Join(pictures, "Snipper")
	}
	return filepath.Join(home, "Snipper")
}

// Open loads the store at path. A missing file yields defaults and is not an error.
func Open(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &FileStore{path: path, subs: map[int]chan Change{}}
	v, err := readValues(path)
	if err != nil {
		return nil, err
	}
	s.current = v
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func readValues(path string) (values, error) {
	var v values
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("read settings %s: %w", path, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return v, nil
}

func (s *FileStore) CaptureMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.CaptureMode.Valid() {
		return ModeFull
	}
	return s.current.CaptureMode
}

func (s *FileStore) SetCaptureMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid capture mode %q", m)
	}
	s.mu.Lock()
	next := s.current
	next.CaptureMode = m
	old, err := s.commitLocked(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if old.CaptureMode != m {
		s.publish(Change{Key: KeyCaptureMode, Mode: m})
	}
	return nil
}

func (s *FileStore) SavePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.SavePath == "" {
		return DefaultSavePath()
	}
	return s.current.SavePath
}

func (s *FileStore) SetSavePath(path string) error {
	s.mu.Lock()
	next := s.current
	next.SavePath = path
	old, err := s.commitLocked(next)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if old.SavePath != path {
		s.publish(Change{Key: KeySavePath, Path: s.SavePath()})
	}
	return nil
}

// commitLocked writes v and only then makes it current. On error the store keeps its old
// values. It returns the values that were current before.
func (s *FileStore) commitLocked(v values) (values, error) {
	old := s.current
	if err := s.saveLocked(v); err != nil {
		return old, err
	}
	s.current = v
	return old, nil
}

// saveLocked merges v into the file, keeping unknown keys.
func (s *FileStore) saveLocked(v values) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	payload := map[string]any{}
	if existing, err := os.ReadFile(s.path); err == nil {
		_ = json.Unmarshal(existing, &payload)
	}
	if v.SavePath != "" {
		payload["savePath"] = v.SavePath
	} else {
		delete(payload, "savePath")
	}
	if v.CaptureMode != "" {
		payload["captureMode"] = string(v.CaptureMode)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *FileStore) Subscribe() (<-chan Change, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan Change, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *FileStore) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- c:
		default:
			log.Printf("settings: subscriber %d is full, dropping %s", id, c)
		}
	}
}

// reload re-reads the file and publishes whatever differs from memory.
func (s *FileStore) reload() {
	v, err := readValues(s.path)
	if err != nil {
		log.Printf("settings: reload failed: %v", err)
		return
	}

	s.mu.Lock()
	old := s.current
	s.current = v
	s.mu.Unlock()

	if old.CaptureMode != v.CaptureMode && v.CaptureMode.Valid() {
		s.publish(Change{Key: KeyCaptureMode, Mode: v.CaptureMode, Extern: true})
	}
	if old.SavePath != v.SavePath {
		s.publish(Change{Key: KeySavePath, Path: s.SavePath(), Extern: true})
	}
}

// Watch follows edits made to the settings file by other processes until ctx is done.
func (s *FileStore) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				s.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("settings: watcher error: %v", err)
			}
		}
	}()
	return nil
}
