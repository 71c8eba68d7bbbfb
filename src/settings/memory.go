package settings

import "sync"

// Memory is a non-persistent Store, used by the standalone run-once path and tests.
type Memory struct {
	mu   sync.Mutex
	mode Mode
	path string
	subs []chan Change
}

func NewMemory(mode Mode, savePath string) *Memory {
	if !mode.Valid() {
		mode = ModeFull
	}
	return &Memory{mode: mode, path: savePath}
}

func (m *Memory) CaptureMode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Memory) SetCaptureMode(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == mode {
		return nil
	}
	m.mode = mode
	m.notifyLocked(Change{Key: KeyCaptureMode, Mode: mode})
	return nil
}

func (m *Memory) SavePath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == "" {
		return DefaultSavePath()
	}
	return m.path
}

func (m *Memory) SetSavePath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path == path {
		return nil
	}
	m.path = path
	m.notifyLocked(Change{Key: KeySavePath, Path: path})
	return nil
}

func (m *Memory) Subscribe() (<-chan Change, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Change, subscriberBuffer)
	m.subs = append(m.subs, ch)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, c := range m.subs {
				if c == ch {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

func (m *Memory) notifyLocked(c Change) {
	for _, ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
