package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"
)

var running atomic.Bool

// keycodes maps key names to libuiohook keycodes. Swapped in tests.
var keycodes = gohook.Keycode

// rightVariants names the right-hand twin of each modifier, so either side triggers.
var rightVariants = map[string]string{
	"ctrl":  "rctrl",
	"shift": "rshift",
	"alt":   "ralt",
	"cmd":   "rcmd",
}

// Listen registers combo (e.g. "Ctrl+Shift+S") and calls callback each time every key of it
// is held down at once. It returns an error when no key of the combo can be mapped.
func Listen(hotkeyConfig string, callback func()) error {
	c, err := newCombo(hotkeyConfig)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return err
	}
	log.Printf("Hotkey listener configured for: %s", hotkeyConfig)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		running.Store(true)

		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				if c.press(ev.Keycode) {
					log.Printf("Hotkey activated: %s", hotkeyConfig)
					if callback != nil {
						callback()
					}
				}
			case gohook.KeyUp:
				c.release(ev.Keycode)
			}
		}
		log.Printf("Event channel closed")
	}()
	return nil
}

// Stop ends the global hook started by Listen. It is a no-op when no hook runs.
func Stop() {
	if running.CompareAndSwap(true, false) {
		gohook.End()
	}
}

// combo tracks which keys of one hotkey are currently held.
type combo struct {
	mu   sync.Mutex
	keys []keyState
}

type keyState struct {
	name    string
	codes   []uint16
	pressed bool
}

func newCombo(hotkeyConfig string) (*combo, error) {
	c := &combo{}
	for _, name := range parseHotkey(hotkeyConfig) {
		codes := keyNameToKeycodes(name)
		if len(codes) == 0 {
			log.Printf("ERROR: Cannot map key '%s' to keycodes, hotkey may not work correctly", name)
			continue
		}
		c.keys = append(c.keys, keyState{name: name, codes: codes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("no valid keys in hotkey configuration %q", hotkeyConfig)
	}
	return c, nil
}

// press marks code as held and reports whether that completed the combination.
// States reset on a match so holding the keys fires once.
func (c *combo) press(code uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := false
	for i := range c.keys {
		if c.keys[i].has(code) {
			c.keys[i].pressed = true
			matched = true
		}
	}
	if !matched {
		return false
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) release(code uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.keys {
		if c.keys[i].has(code) {
			c.keys[i].pressed = false
		}
	}
}

func (k keyState) has(code uint16) bool {
	for _, c := range k.codes {
		if c == code {
			return true
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Ctrl+Shift+s" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "option", "opt":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "command", "super", "meta":
			keys = append(keys, "cmd")
		case "return":
			keys = append(keys, "enter")
		case "escape":
			keys = append(keys, "esc")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// keyNameToKeycodes returns the keycodes for a key name, both sides for modifiers.
func keyNameToKeycodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	code, ok := keycodes[keyName]
	if !ok {
		log.Printf("WARNING: Unknown key name '%s', cannot map to keycode", keyName)
		return nil
	}
	codes := []uint16{code}
	if right, ok := rightVariants[keyName]; ok {
		if rc, ok := keycodes[right]; ok && rc != code {
			codes = append(codes, rc)
		}
	}
	return codes
}
