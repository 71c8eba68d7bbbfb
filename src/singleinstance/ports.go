package singleinstance

import (
	"os"
	"strconv"
	"sync"
)

// PortRange is the inclusive loopback port range a resident may own.
type PortRange struct {
	Start int
	End   int
}

var DefaultPortRange = PortRange{Start: 49500, End: 49550}

var (
	rangeMu    sync.RWMutex
	configured *PortRange
)

// Configure overrides the range for this process. Without it the
// SINGLEINSTANCE_PORT_START/END environment variables apply. A zero range clears the override.
func Configure(r PortRange) {
	rangeMu.Lock()
	defer rangeMu.Unlock()
	if r == (PortRange{}) {
		configured = nil
		return
	}
	r = r.normalize()
	configured = &r
}

func (r PortRange) normalize() PortRange {
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 1024 {
		r.Start = 1024
	}
	if r.End > 65535 {
		r.End = 65535
	}
	return r
}

func getPortRange() (int, int) {
	rangeMu.RLock()
	c := configured
	rangeMu.RUnlock()
	if c != nil {
		return c.Start, c.End
	}
	r := DefaultPortRange
	if v := os.Getenv("SINGLEINSTANCE_PORT_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.Start = n
		}
	}
	if v := os.Getenv("SINGLEINSTANCE_PORT_END"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.End = n
		}
	}
	r = r.normalize()
	return r.Start, r.End
}

// CurrentPortRange reports the range in effect.
func CurrentPortRange() PortRange {
	start, end := getPortRange()
	return PortRange{Start: start, End: end}
}
