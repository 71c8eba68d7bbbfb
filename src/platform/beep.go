package platform

import (
	"log"
	"os/exec"
	"runtime"
)

// Beep plays the system alert sound without waiting for it.
func Beep() {
	if runtime.GOOS != "darwin" {
		return
	}
	cmd := exec.Command("osascript", "-e", "beep")
	if err := cmd.Start(); err != nil {
		log.Printf("platform: beep failed: %v", err)
		return
	}
	go func() { _ = cmd.Wait() }()
}
