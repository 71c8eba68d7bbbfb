package output

import (
	"context"
	"log"
	"os/exec"
)

// GrabSound is the system shutter sound shipped with macOS.
const GrabSound = "/System/Library/Components/CoreAudio.component/Contents/SharedSupport/SystemSounds/system/Grab.aif"

// Sound plays an audio file with afplay without waiting for it to finish.
type Sound struct {
	Enabled bool
	File    string

	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewSound(enabled bool) *Sound {
	return &Sound{Enabled: enabled, File: GrabSound, command: exec.CommandContext}
}

func (s *Sound) Play(ctx context.Context) error {
	if !s.Enabled {
		return nil
	}
	// Not tied to ctx: the sound should outlive a finished session.
	cmd := s.command(context.WithoutCancel(ctx), "afplay", s.File)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("output: afplay exited: %v", err)
		}
	}()
	return nil
}
