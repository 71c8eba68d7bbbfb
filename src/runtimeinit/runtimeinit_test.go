package runtimeinit

import (
	"testing"

	"snipper/src/capture"
	"snipper/src/config"
	"snipper/src/singleinstance"
)

func TestNewBackendHonorsPreference(t *testing.T) {
	tests := []struct {
		pref string
		want string
	}{
		{capture.PreferLegacy, "legacy"},
		{capture.PreferModern, "screenshot"},
	}
	for _, tt := range tests {
		if got := NewBackend(tt.pref, nil).Name(); got != tt.want {
			t.Errorf("NewBackend(%q) = %s, want %s", tt.pref, got, tt.want)
		}
	}
}

func TestBootstrapAppliesConfig(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49800")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49810")
	t.Cleanup(func() { singleinstance.Configure(singleinstance.PortRange{}) })

	var loggingEnabled *bool
	rt, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{CaptureBackendOverride: "legacy", SaveDirOverride: "/tmp/shots"},
		SetupLogging: func(enable bool) { loggingEnabled = &enable },
	})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if loggingEnabled == nil {
		t.Fatal("expected logging setup to be called")
	}
	if rt.Backend.Name() != "legacy" || rt.Config.SaveDir != "/tmp/shots" {
		t.Fatalf("unexpected runtime %+v", rt.Config)
	}
	if r := singleinstance.CurrentPortRange(); r.Start != 49800 || r.End != 49810 {
		t.Fatalf("expected configured port range, got %+v", r)
	}
	if !rt.Clipboard && rt.ClipboardWriter() != nil {
		t.Fatal("no clipboard writer without an initialized clipboard")
	}
}
