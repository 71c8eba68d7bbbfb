package platform

import "testing"

func TestModernCapture(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12.3", true},
		{"12.2.1", false},
		{"11.7.10", false},
		{"14.4.1\n", true},
		{"15.0", true},
		{"garbage", true},
	}
	for _, tt := range tests {
		if got := modernCapture(tt.in); got != tt.want {
			t.Errorf("modernCapture(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestDisplayScaleNeverBelowOne(t *testing.T) {
	if s := DisplayScale(-1); s < 1 {
		t.Fatalf("expected scale >= 1 for unknown display, got %v", s)
	}
}
