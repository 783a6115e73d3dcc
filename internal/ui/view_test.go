package ui

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{90 * time.Second, "1:30"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-5 * time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%v): got %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestThemeByName(t *testing.T) {
	if ThemeByName("catppuccin-mocha").Name != "catppuccin-mocha" {
		t.Error("catppuccin-mocha not resolved")
	}
	if ThemeByName("no-such-theme").Name != "tokyo-night" {
		t.Error("unknown theme does not fall back to the default")
	}
}
