package indicator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestForModel(t *testing.T) {
	tests := []struct {
		model    string
		wantLED  string
		wantNoop bool
	}{
		{"FriendlyElec NanoPC-T6", "system", false},
		{"Orange Pi 5 Plus", "green", false},
		{"Raspberry Pi 4 Model B Rev 1.4", "act", false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl, led := forModel(tt.model, t.TempDir(), testLogger())
			if led != tt.wantLED {
				t.Errorf("led = %q, want %q", led, tt.wantLED)
			}
			_, isNoop := ctrl.(*noop)
			if isNoop != tt.wantNoop {
				t.Errorf("noop = %v, want %v", isNoop, tt.wantNoop)
			}
		})
	}
}

func TestSysfs_Set(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sys_led")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	ctrl := newSysfs(root, map[string]string{"system": "sys_led"})

	if err := ctrl.Set("system", true, PatternBlink); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	trig, _ := os.ReadFile(filepath.Join(dir, "trigger"))
	if string(trig) != "heartbeat" {
		t.Errorf("trigger = %q, want heartbeat", trig)
	}
	bright, _ := os.ReadFile(filepath.Join(dir, "brightness"))
	if string(bright) != "1" {
		t.Errorf("brightness = %q, want 1", bright)
	}

	if err := ctrl.Set("system", false, ""); err != nil {
		t.Fatalf("Set(off) error = %v", err)
	}
	trig, _ = os.ReadFile(filepath.Join(dir, "trigger"))
	if string(trig) != "heartbeat" {
		t.Errorf("empty pattern changed trigger to %q", trig)
	}
	bright, _ = os.ReadFile(filepath.Join(dir, "brightness"))
	if string(bright) != "0" {
		t.Errorf("brightness = %q, want 0", bright)
	}
}

func TestSysfs_Errors(t *testing.T) {
	ctrl := newSysfs(t.TempDir(), map[string]string{"system": "missing"})

	if err := ctrl.Set("user", true, PatternSolid); err == nil {
		t.Error("expected error for unsupported LED")
	}
	if err := ctrl.Set("system", true, PatternSolid); err == nil {
		t.Error("expected error for missing sysfs directory")
	}
}

func TestSysfs_Available(t *testing.T) {
	ctrl := newSysfs("", map[string]string{"user": "a", "system": "b"})
	got := ctrl.Available()
	if len(got) != 2 || got[0] != "system" || got[1] != "user" {
		t.Errorf("Available() = %v, want [system user]", got)
	}
}
