package button

import "testing"

func TestCameraText(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"off", Snapshot{}, "Camera\nOFF"},
		{"on", Snapshot{Enabled: true}, "Camera\nON"},
		{"alert", Snapshot{Enabled: true, Alert: true}, "Sleepiness detected!"},
		{"latched while off", Snapshot{Alert: true}, "Camera\nOFF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.CameraText(); got != tt.want {
				t.Errorf("CameraText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatteryFace(t *testing.T) {
	s := Snapshot{Battery: 42}
	if got := s.BatteryText(); got != "42%" {
		t.Errorf("BatteryText() = %q", got)
	}
	if got := s.BatteryTitle(); got != "Energy Level" {
		t.Errorf("BatteryTitle() = %q", got)
	}
}

func TestBatteryColor(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, "#ff0000"},
		{25, "#ff6400"},
		{50, "#ffc800"},
		{100, "#00c800"},
	}
	for _, tt := range tests {
		if got := (Snapshot{Battery: tt.level}).BatteryColor(); got != tt.want {
			t.Errorf("BatteryColor(%d) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
