package tray

import (
	"testing"

	"github.com/ayusman/irplan/internal/link"
)

func TestTray_Defaults(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Error("new tray should start with tracking enabled")
	}

	// Menu updates before Run are ignored.
	tr.SetPointer(1, 2, true)
	tr.SetPointer(0, 0, false)
}

func TestToggleTitle(t *testing.T) {
	if toggleTitle(true) == toggleTitle(false) {
		t.Error("enabled and paused titles should differ")
	}
}

func TestFormatPointer(t *testing.T) {
	if got := formatPointer(320.4, 239.6); got != "Pointer: 320, 240" {
		t.Errorf("formatPointer() = %q", got)
	}
}

func TestTray_Publisher(t *testing.T) {
	var p link.Publisher = New()

	if err := p.PublishPointer(link.PointerEvent{X: 1, Y: 2}); err != nil {
		t.Errorf("PublishPointer() error = %v", err)
	}
	if err := p.PublishGesture(link.NewGestureEvent("shake")); err != nil {
		t.Errorf("PublishGesture() error = %v", err)
	}
}
