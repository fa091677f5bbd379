// Package tray provides a system tray menu for irplan.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/irplan/internal/link"
)

// Tray is the system tray menu. It toggles pointer tracking and shows the
// time of the last recognized shake.
type Tray struct {
	mu         sync.RWMutex
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool

	menuToggle    *systray.MenuItem
	menuLastShake *systray.MenuItem
	menuPointer   *systray.MenuItem
}

// New creates a Tray with tracking enabled.
func New() *Tray {
	return &Tray{enabled: true}
}

// OnToggle sets the callback run when tracking is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback run when "Open Dashboard" is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is called or the quit item is
// clicked, and must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("irplan")
	systray.SetTooltip("IR pointer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle pointer tracking")
	systray.AddSeparator()
	t.menuPointer = systray.AddMenuItem("Pointer: lost", "Current pointer position")
	t.menuPointer.Disable()
	t.menuLastShake = systray.AddMenuItem("Last shake: never", "Time of the last shake")
	t.menuLastShake.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit irplan")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// SetLastShake shows the time of the most recent shake.
func (t *Tray) SetLastShake(at time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastShake != nil {
		t.menuLastShake.SetTitle("Last shake: " + at.Format("15:04:05"))
	}
}

// SetPointer shows the pointer state. ok is false while the pointer is lost.
func (t *Tray) SetPointer(x, y float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuPointer == nil {
		return
	}
	if !ok {
		t.menuPointer.SetTitle("Pointer: lost")
		return
	}
	t.menuPointer.SetTitle(formatPointer(x, y))
}

// PublishPointer shows the pointer position. It implements link.Publisher.
func (t *Tray) PublishPointer(e link.PointerEvent) error {
	t.SetPointer(e.X, e.Y, true)
	return nil
}

// PublishGesture records the time of a shake. It implements link.Publisher.
func (t *Tray) PublishGesture(e link.GestureEvent) error {
	t.SetLastShake(time.UnixMilli(e.Timestamp))
	return nil
}

// IsEnabled reports whether tracking is on.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func formatPointer(x, y float64) string {
	return fmt.Sprintf("Pointer: %.0f, %.0f", x, y)
}
