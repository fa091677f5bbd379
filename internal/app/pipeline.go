package app

import (
	"errors"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/irplan/internal/capture"
	"github.com/ayusman/irplan/internal/pointer"
)

// Camera loop timing.
const (
	// IdleFPS is the frame rate while the remote's IR sources are out of view.
	IdleFPS = 5
	// IdleTimeout is how long the sources must stay lost before the loop
	// drops to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// runCamera reads frames, extracts IR blobs and feeds them to HandleBlobs
// until the app is stopped.
//
// The loop runs at the configured frame rate while four blobs are in view
// and drops to IdleFPS after IdleTimeout without them. The latest frame is
// kept for the MJPEG stream.
func (a *App) runCamera() {
	activeFPS := a.settings.Camera.FPS
	if activeFPS <= 0 {
		activeFPS = capture.DefaultFPS
	}

	active := true
	lastSeen := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(activeFPS))
	defer ticker.Stop()

	setRate := func(fps int) {
		a.camera.SetFPS(fps)
		ticker.Reset(time.Second / time.Duration(fps))
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if errors.Is(err, capture.ErrNoFrame) {
				continue
			}
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			blobs := a.blobs.Detect(frame)
			a.frames.store(frame)
			frame.Close()

			if len(blobs) == pointer.RequiredBlobs {
				lastSeen = time.Now()
				if !active {
					active = true
					setRate(activeFPS)
					log.Println("IR sources in view, switched to active rate")
				}
			} else if active && time.Since(lastSeen) > IdleTimeout {
				active = false
				setRate(IdleFPS)
				log.Println("IR sources lost, switched to idle rate")
			}

			a.HandleBlobs(blobs)
		}
	}
}

// LatestJPEG returns the most recent camera frame encoded as JPEG.
func (a *App) LatestJPEG() ([]byte, bool) {
	return a.frames.jpeg()
}

// frameBuffer holds a copy of the latest camera frame.
type frameBuffer struct {
	mu    sync.Mutex
	frame gocv.Mat
	valid bool
}

func (b *frameBuffer) store(m *gocv.Mat) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.valid {
		b.frame.Close()
	}
	b.frame = m.Clone()
	b.valid = true
}

func (b *frameBuffer) jpeg() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.valid {
		return nil, false
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, b.frame)
	if err != nil {
		log.Printf("Failed to encode frame: %v", err)
		return nil, false
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), true
}

func (b *frameBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.valid {
		b.frame.Close()
		b.valid = false
	}
}
