package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Closed(t *testing.T) {
	for _, id := range []int{0, 1, 2} {
		cam := NewCamera(id)

		if cam.FPS() != DefaultFPS {
			t.Errorf("device %d: FPS() = %d, want %d", id, cam.FPS(), DefaultFPS)
		}
		if cam.IsOpen() {
			t.Errorf("device %d: camera should start closed", id)
		}
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
			t.Errorf("device %d: ReadFrame() error = %v, want ErrCameraNotOpen", id, err)
		}
		if err := cam.Close(); err != nil {
			t.Errorf("device %d: Close() on a closed camera = %v", id, err)
		}
	}
}

func TestCamera_SetFPSIgnoresNonPositive(t *testing.T) {
	cam := NewCamera(0)

	steps := []struct {
		set, want int
	}{
		{60, 60},
		{5, 5},
		{0, 5},
		{-5, 5},
	}
	for _, s := range steps {
		cam.SetFPS(s.set)
		if got := cam.FPS(); got != s.want {
			t.Errorf("SetFPS(%d): FPS() = %d, want %d", s.set, got, s.want)
		}
	}
}

// TestCamera_Device needs a real IR camera on device 0.
func TestCamera_Device(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping hardware test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	defer cam.Close()

	frame, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	defer frame.Close()

	if frame.Cols() != DefaultWidth || frame.Rows() != DefaultHeight {
		t.Logf("camera delivered %dx%d instead of the sensor size", frame.Cols(), frame.Rows())
	}

	blobs := NewBlobDetector(DefaultThreshold, DefaultMinArea).Detect(frame)
	t.Logf("detected %d blobs", len(blobs))
}
