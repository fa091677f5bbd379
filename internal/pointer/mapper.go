// Package pointer converts IR blob observations from the remote's camera into
// a stabilized display coordinate.
package pointer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ayusman/irplan/internal/geometry"
)

// Sensor space defaults for the remote's IR camera.
const (
	SensorWidth  = 1024
	SensorHeight = 768
	// RequiredBlobs is the number of IR sources a frame must contain.
	RequiredBlobs = 4
)

// DefaultBoresight is the camera's optical center in sensor space.
var DefaultBoresight = geometry.Point2D{X: SensorWidth / 2, Y: SensorHeight / 2}

// ErrBlobCount is returned when a frame does not contain exactly RequiredBlobs blobs.
var ErrBlobCount = errors.New("frame must contain exactly 4 blobs")

// Blob is a single IR source reported by the camera.
type Blob struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// Config holds the mapping parameters.
type Config struct {
	// Width and Height are the display working area.
	Width  float64
	Height float64
	// InvertY pairs the camera's low-y blobs with the bottom of the display.
	InvertY bool
	// Boresight is the sensor-space point whose image is the pointer.
	// The zero value selects DefaultBoresight.
	Boresight geometry.Point2D
}

// Mapper maps IR frames to smoothed display coordinates.
//
// A Mapper is not safe for concurrent use; callers delivering frames from
// several goroutines must serialize calls to Map.
type Mapper struct {
	boresight geometry.Point2D
	invertY   bool
	dst       geometry.Quad
	smoother  *Smoother
}

// NewMapper creates a Mapper for the given configuration.
func NewMapper(cfg Config) *Mapper {
	boresight := cfg.Boresight
	if boresight == (geometry.Point2D{}) {
		boresight = DefaultBoresight
	}

	return &Mapper{
		boresight: boresight,
		invertY:   cfg.InvertY,
		dst:       geometry.DisplayCorners(cfg.Width, cfg.Height, cfg.InvertY),
		smoother:  NewSmoother(),
	}
}

// Resize changes the display working area used for subsequent frames.
func (m *Mapper) Resize(width, height float64) {
	m.dst = geometry.DisplayCorners(width, height, m.invertY)
}

// Map processes one camera frame.
//
// It returns the new smoothed position and true when the frame resolved to a
// position. Frames without exactly four blobs, or with a degenerate blob
// layout, leave the smoother untouched and return the last smoothed position
// with false.
func (m *Mapper) Map(blobs []Blob) (geometry.Point2D, bool) {
	raw, err := m.Raw(blobs)
	if err != nil {
		last, _ := m.smoother.Last()
		return last, false
	}

	return m.smoother.Push(raw), true
}

// Raw computes the unsmoothed display position for a frame without touching
// the smoothing buffer.
func (m *Mapper) Raw(blobs []Blob) (geometry.Point2D, error) {
	if len(blobs) != RequiredBlobs {
		return geometry.Point2D{}, fmt.Errorf("got %d blobs: %w", len(blobs), ErrBlobCount)
	}

	src := geometry.OrderCorners(blobQuad(blobs))

	h, err := geometry.EstimateHomography(src, m.dst)
	if err != nil {
		return geometry.Point2D{}, err
	}

	return h.Apply(m.boresight)
}

// Position returns the last smoothed position.
// The second return value is false until a frame has been mapped.
func (m *Mapper) Position() (geometry.Point2D, bool) {
	return m.smoother.Last()
}

// Smoother returns the mapper's smoothing buffer.
func (m *Mapper) Smoother() *Smoother {
	return m.smoother
}

// blobQuad converts four blobs to points, ordered by ascending size.
func blobQuad(blobs []Blob) geometry.Quad {
	sorted := make([]Blob, len(blobs))
	copy(sorted, blobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size < sorted[j].Size
	})

	var q geometry.Quad
	for i := range q {
		q[i] = geometry.Point2D{X: sorted[i].X, Y: sorted[i].Y}
	}
	return q
}
