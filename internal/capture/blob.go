package capture

import (
	"image"
	"sort"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/irplan/internal/pointer"
)

// Blob detection defaults.
const (
	// DefaultThreshold is the gray level above which a pixel counts as lit.
	DefaultThreshold = 200
	// DefaultMinArea drops contours smaller than this many pixels.
	DefaultMinArea = 2
	// blurSize is the Gaussian kernel used to merge speckle before thresholding.
	blurSize = 3
)

// BlobDetector finds bright IR spots in a frame and reports them in the
// pointer mapper's sensor space.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply a small Gaussian blur
// 3. Binary threshold
// 4. Find external contours
// 5. Report each contour's bounding-box center, scaled to sensor space,
// with its area as the blob size
type BlobDetector struct {
	mu        sync.Mutex
	threshold float64
	minArea   float64
}

// NewBlobDetector creates a BlobDetector. Non-positive arguments select the
// defaults.
func NewBlobDetector(threshold, minArea float64) *BlobDetector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if minArea <= 0 {
		minArea = DefaultMinArea
	}
	return &BlobDetector{
		threshold: threshold,
		minArea:   minArea,
	}
}

// Detect returns every blob at least MinArea in size, largest first. Frames
// with any number of blobs are reported; the mapper rejects those that do
// not have exactly four.
func (d *BlobDetector) Detect(frame *gocv.Mat) []pointer.Blob {
	d.mu.Lock()
	threshold, minArea := d.threshold, d.minArea
	d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	gocv.GaussianBlur(gray, &gray, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, float32(threshold), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	sx := pointer.SensorWidth / float64(frame.Cols())
	sy := pointer.SensorHeight / float64(frame.Rows())

	blobs := make([]pointer.Blob, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < minArea {
			continue
		}

		r := gocv.BoundingRect(c)
		cx := float64(r.Min.X+r.Max.X) / 2
		cy := float64(r.Min.Y+r.Max.Y) / 2
		blobs = append(blobs, pointer.Blob{
			X:    cx * sx,
			Y:    cy * sy,
			Size: area,
		})
	}

	sort.SliceStable(blobs, func(i, j int) bool { return blobs[i].Size > blobs[j].Size })
	return blobs
}

// SetThreshold changes the gray level cutoff. Non-positive values are ignored.
func (d *BlobDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// Threshold returns the gray level cutoff.
func (d *BlobDetector) Threshold() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}
