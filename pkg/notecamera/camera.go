package notecamera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

// Grabber captures one frame and returns the note-coloured blobs in it,
// along with the size of the processed image.
type Grabber interface {
	Grab() (blobs []Blob, width, height int, err error)
	Close() error
}

// Camera runs the capture loop and publishes each processed frame.
type Camera struct {
	cfg     config.Camera
	grabber Grabber
	latest  *vision.Latest
	now     func() time.Time
}

func New(cfg config.Camera, grabber Grabber, latest *vision.Latest) *Camera {
	return &Camera{
		cfg:     cfg,
		grabber: grabber,
		latest:  latest,
		now:     time.Now,
	}
}

func (c *Camera) projector(width, height int) Projector {
	return Projector{
		Width:         width,
		Height:        height,
		HorizontalFOV: c.cfg.HorizontalFOV,
		VerticalFOV:   c.cfg.VerticalFOV,
		MountPitch:    c.cfg.MountPitch,
	}
}

// ProcessOnce grabs and publishes a single frame.  A failed grab publishes
// an empty frame so stale notes are not chased.
func (c *Camera) ProcessOnce() error {
	captured := c.now()
	blobs, width, height, err := c.grabber.Grab()
	if err != nil {
		c.latest.Publish(vision.Frame{CaptureTime: captured})
		return err
	}

	frame := vision.Frame{CaptureTime: captured}
	p := c.projector(width, height)
	for _, b := range PickBlobs(blobs, c.cfg.MinContourSize, c.cfg.MaxNotes) {
		frame.Detections = append(frame.Detections, p.ToDetection(b))
	}
	frame.HasTargets = len(frame.Detections) > 0
	c.latest.Publish(frame)
	return nil
}

func (c *Camera) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer c.grabber.Close()

	period := c.cfg.FramePeriod
	if period <= 0 {
		period = 30 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Camera: stopping")
			return
		case <-ticker.C:
		}
		if err := c.ProcessOnce(); err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				fmt.Printf("Camera: failed to grab frame (%d failures): %v\n", failures, err)
			}
			continue
		}
		failures = 0
	}
}
