package notecamera

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

var testProjector = Projector{
	Width:         320,
	Height:        240,
	HorizontalFOV: 90,
	VerticalFOV:   90,
}

func TestProjectCentre(t *testing.T) {
	d := testProjector.ToDetection(Blob{CX: 160, CY: 120})
	assert.InDelta(t, 0, d.Pitch, 1e-9)
	assert.InDelta(t, 0, d.Yaw, 1e-9)
}

func TestProjectEdges(t *testing.T) {
	// With a 90 degree FOV the image edges are at 45 degrees.
	d := testProjector.ToDetection(Blob{CX: 320, CY: 240})
	assert.InDelta(t, 45, d.Yaw, 1e-9)
	assert.InDelta(t, -45, d.Pitch, 1e-9)

	d = testProjector.ToDetection(Blob{CX: 0, CY: 0})
	assert.InDelta(t, -45, d.Yaw, 1e-9)
	assert.InDelta(t, 45, d.Pitch, 1e-9)
}

func TestProjectMountPitch(t *testing.T) {
	p := testProjector
	p.MountPitch = -10
	d := p.ToDetection(Blob{CX: 160, CY: 120})
	assert.InDelta(t, -10, d.Pitch, 1e-9)
}

func TestPickBlobs(t *testing.T) {
	blobs := []Blob{
		{Width: 5, Height: 40, Area: 1000},
		{Width: 20, Height: 20, Area: 300},
		{Width: 30, Height: 30, Area: 700},
		{Width: 15, Height: 15, Area: 100},
	}
	got := PickBlobs(blobs, 12, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 700.0, got[0].Area)
	assert.Equal(t, 300.0, got[1].Area)

	assert.Len(t, PickBlobs(blobs, 12, 0), 3)
	assert.Empty(t, PickBlobs(nil, 12, 4))
}

type fakeGrabber struct {
	blobs []Blob
	err   error
}

func (f *fakeGrabber) Grab() ([]Blob, int, int, error) {
	return f.blobs, 320, 240, f.err
}

func (f *fakeGrabber) Close() error { return nil }

func TestProcessOncePublishes(t *testing.T) {
	cfg := config.Default().Camera
	cfg.HorizontalFOV = 90
	cfg.VerticalFOV = 90
	cfg.MountPitch = 0
	g := &fakeGrabber{blobs: []Blob{{CX: 160, CY: 120, Width: 20, Height: 20, Area: 400}}}
	latest := &vision.Latest{}
	c := New(cfg, g, latest)
	stamp := time.Unix(100, 0)
	c.now = func() time.Time { return stamp }

	require.NoError(t, c.ProcessOnce())
	f := latest.LatestFrame()
	assert.True(t, f.HasTargets)
	require.Len(t, f.Detections, 1)
	assert.InDelta(t, 0, f.Detections[0].Yaw, 1e-9)
	assert.Equal(t, stamp, f.CaptureTime)

	g.err = errors.New("camera unplugged")
	assert.Error(t, c.ProcessOnce())
	f = latest.LatestFrame()
	assert.False(t, f.HasTargets)
	assert.Empty(t, f.Detections)
}
