package notecamera

import (
	"math"
	"sort"

	"github.com/tigerbot-team/notechaser/pkg/vision"
)

// Blob is a candidate note in image coordinates, already scaled to the
// processing width.
type Blob struct {
	CX, CY        float64
	Width, Height int
	Area          float64
}

// Projector converts image positions to camera angles.  Yaw is positive to
// the right; pitch is positive up and includes the camera's mount pitch.
type Projector struct {
	Width, Height int
	HorizontalFOV float64
	VerticalFOV   float64
	MountPitch    float64
}

func (p Projector) focal(pixels int, fov float64) float64 {
	return float64(pixels) / 2 / math.Tan(fov/2*math.Pi/180)
}

func (p Projector) ToDetection(b Blob) vision.Detection {
	dx := b.CX - float64(p.Width)/2
	dy := float64(p.Height)/2 - b.CY
	yaw := math.Atan2(dx, p.focal(p.Width, p.HorizontalFOV)) * 180 / math.Pi
	pitch := math.Atan2(dy, p.focal(p.Height, p.VerticalFOV)) * 180 / math.Pi
	return vision.Detection{
		Pitch: pitch + p.MountPitch,
		Yaw:   yaw,
	}
}

// PickBlobs drops blobs smaller than minSize in either dimension and
// returns up to max of the rest, largest first.
func PickBlobs(blobs []Blob, minSize, max int) []Blob {
	var out []Blob
	for _, b := range blobs {
		if b.Width < minSize || b.Height < minSize {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Area > out[j].Area
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
