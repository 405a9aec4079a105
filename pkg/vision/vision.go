package vision

import (
	"math"
	"sync"
	"time"
)

// DefaultPitchGap is how much lower (in degrees) the lowest-pitch candidate
// must be than the most centred one before we prefer it.
const DefaultPitchGap = 12

// Detection is one candidate note reported by the camera for a single frame.
type Detection struct {
	Pitch float64 // degrees, more negative = closer
	Yaw   float64 // degrees, 0 = centred, positive = right
}

type Frame struct {
	HasTargets  bool
	Detections  []Detection
	CaptureTime time.Time
}

// SelectBest picks the note to drive at: the most centred one, unless another
// is considerably closer.
func SelectBest(frame Frame) (Detection, bool) {
	return SelectBestWithGap(frame, DefaultPitchGap)
}

func SelectBestWithGap(frame Frame, pitchGap float64) (Detection, bool) {
	// Camera can report HasTargets with an empty list; treat that as nothing.
	if !frame.HasTargets || len(frame.Detections) == 0 {
		return Detection{}, false
	}

	bestPitch := frame.Detections[0]
	bestYaw := frame.Detections[0]
	for _, d := range frame.Detections[1:] {
		if d.Pitch < bestPitch.Pitch {
			bestPitch = d
		}
		if math.Abs(d.Yaw) < math.Abs(bestYaw.Yaw) {
			bestYaw = d
		}
	}

	if math.Abs(bestPitch.Pitch-bestYaw.Pitch) > pitchGap {
		return bestPitch, true
	}
	return bestYaw, true
}

// Latest holds the most recent frame published by a camera loop.  Reads never
// block waiting for a new frame.
type Latest struct {
	lock  sync.Mutex
	frame Frame
}

func (l *Latest) Publish(f Frame) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.frame = f
}

func (l *Latest) LatestFrame() Frame {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.frame
}
