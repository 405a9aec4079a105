package approach

import (
	"math"

	"github.com/tigerbot-team/notechaser/pkg/vision"
)

// Observed pitches and yaws from the intake camera with a note placed at
// the following distances:
//
//	Pitch                          Yaw
//	0 ft in front = -23.5          0 ft to right = 0     (18" in front)
//	1 ft in front = -0.90          1 ft to right = 25.0
//	2 ft in front = 9.5            2 ft to right = 43.25
//	3 ft in front = 15.0           2 ft to right = 24.9  (36" in front)
//	4 ft in front = 18.4
//	5 ft in front = 21.3

// Policy turns a selected note into a drive speed and heading correction.
type Policy struct {
	// YawBiasDegrees is subtracted from the reported yaw.  The intake is
	// not quite on the camera's centre line.
	YawBiasDegrees float64
}

func NewPolicy(cfg Config) Policy {
	return Policy{YawBiasDegrees: cfg.YawBiasDegrees}
}

// Command returns the forward speed (fraction of max) and the heading
// change in degrees needed to drive at the target.  The rows are checked
// in order and the first match wins; the bands overlap on purpose.
func (p Policy) Command(target vision.Detection) (speed, rotationDelta float64) {
	rotationDelta = target.Yaw - p.YawBiasDegrees
	angleOffset := math.Abs(rotationDelta)
	pitch := target.Pitch

	switch {
	case pitch < -20 && angleOffset > 10:
		// Well off centre and right on top of it: back up.
		speed = -0.15
	case pitch < -15 && angleOffset > 10:
		// Well off centre and close: creep.
		speed = 0.05
	case pitch < -27:
		// At the intake.
		speed = 0.02
	case pitch < 0:
		// Within a foot.
		speed = 0.24
		if angleOffset < 5 {
			speed += 0.1
		}
	case pitch < 15:
		// Within 3 feet.
		speed = 0.35
		if angleOffset < 15 {
			speed += 0.1
		}
	case pitch > 15:
		// Beyond 3 feet.
		speed = 0.49
		if angleOffset < 15 {
			speed += 0.1
		}
	}
	return speed, rotationDelta
}
