package pose

import (
	"math"
	"sync"
)

const radiansPerDegree = math.Pi / 180

// Tracker is a dead-reckoned estimate of where the bot is on the field.
// X runs from the blue alliance wall (0) towards the red wall, in metres.
// Headings are w.r.t. the positive X direction, +tive CCW.
type Tracker struct {
	lock sync.Mutex
	x, y float64
}

func NewTracker(x, y float64) *Tracker {
	return &Tracker{x: x, y: y}
}

func (t *Tracker) PoseX() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.x
}

func (t *Tracker) Pose() (x, y float64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.x, t.y
}

func (t *Tracker) Reset(x, y float64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.x, t.y = x, y
}

// Advance moves the estimate by a displacement measured in the bot's frame
// while it was facing headingDegrees.
func (t *Tracker) Advance(aheadM, leftM, headingDegrees float64) {
	sin := math.Sin(headingDegrees * radiansPerDegree)
	cos := math.Cos(headingDegrees * radiansPerDegree)

	t.lock.Lock()
	defer t.lock.Unlock()
	t.x += aheadM*cos - leftM*sin
	t.y += aheadM*sin + leftM*cos
}
