package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvance(t *testing.T) {
	tr := NewTracker(2, 1)
	assert.Equal(t, 2.0, tr.PoseX())

	tr.Advance(1, 0, 0)
	x, y := tr.Pose()
	assert.InDelta(t, 3, x, 1e-9)
	assert.InDelta(t, 1, y, 1e-9)

	// Facing +Y, ahead moves Y and left moves -X.
	tr.Advance(2, 0.5, 90)
	x, y = tr.Pose()
	assert.InDelta(t, 2.5, x, 1e-9)
	assert.InDelta(t, 3, y, 1e-9)

	// Facing the blue wall.
	tr.Advance(1, 0, 180)
	assert.InDelta(t, 1.5, tr.PoseX(), 1e-9)

	tr.Reset(8, 4)
	x, y = tr.Pose()
	assert.Equal(t, [2]float64{8, 4}, [2]float64{x, y})
}
