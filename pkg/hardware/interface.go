package hardware

import (
	"context"

	"github.com/tigerbot-team/notechaser/pkg/headingholder"
	"github.com/tigerbot-team/notechaser/pkg/pose"
)

type Interface interface {
	// Start the background loops (IMU, heading hold).  Returns once the
	// loops are running.
	Start(ctx context.Context) error

	// Drive is the heading-holding chassis; it is valid before Start but
	// only moves once the loops are running.
	Drive() *headingholder.Holder
	Pose() *pose.Tracker

	// StopMotorControl stops translating and holds the current heading.
	StopMotorControl()

	PlaySound(name string)

	Shutdown()
}

// Release stops motor control and then shuts the hardware down.
func Release(hw Interface) {
	hw.StopMotorControl()
	hw.Shutdown()
}
