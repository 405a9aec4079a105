package headingholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/notechaser/pkg/headingholder/angle"
	"github.com/tigerbot-team/notechaser/pkg/picobldc"
)

func TestPIDFirstUpdateHasNoDerivativeKick(t *testing.T) {
	p := PID{Kp: 1, Kd: 1, MaxIntegral: 10, MaxD: 1000, MaxOutput: 1000}
	assert.InDelta(t, 5, p.Update(5, 0.1), 1e-9)
	// Error jumps by 5 over 0.1s: D = 50.
	assert.InDelta(t, 10+50, p.Update(10, 0.1), 1e-9)
}

func TestPIDIntegralClampAndReset(t *testing.T) {
	p := PID{Ki: 1, MaxIntegral: 0.3, MaxD: 100, MaxOutput: 1}
	for i := 0; i < 100; i++ {
		p.Update(10, 0.02)
	}
	assert.InDelta(t, 0.3, p.Integral(), 1e-9)

	p.Reset()
	assert.Zero(t, p.Integral())
	assert.InDelta(t, 0, p.Update(0, 0.02), 1e-9)
}

func TestPIDOutputClamped(t *testing.T) {
	p := DefaultRotationPID()
	assert.InDelta(t, 0.3, p.Update(1000, 0.01), 1e-9)
	p.Reset()
	assert.InDelta(t, -0.3, p.Update(-1000, 0.01), 1e-9)
}

func TestMix(t *testing.T) {
	assert.Equal(t, picobldc.PerMotorVal[int16]{}, Mix(0, 0, 0))

	fwd := Mix(1, 0, 0)
	assert.Positive(t, fwd[picobldc.FrontLeft])
	assert.Equal(t, fwd[picobldc.FrontLeft], fwd[picobldc.BackLeft])
	assert.Equal(t, -fwd[picobldc.FrontLeft], fwd[picobldc.FrontRight])
	assert.Equal(t, fwd[picobldc.FrontRight], fwd[picobldc.BackRight])

	// Pure rotation turns all wheels the same way.
	rot := Mix(0, 0, 0.1)
	for _, v := range rot {
		assert.Equal(t, rot[0], v)
	}
	assert.Negative(t, rot[0])

	// Demands beyond the wheel limit are scaled down, not clipped.
	fast := Mix(100, 0, 0)
	slow := Mix(1, 0, 0)
	assert.Less(t, int(fast[0]), 32767)
	assert.Greater(t, fast[0], slow[0])
}

type fakeOdometry struct {
	ahead, left float64
	headings    []float64
}

func (o *fakeOdometry) Advance(aheadM, leftM, headingDegrees float64) {
	o.ahead += aheadM
	o.left += leftM
	o.headings = append(o.headings, headingDegrees)
}

func TestUpdateLatchesStartHeading(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.StartHeading = 180

	h.update(angle.FromFloat(37), 0)
	assert.InDelta(t, 180, h.HeadingDegrees(), 1e-9)
	assert.InDelta(t, 180, h.TargetHeading(), 1e-9)

	// IMU turns 10 degrees anti-clockwise.
	h.update(angle.FromFloat(47), 0.01)
	assert.InDelta(t, -170, h.HeadingDegrees(), 1e-9)
}

func TestUpdateHoldsHeading(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.update(angle.FromFloat(0), 0)

	h.DriveAndHoldHeading(0, 0, 20)
	speeds := h.update(angle.FromFloat(0), 0.01)
	// Needs to turn anti-clockwise, so all wheels turn backwards.
	for _, v := range speeds {
		assert.Negative(t, v)
	}

	h.DriveAndHoldHeading(0, 0, -20)
	speeds = h.update(angle.FromFloat(0), 0.01)
	assert.Positive(t, speeds[0])
}

func TestUpdateSlewsThrottleAndTracksOdometry(t *testing.T) {
	odo := &fakeOdometry{}
	h := New(picobldc.Dummy(), nil)
	h.Odometry = odo
	h.MaxSpeedMPS = 2
	h.update(angle.FromFloat(0), 0)

	h.DriveAndHoldHeading(0.5, 0, 0)
	h.update(angle.FromFloat(0), 0.1)
	// Limited to 3.0/s * 0.1s.
	assert.InDelta(t, 0.3, h.filteredForward, 1e-9)
	assert.InDelta(t, 0.3*2*0.1, odo.ahead, 1e-9)

	h.update(angle.FromFloat(0), 0.1)
	assert.InDelta(t, 0.5, h.filteredForward, 1e-9)
	require.Len(t, odo.headings, 2)
}

func TestSetHoldHeadingStopsAndResetClearsIntegral(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.update(angle.FromFloat(0), 0)

	h.DriveAndHoldHeading(0.4, 0.1, 90)
	for i := 0; i < 10; i++ {
		h.update(angle.FromFloat(0), 0.02)
	}
	assert.NotZero(t, h.rotation.Integral())

	h.ResetRotationController()
	assert.Zero(t, h.rotation.Integral())

	h.SetHoldHeading(12)
	assert.InDelta(t, 12, h.TargetHeading(), 1e-9)
	h.controlLock.Lock()
	c := h.controls
	h.controlLock.Unlock()
	assert.Zero(t, c.forward)
	assert.Zero(t, c.strafe)
}

func TestDriveClampsSpeeds(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.DriveAndHoldHeading(3, -2, 400)
	assert.Equal(t, 1.0, h.forward)
	assert.Equal(t, -1.0, h.strafe)
	assert.InDelta(t, 40, h.TargetHeading(), 1e-9)
	assert.Equal(t, "drive", h.SubsystemName())
}

func TestClockwiseFlipsHeadings(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.update(angle.FromFloat(30), 0)
	h.update(angle.FromFloat(40), 0.01)

	cw := Clockwise{h}
	assert.InDelta(t, -10, cw.HeadingDegrees(), 1e-9)

	cw.DriveAndHoldHeading(0.2, 0, 25)
	assert.InDelta(t, -25, h.TargetHeading(), 1e-9)

	cw.SetHoldHeading(-5)
	assert.InDelta(t, 5, h.TargetHeading(), 1e-9)

	// Still the same subsystem as the holder itself.
	assert.Equal(t, h.SubsystemName(), cw.SubsystemName())
}

func TestUpdateTurnsShortWayAcrossWrap(t *testing.T) {
	h := New(picobldc.Dummy(), nil)
	h.StartHeading = 170
	h.update(angle.FromFloat(0), 0)

	// -170 is 20 degrees anti-clockwise of 170, not 340 clockwise.
	h.DriveAndHoldHeading(0, 0, -170)
	speeds := h.update(angle.FromFloat(0), 0.01)
	for _, v := range speeds {
		assert.Negative(t, v)
	}
}
