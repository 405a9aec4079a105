package headingholder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tigerbot-team/notechaser/pkg/bno08x"
	"github.com/tigerbot-team/notechaser/pkg/chassis"
	"github.com/tigerbot-team/notechaser/pkg/headingholder/angle"
	"github.com/tigerbot-team/notechaser/pkg/picobldc"
)

type RawControl interface {
	SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error
}

// Odometry receives the distance the holder believes it has driven.
type Odometry interface {
	Advance(aheadM, leftM, headingDegrees float64)
}

// Holder drives the chassis at a commanded speed while holding a
// field-relative heading.  Commands may come from any goroutine; Loop runs
// the control loop at the IMU's report rate.
type Holder struct {
	Motors   RawControl
	IMU      bno08x.Interface
	Odometry Odometry

	// Field heading of the bot when Loop starts.
	StartHeading float64
	MaxSpeedMPS  float64

	controlLock sync.Mutex
	controls
	rotation   PID
	imuOffset  angle.PlusMinus180
	haveOffset bool

	filteredForward float64
	filteredStrafe  float64
}

type controls struct {
	targetHeading  angle.PlusMinus180
	currentHeading angle.PlusMinus180
	forward        float64
	strafe         float64
}

const maxThrottleDeltaPerSec = 3.0

func New(motors RawControl, imu bno08x.Interface) *Holder {
	return &Holder{
		Motors:      motors,
		IMU:         imu,
		MaxSpeedMPS: 3.5,
		rotation:    DefaultRotationPID(),
	}
}

func (h *Holder) SubsystemName() string {
	return "drive"
}

func (h *Holder) HeadingDegrees() float64 {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	return h.currentHeading.Float()
}

func (h *Holder) TargetHeading() float64 {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	return h.targetHeading.Float()
}

// DriveAndHoldHeading sets translation speeds as fractions of max speed,
// +tive is forward/left; the heading may be any magnitude.
func (h *Holder) DriveAndHoldHeading(forwardSpeed, strafeSpeed, targetHeadingDegrees float64) {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	h.forward = clamp(forwardSpeed, 1)
	h.strafe = clamp(strafeSpeed, 1)
	h.targetHeading = angle.FromFloat(targetHeadingDegrees)
}

func (h *Holder) ResetRotationController() {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	h.rotation.Reset()
}

// SetHoldHeading stops translating and holds the given heading.
func (h *Holder) SetHoldHeading(headingDegrees float64) {
	h.controlLock.Lock()
	defer h.controlLock.Unlock()
	h.forward = 0
	h.strafe = 0
	h.targetHeading = angle.FromFloat(headingDegrees)
}

func (h *Holder) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer fmt.Println("Heading holder loop exited")
	defer h.stopMotors()

	lastReport, err := h.waitForFirstReport(ctx)
	if err != nil {
		return
	}
	h.update(lastReport.RobotYaw(), 0)

	lastLoopStart := time.Now()
	for ctx.Err() == nil {
		// This should pop every 10ms
		report, err := h.IMU.WaitForReportAfter(ctx, lastReport.Time)
		if err != nil {
			return
		}
		now := time.Now()
		loopTime := now.Sub(lastLoopStart)
		lastLoopStart = now

		speeds := h.update(report.RobotYaw(), loopTime.Seconds())
		if err := h.Motors.SetMotorSpeeds(speeds[0], speeds[1], speeds[2], speeds[3]); err != nil {
			fmt.Println("Failed to set motor speeds:", err)
		}
		lastReport = report
	}
}

func (h *Holder) waitForFirstReport(ctx context.Context) (bno08x.IMUReport, error) {
	lastPrint := time.Now()
	for {
		if ctx.Err() != nil {
			return bno08x.IMUReport{}, ctx.Err()
		}
		if r := h.IMU.CurrentReport(); !r.Time.IsZero() {
			return r, nil
		}
		if time.Since(lastPrint) > time.Second {
			fmt.Println("Waiting for first reading from IMU...")
			lastPrint = time.Now()
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// update runs one iteration of the control loop for a new IMU yaw reading
// and returns the motor speeds to apply.  The first call latches the IMU
// offset so that the bot's heading reads as StartHeading.
func (h *Holder) update(imuYaw angle.PlusMinus180, dtSecs float64) picobldc.PerMotorVal[int16] {
	h.controlLock.Lock()
	if !h.haveOffset {
		h.imuOffset = imuYaw.Sub(angle.FromFloat(h.StartHeading))
		h.haveOffset = true
		h.currentHeading = angle.FromFloat(h.StartHeading)
		h.targetHeading = h.currentHeading
	}
	heading := imuYaw.Sub(h.imuOffset)
	h.currentHeading = heading
	c := h.controls
	headingError := angle.Error(c.targetHeading.Float(), heading.Float())
	rotation := h.rotation.Update(headingError, dtSecs)
	h.controlLock.Unlock()

	maxDelta := maxThrottleDeltaPerSec * dtSecs
	h.filteredForward = slew(h.filteredForward, c.forward, maxDelta)
	h.filteredStrafe = slew(h.filteredStrafe, c.strafe, maxDelta)

	if h.Odometry != nil && dtSecs > 0 {
		h.Odometry.Advance(
			h.filteredForward*h.MaxSpeedMPS*dtSecs,
			h.filteredStrafe*h.MaxSpeedMPS*dtSecs,
			heading.Float(),
		)
	}

	return Mix(h.filteredForward*h.MaxSpeedMPS, h.filteredStrafe*h.MaxSpeedMPS, rotation)
}

// Mix maps forward/left speeds in m/s and a rotation correction (+tive =
// anti-clockwise) onto the four mecanum wheels.
func Mix(forwardMPS, leftMPS, rotation float64) picobldc.PerMotorVal[int16] {
	throttleRPS := forwardMPS * 1000 / chassis.WheelCircumMM
	translationRPS := leftMPS * 1000 * math.Sqrt2 / chassis.WheelCircumMM
	rotationRPS := rotation * chassis.RotationRPSPerUnit

	// Motor rotation direction: positive = anti-clockwise.
	rps := picobldc.PerMotorVal[float64]{
		picobldc.FrontLeft:  throttleRPS - rotationRPS - translationRPS,
		picobldc.FrontRight: -throttleRPS - rotationRPS - translationRPS,
		picobldc.BackLeft:   throttleRPS - rotationRPS + translationRPS,
		picobldc.BackRight:  -throttleRPS - rotationRPS + translationRPS,
	}

	m := 0.0
	for _, v := range rps {
		m = math.Max(m, math.Abs(v))
	}
	scale := 1.0
	if m > chassis.MaxWheelRPS {
		scale = chassis.MaxWheelRPS / m
	}

	var out picobldc.PerMotorVal[int16]
	for i, v := range rps {
		out[i] = picobldc.RPSToMotorSpeed(v * scale)
	}
	return out
}

func (h *Holder) stopMotors() {
	if err := h.Motors.SetMotorSpeeds(0, 0, 0, 0); err != nil {
		fmt.Println("Failed to set motor speeds:", err)
	}
}

func slew(current, target, maxDelta float64) float64 {
	if target > current+maxDelta {
		return current + maxDelta
	} else if target < current-maxDelta {
		return current - maxDelta
	}
	return target
}
