package notemode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/notechaser/pkg/approach"
	"github.com/tigerbot-team/notechaser/pkg/joystick"
	"github.com/tigerbot-team/notechaser/pkg/robotstate"
	"github.com/tigerbot-team/notechaser/pkg/scheduler"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

type fakeCamera struct {
	latest vision.Latest
}

func (c *fakeCamera) LatestFrame() vision.Frame {
	return c.latest.LatestFrame()
}

type fakePose float64

func (p fakePose) PoseX() float64 { return float64(p) }

type fakeDrive struct {
	lock     sync.Mutex
	heading  float64
	commands int
	holds    []float64
}

func (d *fakeDrive) SubsystemName() string { return "drive" }

func (d *fakeDrive) HeadingDegrees() float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.heading
}

func (d *fakeDrive) DriveAndHoldHeading(forward, strafe, heading float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.commands++
}

func (d *fakeDrive) ResetRotationController() {}

func (d *fakeDrive) SetHoldHeading(h float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.holds = append(d.holds, h)
}

func (d *fakeDrive) counts() (int, int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.commands, len(d.holds)
}

type eventLog struct {
	lock   sync.Mutex
	events []approach.EventType
}

func (l *eventLog) OnApproachEvent(e approach.Event) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.events = append(l.events, e.Type)
}

func (l *eventLog) types() []approach.EventType {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]approach.EventType(nil), l.events...)
}

type harness struct {
	mode   *NoteMode
	camera *fakeCamera
	drive  *fakeDrive
	state  *robotstate.State
	events *eventLog
}

func newHarness(t *testing.T, auto, red bool, poseX float64) *harness {
	h := &harness{
		camera: &fakeCamera{},
		drive:  &fakeDrive{},
		state:  robotstate.New(auto, red),
		events: &eventLog{},
	}
	h.mode = New(Deps{
		Scheduler: scheduler.New(time.Millisecond, t.Logf),
		Camera:    h.camera,
		Pose:      fakePose(poseX),
		State:     h.state,
		Drive:     h.drive,
		Observers: []approach.Observer{h.events},
		Log:       t.Logf,
	}, approach.DefaultConfig())
	return h
}

func press(button uint8) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeButton, Number: button, Value: 1}
}

func dpad(axis uint8, value int16) *joystick.Event {
	return &joystick.Event{Type: joystick.EventTypeAxis, Number: axis, Value: value}
}

func TestTeleopRunUntilCancelled(t *testing.T) {
	h := newHarness(t, false, false, 0)
	h.camera.latest.Publish(vision.Frame{
		HasTargets: true,
		Detections: []vision.Detection{{Pitch: 5, Yaw: 3}},
	})

	h.mode.StartApproach(context.Background())
	require.Eventually(t, func() bool {
		n, _ := h.drive.counts()
		return n >= 3
	}, 2*time.Second, time.Millisecond)
	assert.True(t, h.mode.Running())
	assert.True(t, h.state.NoteAvailable())

	h.mode.CancelApproach()
	assert.False(t, h.mode.Running())
	assert.False(t, h.state.NoteAvailable())
	_, holds := h.drive.counts()
	assert.Equal(t, 1, holds)

	evs := h.events.types()
	require.NotEmpty(t, evs)
	assert.Equal(t, approach.EventStarted, evs[0])
	assert.Equal(t, approach.EventStopped, evs[len(evs)-1])
	assert.NotContains(t, evs, approach.EventFinished)
}

func TestAutoRunFinishesPastMidfield(t *testing.T) {
	// Blue, past the midfield line, nothing in view.
	h := newHarness(t, true, false, 9)

	done := h.mode.StartApproach(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("approach did not finish")
	}
	assert.False(t, h.mode.Running())
	assert.Contains(t, h.events.types(), approach.EventFinished)
	assert.NotNil(t, h.mode.LastController())
}

func TestSecondStartWhileRunningIsIgnored(t *testing.T) {
	h := newHarness(t, false, false, 0)
	first := h.mode.StartApproach(context.Background())
	c := h.mode.LastController()
	second := h.mode.StartApproach(context.Background())
	assert.Equal(t, first, second)
	assert.Same(t, c, h.mode.LastController())
	h.mode.CancelApproach()
}

func TestJoystickButtons(t *testing.T) {
	h := newHarness(t, false, false, 0)
	h.mode.Start(context.Background())
	defer h.mode.Stop()

	h.mode.OnJoystickEvent(press(joystick.ButtonTriangle))
	h.mode.OnJoystickEvent(press(joystick.ButtonCircle))
	require.Eventually(t, func() bool {
		return h.state.IsAutonomous() && h.state.OnRedAlliance()
	}, time.Second, time.Millisecond)

	// Back to teleop so the run doesn't finish straight away.
	h.mode.OnJoystickEvent(press(joystick.ButtonTriangle))
	require.Eventually(t, func() bool { return !h.state.IsAutonomous() }, time.Second, time.Millisecond)

	h.mode.OnJoystickEvent(press(joystick.ButtonR1))
	require.Eventually(t, h.mode.Running, time.Second, time.Millisecond)

	h.mode.OnJoystickEvent(press(joystick.ButtonSquare))
	require.Eventually(t, func() bool { return !h.mode.Running() }, time.Second, time.Millisecond)
}

func TestDPadTunesApproach(t *testing.T) {
	h := newHarness(t, false, false, 0)
	ctx := context.Background()

	// Up twice on the yaw bias.
	h.mode.handle(ctx, dpad(joystick.AxisDPadY, -32767))
	h.mode.handle(ctx, dpad(joystick.AxisDPadY, 0))
	h.mode.handle(ctx, dpad(joystick.AxisDPadY, -32767))
	assert.InDelta(t, 2.0, h.mode.ApproachConfig().YawBiasDegrees, 1e-9)

	// Right selects the pitch gap; down lowers it.
	h.mode.handle(ctx, dpad(joystick.AxisDPadX, 32767))
	h.mode.handle(ctx, dpad(joystick.AxisDPadY, 32767))
	cfg := h.mode.ApproachConfig()
	assert.InDelta(t, 11, cfg.SelectionPitchGap, 1e-9)
	assert.InDelta(t, 2.0, cfg.YawBiasDegrees, 1e-9)
}

func TestStopCancelsRun(t *testing.T) {
	h := newHarness(t, false, false, 0)
	h.mode.Start(context.Background())
	h.mode.OnJoystickEvent(press(joystick.ButtonR1))
	require.Eventually(t, h.mode.Running, time.Second, time.Millisecond)

	h.mode.Stop()
	assert.False(t, h.mode.Running())
	assert.Contains(t, h.events.types(), approach.EventStopped)
}
