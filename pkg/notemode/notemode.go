package notemode

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tigerbot-team/notechaser/pkg/approach"
	"github.com/tigerbot-team/notechaser/pkg/joystick"
	"github.com/tigerbot-team/notechaser/pkg/robotstate"
	"github.com/tigerbot-team/notechaser/pkg/scheduler"
	"github.com/tigerbot-team/notechaser/pkg/tunable"
)

type Log func(string, ...any)

type Deps struct {
	Scheduler *scheduler.Scheduler
	Camera    approach.FrameSource
	Pose      approach.PoseSource
	State     *robotstate.State
	Drive     approach.Drive
	Observers []approach.Observer
	Log       Log
}

// NoteMode drives the note approach from the joystick:
//
//	R1        start an approach run
//	Square    cancel the run
//	Triangle  toggle autonomous/teleop
//	Circle    toggle red/blue alliance
//	D-pad     up/down adjusts the selected tunable, left/right selects
type NoteMode struct {
	Deps

	cfg      approach.Config
	Tunables tunable.Tunables
	yawBias  *tunable.Tunable
	pitchGap *tunable.Tunable

	cancel         context.CancelFunc
	stopWG         sync.WaitGroup
	joystickEvents chan *joystick.Event

	lock       sync.Mutex
	run        *run
	lastResult *approach.Controller
}

type run struct {
	id         string
	controller *approach.Controller
	cancel     context.CancelFunc
	done       <-chan struct{}
}

func New(deps Deps, cfg approach.Config) *NoteMode {
	if deps.Log == nil {
		deps.Log = func(f string, args ...any) {
			fmt.Printf(f+"\n", args...)
		}
	}
	m := &NoteMode{
		Deps:           deps,
		cfg:            cfg,
		joystickEvents: make(chan *joystick.Event, 10),
	}
	m.yawBias = m.Tunables.Create("yaw-bias", cfg.YawBiasDegrees, 0.5)
	m.pitchGap = m.Tunables.Create("pitch-gap", cfg.SelectionPitchGap, 1)
	return m
}

func (m *NoteMode) Name() string {
	return "NOTE CHASER"
}

func (m *NoteMode) StartupSound() string {
	return "notemode.wav"
}

func (m *NoteMode) Start(ctx context.Context) {
	m.stopWG.Add(1)
	var loopCtx context.Context
	loopCtx, m.cancel = context.WithCancel(ctx)
	go m.loop(loopCtx)
}

func (m *NoteMode) Stop() {
	m.cancel()
	m.stopWG.Wait()
}

// OnJoystickEvent queues the event for the mode's goroutine.
func (m *NoteMode) OnJoystickEvent(event *joystick.Event) {
	select {
	case m.joystickEvents <- event:
	default:
		m.Log("NoteMode: dropping joystick event %v", event)
	}
}

// ApproachConfig is the configuration the next run will use, including
// any tuning.
func (m *NoteMode) ApproachConfig() approach.Config {
	cfg := m.cfg
	cfg.YawBiasDegrees = m.yawBias.Get()
	cfg.SelectionPitchGap = m.pitchGap.Get()
	return cfg
}

func (m *NoteMode) loop(ctx context.Context) {
	defer m.stopWG.Done()
	defer m.CancelApproach()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.joystickEvents:
			m.handle(ctx, event)
		}
	}
}

func (m *NoteMode) handle(ctx context.Context, event *joystick.Event) {
	switch {
	case event.IsPress(joystick.ButtonR1):
		m.StartApproach(ctx)
	case event.IsPress(joystick.ButtonSquare):
		m.CancelApproach()
	case event.IsPress(joystick.ButtonTriangle):
		m.Log("NoteMode: autonomous=%v", m.State.ToggleAutonomous())
	case event.IsPress(joystick.ButtonCircle):
		m.Log("NoteMode: redAlliance=%v", m.State.ToggleAlliance())
	case event.Type == joystick.EventTypeAxis:
		// Up on the D-pad is negative.
		if d := event.Direction(joystick.AxisDPadY); d != 0 {
			m.Tunables.Current().Add(-d)
		}
		switch event.Direction(joystick.AxisDPadX) {
		case -1:
			m.Tunables.SelectPrev()
		case 1:
			m.Tunables.SelectNext()
		}
	}
}

// StartApproach schedules a fresh controller unless one is already running.
// Returns the channel that closes when the run stops.
func (m *NoteMode) StartApproach(ctx context.Context) <-chan struct{} {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.run != nil {
		select {
		case <-m.run.done:
		default:
			m.Log("NoteMode: already running")
			return m.run.done
		}
	}

	id := uuid.NewString()
	m.Log("NoteMode: starting approach run %s (%v)", id, m.State)
	c := approach.New(approach.Deps{
		Camera:    m.Camera,
		Pose:      m.Pose,
		Alliance:  m.State,
		Match:     m.State,
		Note:      m.State,
		Drive:     m.Drive,
		Observers: m.Observers,
	}, m.ApproachConfig())

	runCtx, cancel := context.WithCancel(ctx)
	m.run = &run{
		id:         id,
		controller: c,
		cancel:     cancel,
		done:       m.Scheduler.Schedule(runCtx, c),
	}
	m.lastResult = c
	return m.run.done
}

// CancelApproach interrupts the current run, if any, and waits for it to
// stop.
func (m *NoteMode) CancelApproach() {
	m.lock.Lock()
	r := m.run
	m.run = nil
	m.lock.Unlock()

	if r == nil {
		return
	}
	m.Log("NoteMode: cancelling approach run %s", r.id)
	r.cancel()
	<-r.done
}

// Running reports whether an approach run is in progress.
func (m *NoteMode) Running() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.run == nil {
		return false
	}
	select {
	case <-m.run.done:
		return false
	default:
		return true
	}
}

// LastController is the controller of the most recent run, or nil.
func (m *NoteMode) LastController() *approach.Controller {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.lastResult
}
