package approach

import (
	"github.com/tigerbot-team/notechaser/pkg/scheduler"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

type Phase int

const (
	Idle Phase = iota
	Pursuing
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pursuing:
		return "pursuing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

type FrameSource interface {
	LatestFrame() vision.Frame
}

type PoseSource interface {
	PoseX() float64
}

type AllianceSource interface {
	OnRedAlliance() bool
}

type PhaseSource interface {
	IsAutonomous() bool
}

type NoteFlag interface {
	NoteAvailable() bool
	SetNoteAvailable(bool)
}

// Drive is the part of the chassis that the approach commands.  Speeds are
// fractions of max speed; headings are field-relative degrees.
type Drive interface {
	HeadingDegrees() float64
	DriveAndHoldHeading(forwardSpeed, strafeSpeed, targetHeadingDegrees float64)
	ResetRotationController()
	SetHoldHeading(headingDegrees float64)
}

type DriveCommand struct {
	ForwardSpeed  float64
	StrafeSpeed   float64
	TargetHeading float64
}

type Deps struct {
	Camera   FrameSource
	Pose     PoseSource
	Alliance AllianceSource
	Match    PhaseSource
	Note     NoteFlag
	Drive    Drive

	Observers []Observer
}

// Controller finds the best note each tick and drives at it.  A Controller
// runs once; build a new one for the next approach.
type Controller struct {
	Deps

	policy   Policy
	gate     Gate
	pitchGap float64

	phase     Phase
	hadTarget bool
	lastCmd   DriveCommand
}

var _ scheduler.Behavior = (*Controller)(nil)

func New(deps Deps, cfg Config) *Controller {
	return &Controller{
		Deps:     deps,
		policy:   NewPolicy(cfg),
		gate:     NewGate(cfg),
		pitchGap: cfg.SelectionPitchGap,
	}
}

func (c *Controller) Name() string {
	return "FIND AND GOTO NOTE"
}

// Requirements claims the drive if it is a schedulable subsystem.
func (c *Controller) Requirements() []scheduler.Subsystem {
	if s, ok := c.Drive.(scheduler.Subsystem); ok {
		return []scheduler.Subsystem{s}
	}
	return nil
}

func (c *Controller) Phase() Phase {
	return c.phase
}

// lastCommand is the command sent on the most recent tick.
func (c *Controller) lastCommand() DriveCommand {
	return c.lastCmd
}

func (c *Controller) Start() {
	if c.phase != Idle {
		return
	}
	c.phase = Pursuing
	c.hadTarget = false
	c.emit(Event{Type: EventStarted})
}

func (c *Controller) Tick() {
	if c.phase != Pursuing {
		return
	}

	heading := c.Drive.HeadingDegrees()
	cmd := DriveCommand{TargetHeading: heading}

	pursuing := false
	target, ok := vision.SelectBestWithGap(c.Camera.LatestFrame(), c.pitchGap)
	if !ok {
		c.Note.SetNoteAvailable(false)
		if c.hadTarget {
			c.emit(Event{Type: EventTargetLost})
		}
	} else if !c.gate.ShouldPursue(target, c.phaseContext()) {
		// Leave the note flag as it was.
		c.emit(Event{Type: EventGatedOut, Target: target})
	} else {
		pursuing = true
		c.Note.SetNoteAvailable(true)
		speed, rotation := c.policy.Command(target)
		cmd.ForwardSpeed = speed
		cmd.TargetHeading = heading + rotation
		if !c.hadTarget {
			c.emit(Event{Type: EventTargetAcquired, Target: target})
		}
	}
	c.hadTarget = pursuing

	c.lastCmd = cmd
	c.Drive.DriveAndHoldHeading(cmd.ForwardSpeed, cmd.StrafeSpeed, cmd.TargetHeading)
}

func (c *Controller) IsFinished() bool {
	if c.phase == Finished {
		return true
	}
	return c.gate.Finished(c.Note.NoteAvailable(), c.phaseContext())
}

// Stop hands the drive back holding its current heading, with no stale
// integral left in the rotation controller.
func (c *Controller) Stop(interrupted bool) {
	if c.phase != Pursuing {
		return
	}
	c.phase = Finished
	c.Note.SetNoteAvailable(false)
	c.Drive.ResetRotationController()
	c.Drive.SetHoldHeading(c.Drive.HeadingDegrees())
	if !interrupted {
		c.emit(Event{Type: EventFinished})
	}
	c.emit(Event{Type: EventStopped, Interrupted: interrupted})
}

func (c *Controller) phaseContext() PhaseContext {
	return PhaseContext{
		Autonomous:  c.Match.IsAutonomous(),
		RedAlliance: c.Alliance.OnRedAlliance(),
		PoseX:       c.Pose.PoseX(),
	}
}

func (c *Controller) emit(e Event) {
	e.Phase = c.phase
	for _, o := range c.Observers {
		o.OnApproachEvent(e)
	}
}
