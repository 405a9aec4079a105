package approach

import "github.com/tigerbot-team/notechaser/pkg/vision"

// PhaseContext is a snapshot of the match state taken once per tick.
type PhaseContext struct {
	Autonomous  bool
	RedAlliance bool
	PoseX       float64
}

// Gate decides whether a note is worth chasing and whether the approach
// should give up.
type Gate struct {
	FarPitchDegrees float64
	BlueGateX       float64
	RedGateX        float64
	MidfieldX       float64
}

func NewGate(cfg Config) Gate {
	return Gate{
		FarPitchDegrees: cfg.FarPitchDegrees,
		BlueGateX:       cfg.BlueGateX,
		RedGateX:        cfg.RedGateX,
		MidfieldX:       cfg.MidfieldX,
	}
}

// ShouldPursue is false only in autonomous, for a distant note, once we've
// already travelled past our gate line.  Manual control always pursues.
func (g Gate) ShouldPursue(target vision.Detection, pc PhaseContext) bool {
	if !pc.Autonomous || !(target.Pitch > g.FarPitchDegrees) {
		return true
	}
	if pc.RedAlliance {
		return !(pc.PoseX < g.RedGateX)
	}
	return !(pc.PoseX > g.BlueGateX)
}

// Finished reports whether an autonomous approach should end: either
// there's no note, or we've crossed the centre line into the other half.
func (g Gate) Finished(noteAvailable bool, pc PhaseContext) bool {
	if !pc.Autonomous {
		return false
	}
	if !noteAvailable {
		return true
	}
	if pc.RedAlliance {
		return pc.PoseX < g.MidfieldX
	}
	return pc.PoseX > g.MidfieldX
}
