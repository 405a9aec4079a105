package robotstate

import (
	"fmt"
	"sync/atomic"
)

// State holds the match-wide flags shared between behaviors.  Each flag has
// a single writer; reads are lock-free.
type State struct {
	noteAvailable atomic.Bool
	autonomous    atomic.Bool
	redAlliance   atomic.Bool

	// Called after any flag changes value.
	OnChange func(name string, value bool)
}

func New(autonomous, redAlliance bool) *State {
	s := &State{}
	s.autonomous.Store(autonomous)
	s.redAlliance.Store(redAlliance)
	return s
}

func (s *State) NoteAvailable() bool {
	return s.noteAvailable.Load()
}

func (s *State) SetNoteAvailable(v bool) {
	s.set(&s.noteAvailable, "noteAvailable", v)
}

func (s *State) IsAutonomous() bool {
	return s.autonomous.Load()
}

func (s *State) SetAutonomous(v bool) {
	s.set(&s.autonomous, "autonomous", v)
}

func (s *State) ToggleAutonomous() bool {
	v := !s.autonomous.Load()
	s.SetAutonomous(v)
	return v
}

func (s *State) OnRedAlliance() bool {
	return s.redAlliance.Load()
}

func (s *State) SetRedAlliance(v bool) {
	s.set(&s.redAlliance, "redAlliance", v)
}

func (s *State) ToggleAlliance() bool {
	v := !s.redAlliance.Load()
	s.SetRedAlliance(v)
	return v
}

func (s *State) String() string {
	alliance := "blue"
	if s.OnRedAlliance() {
		alliance = "red"
	}
	phase := "teleop"
	if s.IsAutonomous() {
		phase = "auto"
	}
	return fmt.Sprintf("%s/%s note=%v", alliance, phase, s.NoteAvailable())
}

func (s *State) set(flag *atomic.Bool, name string, v bool) {
	if flag.Swap(v) != v && s.OnChange != nil {
		s.OnChange(name, v)
	}
}
