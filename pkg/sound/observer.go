package sound

import (
	"github.com/tigerbot-team/notechaser/pkg/approach"
)

// Sounds for each approach event; events with no entry are silent.
var DefaultEventSounds = map[approach.EventType]string{
	approach.EventStarted:        "started.wav",
	approach.EventTargetAcquired: "note-spotted.wav",
	approach.EventTargetLost:     "note-lost.wav",
	approach.EventFinished:       "got-it.wav",
}

type Sink interface {
	Play(name string)
}

// Observer turns approach events into sounds.
type Observer struct {
	Sink   Sink
	Sounds map[approach.EventType]string
}

func NewObserver(sink Sink) *Observer {
	return &Observer{Sink: sink, Sounds: DefaultEventSounds}
}

func (o *Observer) OnApproachEvent(e approach.Event) {
	if name, ok := o.Sounds[e.Type]; ok {
		o.Sink.Play(name)
	}
}

type SinkFunc func(name string)

func (f SinkFunc) Play(name string) {
	f(name)
}
