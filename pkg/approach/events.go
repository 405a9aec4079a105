package approach

import (
	"fmt"

	"github.com/tigerbot-team/notechaser/pkg/vision"
)

type EventType int

const (
	EventStarted EventType = iota
	EventTargetAcquired
	EventTargetLost
	EventGatedOut
	EventFinished
	EventStopped
)

func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventTargetAcquired:
		return "target-acquired"
	case EventTargetLost:
		return "target-lost"
	case EventGatedOut:
		return "gated-out"
	case EventFinished:
		return "finished"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// Event describes a state change of the controller.  Target is only set for
// the events that involve one.
type Event struct {
	Type        EventType
	Phase       Phase
	Target      vision.Detection
	Interrupted bool
}

func (e Event) String() string {
	switch e.Type {
	case EventTargetAcquired, EventGatedOut:
		return fmt.Sprintf("%v pitch=%.1f yaw=%.1f", e.Type, e.Target.Pitch, e.Target.Yaw)
	case EventStopped:
		return fmt.Sprintf("%v interrupted=%v", e.Type, e.Interrupted)
	default:
		return e.Type.String()
	}
}

// Observer is notified synchronously from the tick goroutine, so it must
// not block.
type Observer interface {
	OnApproachEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnApproachEvent(e Event) {
	f(e)
}

type Log func(string, ...any)

// LogObserver prints every event.
func LogObserver(log Log) Observer {
	return ObserverFunc(func(e Event) {
		log("Approach: %v", e)
	})
}
