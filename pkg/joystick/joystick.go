package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

const DefaultDevice = "/dev/input/js0"

// Button and pad mappings:
//
// Buttons
//
//    Cross     = 0
//    Circle    = 1
//    Triangle  = 2
//    Square    = 3
//    L1        = 4
//    R1        = 5
//    L2        = 6 (also an axis)
//    R2        = 7 (also an axis)
//    Share     = 8
//    Options   = 9
//    PS        = 10
//    L stick   = 11
//    R stick   = 12
//
// Axes
//
//    D-pad   u/d = 7 (up = -32767; down = +32767)
//            l/r = 6 (left = -32767; right = +32767)
//    L stick u/d = 1 (up = -32767; down = +32767)
//            l/r = 0 (left = -32767; right = +32767)
//    R stick u/d = 4 (up = -32767; down = +32767)
//            l/r = 3 (left = -32767; right = +32767)
//    L2          = 2 (unpressed = -32767; fully-pressed = 32767)
//    R2          = 5 (unpressed = -32767; fully-pressed = 32767)

type EventType uint8

const (
	EventTypeButton = 1
	EventTypeAxis   = 2
)

const (
	ButtonSquare   = 3
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonLStick   = 11
	ButtonRStick   = 12
	ButtonPS       = 10

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return FromReader(f), nil
}

// FromReader wraps a stream of raw js events.
func FromReader(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

// IsPress is true for the press (not the release) of the given button.
func (e *Event) IsPress(button uint8) bool {
	return e.Type == EventTypeButton && e.Number == button && e.Value == 1
}

// Direction is -1, 0 or 1 for an axis pushed negative, centred or positive.
func (e *Event) Direction(axis uint8) int {
	if e.Type != EventTypeAxis || e.Number != axis {
		return 0
	}
	switch {
	case e.Value < -16384:
		return -1
	case e.Value > 16384:
		return 1
	default:
		return 0
	}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var rawEvent rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &rawEvent)
	if err != nil {
		return nil, err
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = rawEvent.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(rawEvent.Time-j.deviceEpoch) * time.Millisecond),
		Value:  rawEvent.Value,
		Type:   EventType(rawEvent.Type & 0x7f),
		Number: rawEvent.Number,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}

// WaitForJoystick polls for the device until it appears or ctx is done.
func WaitForJoystick(ctx context.Context, device string) (*Joystick, error) {
	firstLog := true
	for {
		j, err := NewJoystick(device)
		if err == nil {
			fmt.Printf("Opened joystick\n")
			return j, nil
		}
		if firstLog {
			fmt.Printf("Waiting for joystick: %v.\n", err)
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
}

// Events reads events in the background until the device fails or ctx is
// done; then the channel is closed.
func (j *Joystick) Events(ctx context.Context) <-chan *Event {
	events := make(chan *Event, 1)
	go func() {
		defer close(events)
		defer j.Close()
		for ctx.Err() == nil {
			event, err := j.ReadEvent()
			if err != nil {
				fmt.Printf("Failed to read from joystick: %v.\n", err)
				return
			}
			fmt.Printf("Joy: %s\n", event)
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}
