package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBytes(t *testing.T, evs ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range evs {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := FromReader(rawBytes(t,
		rawEvent{Time: 1000, Value: 1, Type: EventTypeButton, Number: ButtonR1},
		rawEvent{Time: 1250, Value: -32767, Type: EventTypeAxis | 0x80, Number: AxisDPadY},
	))

	e, err := j.ReadEvent()
	require.NoError(t, err)
	assert.True(t, e.IsPress(ButtonR1))
	assert.False(t, e.IsPress(ButtonSquare))
	assert.Equal(t, "button(5)=1", e.String())

	e2, err := j.ReadEvent()
	require.NoError(t, err)
	// The init flag is masked off.
	assert.Equal(t, EventType(EventTypeAxis), e2.Type)
	assert.Equal(t, -1, e2.Direction(AxisDPadY))
	assert.Equal(t, 0, e2.Direction(AxisDPadX))
	assert.Equal(t, 250*time.Millisecond, e2.Time.Sub(e.Time))

	_, err = j.ReadEvent()
	assert.Error(t, err)
}

func TestEventsClosesAtEOF(t *testing.T) {
	j := FromReader(rawBytes(t,
		rawEvent{Time: 1, Value: 1, Type: EventTypeButton, Number: ButtonCircle},
	))

	var got []*Event
	for e := range j.Events(context.Background()) {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPress(ButtonCircle))
}

func TestReleaseIsNotPress(t *testing.T) {
	e := &Event{Type: EventTypeButton, Number: ButtonSquare, Value: 0}
	assert.False(t, e.IsPress(ButtonSquare))
	assert.Equal(t, 1, (&Event{Type: EventTypeAxis, Number: AxisDPadX, Value: 32767}).Direction(AxisDPadX))
}
