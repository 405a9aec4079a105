package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePacket(index uint8, yaw, pitch, roll int16) []byte {
	buf := make([]byte, packetLen)
	buf[0], buf[1] = 0xaa, 0xaa
	buf[2] = index
	binary.LittleEndian.PutUint16(buf[3:5], uint16(yaw))
	binary.LittleEndian.PutUint16(buf[5:7], uint16(pitch))
	binary.LittleEndian.PutUint16(buf[7:9], uint16(roll))
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	buf[packetLen-1] = checksum
	return buf
}

func TestDecodePacket(t *testing.T) {
	r, err := DecodePacket(makePacket(7, -9050, 120, -3))
	require.NoError(t, err)
	assert.Equal(t, uint8(7), r.Index)
	assert.InDelta(t, -90.5, r.YawDegrees(), 1e-9)
	assert.InDelta(t, -90.5, r.RobotYaw().Float(), 1e-9)
	assert.Equal(t, int16(120), r.Pitch)
	assert.Equal(t, int16(-3), r.Roll)
}

func TestDecodePacketErrors(t *testing.T) {
	p := makePacket(1, 100, 0, 0)
	p[packetLen-1]++
	_, err := DecodePacket(p)
	assert.ErrorIs(t, err, ErrBadChecksum)

	p = makePacket(1, 100, 0, 0)
	p[0] = 0
	_, err = DecodePacket(p)
	assert.ErrorIs(t, err, ErrLostSync)

	_, err = DecodePacket(p[:4])
	assert.ErrorIs(t, err, ErrLostSync)
}

func TestReadPacketsResyncs(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0x01, 0xaa, 0x02})
	stream.Write(makePacket(1, 1000, 0, 0))
	bad := makePacket(2, 2000, 0, 0)
	bad[packetLen-1]++
	stream.Write(bad)
	stream.Write(makePacket(3, 3000, 0, 0))

	b := New("")
	err := b.readPackets(context.Background(), bufio.NewReader(&stream))
	assert.Error(t, err, "stream should run dry")

	r := b.CurrentReport()
	assert.Equal(t, uint8(3), r.Index)
	assert.InDelta(t, 30, r.YawDegrees(), 1e-9)
	assert.False(t, r.Time.IsZero())
}

func TestWaitForReportAfter(t *testing.T) {
	b := New("")
	before := time.Now()
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.SetReport(IMUReport{Time: time.Now(), Index: 9})
	}()
	r, err := b.WaitForReportAfter(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), r.Index)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.WaitForReportAfter(ctx, r.Time)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
