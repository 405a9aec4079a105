package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tigerbot-team/notechaser/pkg/headingholder/angle"
)

const DefaultSerialDevice = "/dev/ttyAMA0"

const ReportFrequency = 100
const ReportInterval = time.Second / ReportFrequency

// UART-RVC packets: 0xaaaa header, index, yaw/pitch/roll in 0.01 degrees,
// x/y/z acceleration, three reserved bytes and a checksum.
const packetLen = 19

var (
	ErrLostSync    = errors.New("BNO08X: lost sync")
	ErrBadChecksum = errors.New("BNO08X: bad checksum")
)

type IMUReport struct {
	Time   time.Time
	Index  uint8
	Yaw    int16
	Pitch  int16
	Roll   int16
	XAccel int16
	YAccel int16
	ZAccel int16
}

var startTime = time.Now()

func (i IMUReport) String() string {
	return fmt.Sprintf("%s [%02x] Y:%7.2f P:%7.2f R:%7.2f X:%7.2f Y:%7.2f Z:%7.2f",
		time.Since(startTime).Round(time.Millisecond), i.Index, float64(i.Yaw)/100.0, float64(i.Pitch)/100.0, float64(i.Roll)/100.0,
		float64(i.XAccel)/100.0, float64(i.YAccel)/100.0, float64(i.ZAccel)/100.0)
}

func (i IMUReport) YawDegrees() float64 {
	return float64(i.Yaw) / 100.0
}

// RobotYaw is the yaw with positive angles anti-clockwise.
func (i IMUReport) RobotYaw() angle.PlusMinus180 {
	return angle.FromFloat(i.YawDegrees())
}

type Interface interface {
	CurrentReport() IMUReport
	WaitForReportAfter(ctx context.Context, t time.Time) (IMUReport, error)
}

type BNO08X struct {
	Device string

	lock       sync.Mutex
	cond       *sync.Cond
	lastReport IMUReport
}

var _ Interface = (*BNO08X)(nil)

func New(device string) *BNO08X {
	if device == "" {
		device = DefaultSerialDevice
	}
	b := &BNO08X{Device: device}
	b.cond = sync.NewCond(&b.lock)
	return b
}

func (b *BNO08X) CurrentReport() IMUReport {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastReport
}

// WaitForReportAfter blocks until there's a report newer than t or ctx is
// done.
func (b *BNO08X) WaitForReportAfter(ctx context.Context, t time.Time) (IMUReport, error) {
	stop := context.AfterFunc(ctx, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	b.lock.Lock()
	defer b.lock.Unlock()
	for !b.lastReport.Time.After(t) {
		if ctx.Err() != nil {
			return IMUReport{}, ctx.Err()
		}
		b.cond.Wait()
	}
	return b.lastReport, nil
}

func (b *BNO08X) LoopReadingReports(ctx context.Context) {
	defer func() {
		b.lock.Lock()
		b.cond.Broadcast()
		b.lock.Unlock()
	}()
	for ctx.Err() == nil {
		err := b.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		fmt.Println("BNO08X loop stopped; will retry", err)
		time.Sleep(100 * time.Millisecond)
	}
}

func (b *BNO08X) openAndLoop(ctx context.Context) error {
	mode := &serial.Mode{
		BaudRate: 115200,
	}
	s, err := serial.Open(b.Device, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", b.Device, err)
	}
	defer s.Close()

	return b.readPackets(ctx, bufio.NewReader(s))
}

func (b *BNO08X) readPackets(ctx context.Context, br *bufio.Reader) error {
	buf := make([]byte, packetLen)
	for ctx.Err() == nil {
		fmt.Println("BNO08X Resync...")
		if err := resync(ctx, br); err != nil {
			return err
		}
		fmt.Println("BNO08X: In sync with packet stream.")

		for ctx.Err() == nil {
			if _, err := io.ReadFull(br, buf); err != nil {
				return fmt.Errorf("failed to read from serial: %w", err)
			}
			report, err := DecodePacket(buf)
			if err != nil {
				fmt.Println(err)
				break
			}
			report.Time = time.Now()
			b.SetReport(report)
		}
	}
	return ctx.Err()
}

func resync(ctx context.Context, br *bufio.Reader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		buf, err := br.Peek(2)
		if err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
		if bytes.Equal(buf, []byte{0xaa, 0xaa}) {
			return nil
		}
		if _, err := br.Discard(1); err != nil {
			return fmt.Errorf("failed to read from serial: %w", err)
		}
	}
}

// DecodePacket parses one packet.  The returned report has no Time set.
func DecodePacket(buf []byte) (IMUReport, error) {
	if len(buf) != packetLen || !bytes.Equal(buf[:2], []byte{0xaa, 0xaa}) {
		return IMUReport{}, ErrLostSync
	}
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	if buf[packetLen-1] != checksum {
		return IMUReport{}, fmt.Errorf("%w %x != %x", ErrBadChecksum, buf[packetLen-1], checksum)
	}
	var report IMUReport
	report.Index = buf[2]
	report.Yaw = int16(binary.LittleEndian.Uint16(buf[3:5]))
	report.Pitch = int16(binary.LittleEndian.Uint16(buf[5:7]))
	report.Roll = int16(binary.LittleEndian.Uint16(buf[7:9]))
	report.XAccel = int16(binary.LittleEndian.Uint16(buf[9:11]))
	report.YAccel = int16(binary.LittleEndian.Uint16(buf[11:13]))
	report.ZAccel = int16(binary.LittleEndian.Uint16(buf[13:15]))
	return report, nil
}

// SetReport publishes a report as if it had come from the serial port.
func (b *BNO08X) SetReport(report IMUReport) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lastReport = report
	b.cond.Broadcast()
}
