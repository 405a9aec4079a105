package picobldc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/exp/io/i2c"
)

const (
	PicoAddr = 0x42

	DefaultDevice = "/dev/i2c-1"
)

type Register byte

// Only the registers we use; the board has more.
const (
	RegCtrl            Register = 0
	RegStatus          Register = 1
	RegWatchdogTimeout Register = 2

	RegMot0V Register = 4
	RegMot1V Register = 5
	RegMot2V Register = 6
	RegMot3V Register = 7

	RegMot3Calib Register = 11

	RegBattV       Register = 12
	RegTemperature Register = 15
)

const (
	BattVLSB       = 0.004
	TemperatureLSB = 0.01
)

const (
	ctrlEnableI2CControl uint16 = 1 << iota
	ctrlRun
	ctrlDoCalib
	ctrlReset
	ctrlWatchdogEnable
)

type StatusFlag uint16

const (
	StatusFault StatusFlag = 1 << iota
	StatusCalibDone
	StatusWatchdogExpired
)

func (s StatusFlag) String() string {
	var parts []string
	if s&StatusFault != 0 {
		parts = append(parts, "fault")
	}
	if s&StatusCalibDone != 0 {
		parts = append(parts, "calibrated")
	}
	if s&StatusWatchdogExpired != 0 {
		parts = append(parts, "watchdog-expired")
	}
	if len(parts) == 0 {
		return "ok"
	}
	return strings.Join(parts, ",")
}

// Motor velocity registers are in 1/CountsPerRPS revolutions per second.
const CountsPerRPS = 256

type Motor int

const (
	FrontLeft Motor = iota
	FrontRight
	BackLeft
	BackRight
)

type PerMotorVal[T any] [4]T

var ErrNotReady = errors.New("Pico-BLDC not ready")

const (
	writeRetries    = 20
	configRefresh   = 100 * time.Millisecond
	calibrationWait = 30 * time.Second
)

type Interface interface {
	SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error
	Close() error
}

// Readings is a snapshot of the board's health registers.
type Readings struct {
	BattVolts    float32
	TemperatureC float32
	Status       StatusFlag
}

func (r Readings) String() string {
	return fmt.Sprintf("%.1fC %.2fV %v", r.TemperatureC, r.BattVolts, r.Status)
}

type PicoBLDC struct {
	bus *i2c.Devfs
	dev *i2c.Device

	lastCtrl        uint16
	lastCtrlTime    time.Time
	watchdogEnabled bool
}

var _ Interface = (*PicoBLDC)(nil)

func New(device string) (*PicoBLDC, error) {
	if device == "" {
		device = DefaultDevice
	}
	bus := &i2c.Devfs{Dev: device}
	dev, err := i2c.Open(bus, PicoAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open Pico-BLDC on %s: %w", device, err)
	}
	return &PicoBLDC{
		bus: bus,
		dev: dev,
	}, nil
}

// RPSToMotorSpeed converts a wheel speed to a register value, saturating.
func RPSToMotorSpeed(rps float64) int16 {
	v := rps * CountsPerRPS
	if math.IsNaN(v) {
		return 0
	}
	if v <= math.MinInt16 {
		return math.MinInt16
	}
	if v >= math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

// ctrlWord builds the control register value.  Reset is one-shot on the
// board so it is never remembered as part of the last written word.
func ctrlWord(reset, run, watchdog bool) uint16 {
	w := ctrlEnableI2CControl
	if reset {
		w |= ctrlReset
	}
	if run {
		w |= ctrlRun
	}
	if watchdog {
		w |= ctrlWatchdogEnable
	}
	return w
}

type regWrite struct {
	reg Register
	v   uint16
}

// speedWrites maps wheel speeds onto the board's motor channels.
func speedWrites(frontLeft, frontRight, backLeft, backRight int16) [4]regWrite {
	return [4]regWrite{
		{RegMot0V, uint16(backRight)},
		{RegMot1V, uint16(frontRight)},
		{RegMot2V, uint16(frontLeft)},
		{RegMot3V, uint16(backLeft)},
	}
}

func (p *PicoBLDC) Reset() error {
	return p.configure(true, false)
}

// SetWatchdog makes the board stop the motors if we stop talking to it for
// longer than timeout.  Zero disables it.
func (p *PicoBLDC) SetWatchdog(timeout time.Duration) error {
	if timeout == 0 {
		p.watchdogEnabled = false
		return p.configure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	if err := p.writeReg(RegWatchdogTimeout, uint16(ms)); err != nil {
		return err
	}

	p.watchdogEnabled = true
	return p.configure(false, false)
}

func (p *PicoBLDC) SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error {
	if err := p.configure(false, true); err != nil {
		return err
	}
	for _, w := range speedWrites(frontLeft, frontRight, backLeft, backRight) {
		if err := p.writeReg(w.reg, w.v); err != nil {
			return err
		}
	}
	return nil
}

func (p *PicoBLDC) Close() error {
	_ = p.Reset()
	return p.dev.Close()
}

func (p *PicoBLDC) Read() (Readings, error) {
	var r Readings
	raw, err := p.readReg(RegBattV)
	if err != nil {
		return r, err
	}
	r.BattVolts = float32(raw) * BattVLSB
	if raw, err = p.readReg(RegTemperature); err != nil {
		return r, err
	}
	r.TemperatureC = float32(raw) * TemperatureLSB
	if raw, err = p.readReg(RegStatus); err != nil {
		return r, err
	}
	r.Status = StatusFlag(raw)
	return r, nil
}

// configure writes the control register unless the same word went out
// recently.  The first write starts calibration if the board has none.
func (p *PicoBLDC) configure(reset, run bool) error {
	w := ctrlWord(reset, run, p.watchdogEnabled)
	if w == p.lastCtrl && time.Since(p.lastCtrlTime) < configRefresh {
		return nil
	}

	if p.lastCtrl == 0 {
		calib, err := p.readReg(RegMot3Calib)
		if err != nil {
			return err
		}
		if calib == 0 {
			fmt.Println("Pico: not calibrated, running calibration")
			w |= ctrlDoCalib
		}
	}

	if err := p.writeReg(RegCtrl, w); err != nil {
		return err
	}
	if w&ctrlDoCalib != 0 {
		if err := p.waitForCalibration(); err != nil {
			return err
		}
	}
	if err := p.writeReg(RegStatus, uint16(StatusCalibDone)); err != nil {
		return err
	}

	p.lastCtrlTime = time.Now()
	p.lastCtrl = w &^ (ctrlReset | ctrlDoCalib)
	return nil
}

func (p *PicoBLDC) waitForCalibration() error {
	deadline := time.Now().Add(calibrationWait)
	for {
		status, err := p.readReg(RegStatus)
		if err == nil && StatusFlag(status)&StatusCalibDone != 0 {
			fmt.Println("Pico: calibration done")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: calibration did not finish", ErrNotReady)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (p *PicoBLDC) writeReg(reg Register, value uint16) error {
	data := []byte{byte(reg), byte(value >> 8), byte(value)}
	var err error
	for try := 0; try < writeRetries; try++ {
		if err = p.dev.Write(data); err == nil {
			return nil
		}
		fmt.Println("Pico: write failed, reopening:", err)
		time.Sleep(time.Millisecond)
		_ = p.dev.Close()
		if dev, openErr := i2c.Open(p.bus, PicoAddr); openErr == nil {
			p.dev = dev
		}
	}
	return fmt.Errorf("%w: register %d: %v", ErrNotReady, reg, err)
}

func (p *PicoBLDC) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	if err := p.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func Dummy() Interface {
	return &dummyPico{}
}

type dummyPico struct {
	last PerMotorVal[int16]
}

func (p *dummyPico) SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error {
	speeds := PerMotorVal[int16]{frontLeft, frontRight, backLeft, backRight}
	if speeds != p.last {
		fmt.Printf("Dummy picobldc setting motors: fl=%v fr=%v bl=%v br=%v\n", frontLeft, frontRight, backLeft, backRight)
		p.last = speeds
	}
	return nil
}

func (p *dummyPico) Close() error {
	return nil
}
