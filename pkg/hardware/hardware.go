package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/notechaser/pkg/bno08x"
	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/headingholder"
	"github.com/tigerbot-team/notechaser/pkg/picobldc"
	"github.com/tigerbot-team/notechaser/pkg/pose"
	"github.com/tigerbot-team/notechaser/pkg/sound"
)

// Hardware is the real robot: BNO08X IMU on a UART and a Pico-BLDC motor
// board on I2C.
type Hardware struct {
	cfg config.Hardware

	imu    *bno08x.BNO08X
	motors *picobldc.PicoBLDC
	hh     *headingholder.Holder
	pose   *pose.Tracker
	sounds *sound.Player

	cancel   context.CancelFunc
	loopsWG  sync.WaitGroup
	shutdown sync.Once
}

var _ Interface = (*Hardware)(nil)

func New(cfg config.Config, startHeading float64) (*Hardware, error) {
	motors, err := picobldc.New(cfg.Hardware.MotorI2CDevice)
	if err != nil {
		return nil, err
	}
	if err := motors.SetWatchdog(200 * time.Millisecond); err != nil {
		_ = motors.Close()
		return nil, fmt.Errorf("failed to enable motor watchdog: %w", err)
	}

	imu := bno08x.New(cfg.Hardware.IMUSerialDevice)
	tracker := pose.NewTracker(cfg.Field.StartX, cfg.Field.StartY)

	hh := headingholder.New(motors, imu)
	hh.Odometry = tracker
	hh.StartHeading = startHeading
	hh.MaxSpeedMPS = cfg.Hardware.MaxSpeedMPS

	return &Hardware{
		cfg:    cfg.Hardware,
		imu:    imu,
		motors: motors,
		hh:     hh,
		pose:   tracker,
		sounds: sound.NewPlayer(cfg.Hardware.SoundDir),
	}, nil
}

func (h *Hardware) Start(ctx context.Context) error {
	var loopCtx context.Context
	loopCtx, h.cancel = context.WithCancel(ctx)

	h.loopsWG.Add(2)
	go func() {
		defer h.loopsWG.Done()
		h.imu.LoopReadingReports(loopCtx)
	}()
	go h.hh.Loop(loopCtx, &h.loopsWG)
	return nil
}

func (h *Hardware) Drive() *headingholder.Holder {
	return h.hh
}

func (h *Hardware) Pose() *pose.Tracker {
	return h.pose
}

func (h *Hardware) StopMotorControl() {
	fmt.Println("HW: Stopping motor control")
	h.hh.ResetRotationController()
	h.hh.SetHoldHeading(h.hh.HeadingDegrees())
}

func (h *Hardware) PlaySound(name string) {
	h.sounds.Play(name)
}

func (h *Hardware) Shutdown() {
	h.shutdown.Do(func() {
		fmt.Println("HW: Shutdown")
		if h.cancel != nil {
			h.cancel()
		}
		h.loopsWG.Wait()
		if err := h.motors.Close(); err != nil {
			fmt.Println("HW: failed to close motors:", err)
		}
		h.sounds.Close()
	})
}
