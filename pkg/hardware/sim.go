package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/notechaser/pkg/bno08x"
	"github.com/tigerbot-team/notechaser/pkg/chassis"
	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/headingholder"
	"github.com/tigerbot-team/notechaser/pkg/headingholder/angle"
	"github.com/tigerbot-team/notechaser/pkg/picobldc"
	"github.com/tigerbot-team/notechaser/pkg/pose"
)

// SimChassis stands in for the motors and the IMU: it turns the commanded
// wheel speeds into a yaw rate and publishes IMU reports at the real
// report rate.
type SimChassis struct {
	*bno08x.BNO08X

	lock   sync.Mutex
	speeds picobldc.PerMotorVal[int16]
	yaw    float64
}

func NewSimChassis() *SimChassis {
	return &SimChassis{BNO08X: bno08x.New("sim")}
}

func (s *SimChassis) SetMotorSpeeds(frontLeft, frontRight, backLeft, backRight int16) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.speeds = picobldc.PerMotorVal[int16]{frontLeft, frontRight, backLeft, backRight}
	return nil
}

func (s *SimChassis) Speeds() picobldc.PerMotorVal[int16] {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.speeds
}

// Step advances the simulation by dt and publishes a report.
func (s *SimChassis) Step(now time.Time, dt time.Duration) {
	s.lock.Lock()
	var sum float64
	for _, v := range s.speeds {
		sum += float64(v)
	}
	// All wheels turning backwards spins the bot anti-clockwise.
	spinRPS := -sum / 4 / picobldc.CountsPerRPS
	s.yaw = angle.FromFloat(s.yaw + spinRPS*chassis.DegreesPerWheelRev()*dt.Seconds()).Float()
	yaw := s.yaw
	s.lock.Unlock()

	s.SetReport(bno08x.IMUReport{
		Time: now,
		Yaw:  int16(yaw * 100),
	})
}

func (s *SimChassis) Loop(ctx context.Context) {
	ticker := time.NewTicker(bno08x.ReportInterval)
	defer ticker.Stop()
	last := time.Now()
	s.Step(last, 0)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Step(now, now.Sub(last))
			last = now
		}
	}
}

// Sim is a complete robot with simulated motors and IMU, for running the
// controller on a desk.
type Sim struct {
	Chassis *SimChassis

	hh   *headingholder.Holder
	pose *pose.Tracker

	cancel  context.CancelFunc
	loopsWG sync.WaitGroup
	once    sync.Once
}

var _ Interface = (*Sim)(nil)

func NewSim(cfg config.Config, startHeading float64) *Sim {
	ch := NewSimChassis()
	tracker := pose.NewTracker(cfg.Field.StartX, cfg.Field.StartY)
	hh := headingholder.New(ch, ch)
	hh.Odometry = tracker
	hh.StartHeading = startHeading
	hh.MaxSpeedMPS = cfg.Hardware.MaxSpeedMPS
	return &Sim{
		Chassis: ch,
		hh:      hh,
		pose:    tracker,
	}
}

func (s *Sim) Start(ctx context.Context) error {
	fmt.Println("SIM: Start")
	var loopCtx context.Context
	loopCtx, s.cancel = context.WithCancel(ctx)
	s.loopsWG.Add(2)
	go func() {
		defer s.loopsWG.Done()
		s.Chassis.Loop(loopCtx)
	}()
	go s.hh.Loop(loopCtx, &s.loopsWG)
	return nil
}

func (s *Sim) Drive() *headingholder.Holder {
	return s.hh
}

func (s *Sim) Pose() *pose.Tracker {
	return s.pose
}

func (s *Sim) StopMotorControl() {
	fmt.Println("SIM: StopMotorControl")
	s.hh.ResetRotationController()
	s.hh.SetHoldHeading(s.hh.HeadingDegrees())
}

func (s *Sim) PlaySound(name string) {
	fmt.Printf("SIM: PlaySound %v\n", name)
}

func (s *Sim) Shutdown() {
	s.once.Do(func() {
		fmt.Println("SIM: Shutdown")
		if s.cancel != nil {
			s.cancel()
		}
		s.loopsWG.Wait()
	})
}
