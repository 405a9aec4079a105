package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerbot-team/notechaser/pkg/approach"
	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/hardware"
	"github.com/tigerbot-team/notechaser/pkg/headingholder"
	"github.com/tigerbot-team/notechaser/pkg/joystick"
	"github.com/tigerbot-team/notechaser/pkg/notecamera"
	"github.com/tigerbot-team/notechaser/pkg/notecamera/cvgrabber"
	"github.com/tigerbot-team/notechaser/pkg/notemode"
	"github.com/tigerbot-team/notechaser/pkg/robotstate"
	"github.com/tigerbot-team/notechaser/pkg/scheduler"
	"github.com/tigerbot-team/notechaser/pkg/screen"
	"github.com/tigerbot-team/notechaser/pkg/sound"
	"github.com/tigerbot-team/notechaser/pkg/telemetry"
	"github.com/tigerbot-team/notechaser/pkg/vision"
)

type options struct {
	configPath   string
	dummy        bool
	red          bool
	autonomous   bool
	joystickDev  string
	runAtStart   bool
	startHeading float64
	telemetry    string
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "notechaser",
		Short: "Find the nearest note and drive at it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "YAML config file; missing file means defaults")
	flags.BoolVar(&opts.dummy, "dummy", false, "simulate the motors and IMU")
	flags.BoolVar(&opts.red, "red", false, "start on the red alliance")
	flags.BoolVar(&opts.autonomous, "autonomous", false, "start in the autonomous phase")
	flags.StringVar(&opts.joystickDev, "joystick", joystick.DefaultDevice, "joystick device; empty to run without one")
	flags.BoolVar(&opts.runAtStart, "run", false, "start an approach run immediately")
	flags.StringVar(&opts.telemetry, "telemetry", "", "listen address for the websocket event stream, overrides the config")
	flags.Float64Var(&opts.startHeading, "start-heading", 0, "field heading of the bot at power on, degrees anti-clockwise")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	fmt.Println("---- Note chaser ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.telemetry != "" {
		cfg.TelemetryAddr = opts.telemetry
	}
	if inUse, err := cfg.WriteInUse(opts.configPath); err != nil {
		fmt.Println("Failed to write in-use config:", err)
	} else {
		fmt.Println("Wrote in-use config to", inUse)
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	// Initialise the hardware.
	var hw hardware.Interface
	if opts.dummy {
		hw = hardware.NewSim(cfg, opts.startHeading)
	} else {
		hw, err = hardware.New(cfg, opts.startHeading)
		if err != nil {
			return fmt.Errorf("failed to initialise hardware: %w", err)
		}
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hardware.Release(hw)
		time.Sleep(100 * time.Millisecond)
	}()
	if err := hw.Start(ctx); err != nil {
		return err
	}

	state := robotstate.New(opts.autonomous, opts.red)
	state.OnChange = func(name string, value bool) {
		fmt.Printf("State: %s=%v\n", name, value)
	}

	var loopsWG sync.WaitGroup
	frames := &vision.Latest{}
	startCamera(ctx, cfg, frames, &loopsWG)

	mode := &modeHolder{}
	scr := screen.New(cfg.Hardware.ScreenDevice, func() screen.Status {
		return screen.Status{
			RedAlliance:   state.OnRedAlliance(),
			Autonomous:    state.IsAutonomous(),
			NoteAvailable: state.NoteAvailable(),
			YawBias:       mode.yawBias(),
			PoseX:         hw.Pose().PoseX(),
		}
	})
	loopsWG.Add(1)
	go scr.Loop(ctx, &loopsWG)

	logf := func(f string, args ...any) {
		fmt.Printf(f+"\n", args...)
	}
	observers := []approach.Observer{
		approach.LogObserver(logf),
		sound.NewObserver(sound.SinkFunc(hw.PlaySound)),
		scr,
	}
	if cfg.TelemetryAddr != "" {
		hub := telemetry.NewHub(logf)
		observers = append(observers, hub)
		loopsWG.Add(1)
		go func() {
			defer loopsWG.Done()
			if err := hub.Serve(ctx, cfg.TelemetryAddr); err != nil {
				fmt.Println("Telemetry failed:", err)
			}
		}()
	}
	nm := notemode.New(notemode.Deps{
		Scheduler: scheduler.New(cfg.TickPeriod, logf),
		Camera:    frames,
		Pose:      hw.Pose(),
		State:     state,
		Drive:     headingholder.Clockwise{Holder: hw.Drive()},
		Observers: observers,
		Log:       logf,
	}, cfg.Approach)
	mode.set(nm)

	fmt.Printf("----- %s -----\n", nm.Name())
	hw.PlaySound(nm.StartupSound())
	nm.Start(ctx)
	if opts.runAtStart {
		nm.StartApproach(ctx)
	}

	var joystickEvents <-chan *joystick.Event
	if opts.joystickDev != "" {
		j, err := joystick.WaitForJoystick(ctx, opts.joystickDev)
		if err != nil {
			// Only fails if we're shutting down.
			nm.Stop()
			loopsWG.Wait()
			return nil
		}
		joystickEvents = j.Events(ctx)
	}

	fmt.Println("Waiting for events...")
	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Context done, stopping active mode and shutting down")
			nm.Stop()
			loopsWG.Wait()
			return nil
		case event, ok := <-joystickEvents:
			if !ok {
				fmt.Println("Joystick events channel closed!")
				nm.Stop()
				cancel()
				loopsWG.Wait()
				return nil
			}
			nm.OnJoystickEvent(event)
		case <-watchdog.C:
			fmt.Printf("Main loop still running: %v x=%.2f\n", state, hw.Pose().PoseX())
		}
	}
}

func startCamera(ctx context.Context, cfg config.Config, frames *vision.Latest, wg *sync.WaitGroup) {
	grabber, err := cvgrabber.Open(cfg.Camera)
	if err != nil {
		fmt.Println("Camera: running without camera:", err)
		return
	}
	cam := notecamera.New(cfg.Camera, grabber, frames)
	wg.Add(1)
	go cam.Loop(ctx, wg)
}

// modeHolder lets the screen read the tunables once the mode exists.
type modeHolder struct {
	lock sync.Mutex
	nm   *notemode.NoteMode
}

func (h *modeHolder) set(nm *notemode.NoteMode) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.nm = nm
}

func (h *modeHolder) yawBias() float64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.nm == nil {
		return 0
	}
	return h.nm.ApproachConfig().YawBiasDegrees
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
