package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/notechaser/pkg/approach"
)

const (
	DefaultPath  = "/cfg/notechaser.yaml"
	InUseSuffix  = "-in-use.yaml"
	defaultInUse = "/cfg/notechaser" + InUseSuffix
)

type HSVRange struct {
	HueMin, HueMax byte
	SatMin, SatMax byte
	ValMin, ValMax byte
}

type Camera struct {
	Device         int           `yaml:"device"`
	Width          int           `yaml:"width"` // images are scaled to this before processing
	HorizontalFOV  float64       `yaml:"horizontalFOV"`
	VerticalFOV    float64       `yaml:"verticalFOV"`
	MountPitch     float64       `yaml:"mountPitch"`
	MinContourSize int           `yaml:"minContourSize"`
	MaxNotes       int           `yaml:"maxNotes"`
	Note           HSVRange      `yaml:"note"`
	FramePeriod    time.Duration `yaml:"framePeriod"`
}

type Hardware struct {
	IMUSerialDevice string  `yaml:"imuSerialDevice"`
	MotorI2CDevice  string  `yaml:"motorI2CDevice"`
	ScreenDevice    string  `yaml:"screenDevice"`
	SoundDir        string  `yaml:"soundDir"`
	MaxSpeedMPS     float64 `yaml:"maxSpeedMPS"`
}

type Field struct {
	StartX float64 `yaml:"startX"`
	StartY float64 `yaml:"startY"`
}

type Config struct {
	Approach   approach.Config `yaml:"approach"`
	Camera     Camera          `yaml:"camera"`
	Hardware   Hardware        `yaml:"hardware"`
	Field      Field           `yaml:"field"`
	TickPeriod time.Duration   `yaml:"tickPeriod"`

	// Address for the websocket event stream; empty disables it.
	TelemetryAddr string `yaml:"telemetryAddr"`
}

func Default() Config {
	return Config{
		Approach: approach.DefaultConfig(),
		Camera: Camera{
			Device:         0,
			Width:          320,
			HorizontalFOV:  70,
			VerticalFOV:    55,
			MountPitch:     -10,
			MinContourSize: 12,
			MaxNotes:       4,
			// Orange.
			Note:        HSVRange{5, 20, 120, 255, 120, 255},
			FramePeriod: 30 * time.Millisecond,
		},
		Hardware: Hardware{
			IMUSerialDevice: "/dev/ttyAMA0",
			MotorI2CDevice:  "/dev/i2c-1",
			ScreenDevice:    "/dev/fb1",
			SoundDir:        "/sounds",
			MaxSpeedMPS:     3.5,
		},
		Field: Field{
			StartX: 1.4,
			StartY: 5.5,
		},
		TickPeriod: 20 * time.Millisecond,
	}
}

// Load overlays the YAML file at path on top of the defaults.  A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("bad config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("tickPeriod must be positive, not %v", c.TickPeriod)
	}
	if c.Camera.Width <= 0 {
		return fmt.Errorf("camera width must be positive, not %d", c.Camera.Width)
	}
	if c.Camera.HorizontalFOV <= 0 || c.Camera.VerticalFOV <= 0 {
		return fmt.Errorf("camera FOV must be positive")
	}
	if c.Approach.SelectionPitchGap < 0 {
		return fmt.Errorf("selectionPitchGap must not be negative")
	}
	return nil
}

// WriteInUse records the config that we're actually running with next to
// the one we loaded.
func (c Config) WriteInUse(loadedFrom string) (string, error) {
	path := defaultInUse
	if loadedFrom != "" && loadedFrom != DefaultPath {
		path = trimYAML(loadedFrom) + InUseSuffix
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func trimYAML(path string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}
