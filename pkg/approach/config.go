package approach

// Config holds the field geometry and thresholds used by the gate, the
// policy and the selector.  Field X is in metres from the blue driver
// station wall.
type Config struct {
	YawBiasDegrees    float64 `yaml:"yawBiasDegrees"`
	SelectionPitchGap float64 `yaml:"selectionPitchGap"`

	// In autonomous we don't chase a note further away than this once
	// we're past our side's gate line.
	FarPitchDegrees float64 `yaml:"farPitchDegrees"`
	BlueGateX       float64 `yaml:"blueGateX"`
	RedGateX        float64 `yaml:"redGateX"`

	MidfieldX float64 `yaml:"midfieldX"`
}

func DefaultConfig() Config {
	return Config{
		YawBiasDegrees:    1,
		SelectionPitchGap: 12,
		FarPitchDegrees:   17,
		BlueGateX:         6,
		RedGateX:          10,
		MidfieldX:         8.29,
	}
}
