package chassis

import "math"

const (
	WheelDiameterMM float64 = 100
	WheelCircumMM           = WheelDiameterMM * math.Pi

	BotWidthMM                    = 560
	BotFrontBackWheelCentreDistMM = 520

	// Motors are limited to this; faster demands are scaled down together.
	MaxWheelRPS = 12.0

	// Wheel speed per unit of rotation controller output.
	RotationRPSPerUnit = 10.0
)

var (
	BotCentreToWheelCentre  = math.Sqrt(math.Pow(BotWidthMM/2, 2) + math.Pow(BotFrontBackWheelCentreDistMM/2, 2))
	WheelTurningCircleDiaMM = math.Pi * BotCentreToWheelCentre * 2

	// Top translation speed with all wheels at MaxWheelRPS.
	MaxSpeedMPS = MaxWheelRPS * WheelCircumMM / 1000
)

// DegreesPerWheelRev is how far the bot turns when each wheel turns one
// revolution while spinning on the spot.
func DegreesPerWheelRev() float64 {
	return 360 * WheelCircumMM / WheelTurningCircleDiaMM
}
