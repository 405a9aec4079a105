package picobldc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRPSToMotorSpeed(t *testing.T) {
	assert.Equal(t, int16(0), RPSToMotorSpeed(0))
	assert.Equal(t, int16(128), RPSToMotorSpeed(0.5))
	assert.Equal(t, int16(-256), RPSToMotorSpeed(-1))
	assert.Equal(t, int16(math.MaxInt16), RPSToMotorSpeed(1000))
	assert.Equal(t, int16(math.MinInt16), RPSToMotorSpeed(-1000))
	assert.Equal(t, int16(0), RPSToMotorSpeed(math.NaN()))
}

func TestDummy(t *testing.T) {
	d := Dummy()
	assert.NoError(t, d.SetMotorSpeeds(1, 2, 3, 4))
	assert.NoError(t, d.Close())
}

func TestCtrlWord(t *testing.T) {
	assert.Equal(t, ctrlEnableI2CControl, ctrlWord(false, false, false))
	assert.Equal(t, ctrlEnableI2CControl|ctrlRun|ctrlWatchdogEnable, ctrlWord(false, true, true))
	assert.Equal(t, ctrlEnableI2CControl|ctrlReset, ctrlWord(true, false, false))
}

func TestSpeedWritesChannelOrder(t *testing.T) {
	w := speedWrites(1, 2, 3, -4)
	assert.Equal(t, regWrite{RegMot0V, uint16(0xfffc)}, w[0])
	assert.Equal(t, regWrite{RegMot1V, 2}, w[1])
	assert.Equal(t, regWrite{RegMot2V, 1}, w[2])
	assert.Equal(t, regWrite{RegMot3V, 3}, w[3])
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusFlag(0).String())
	assert.Equal(t, "fault,watchdog-expired", (StatusFault | StatusWatchdogExpired).String())
	assert.Equal(t, "0.0C 12.00V ok", Readings{BattVolts: 12}.String())
}
