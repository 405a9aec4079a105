package headingholder

// PID is the rotation controller.  Reset drops the integral and derivative
// history so a new owner of the drive doesn't inherit them.
type PID struct {
	Kp, Ki, Kd  float64
	MaxIntegral float64
	MaxD        float64
	MaxOutput   float64

	lastError float64
	integral  float64
	primed    bool
}

func DefaultRotationPID() PID {
	return PID{
		Kp:          0.01,
		Ki:          0.03,
		Kd:          0.0001,
		MaxIntegral: 0.3,
		MaxD:        100,
		MaxOutput:   0.3,
	}
}

func (p *PID) Reset() {
	p.lastError = 0
	p.integral = 0
	p.primed = false
}

// Update returns the correction for the given error after dt seconds.
func (p *PID) Update(err, dtSecs float64) float64 {
	if dtSecs <= 0 {
		return clamp(p.Kp*err+p.Ki*p.integral, p.MaxOutput)
	}

	var d float64
	if p.primed {
		d = clamp((err-p.lastError)/dtSecs, p.MaxD)
	}
	p.integral = clamp(p.integral+err*dtSecs, p.MaxIntegral)
	p.lastError = err
	p.primed = true

	return clamp(p.Kp*err+p.Ki*p.integral+p.Kd*d, p.MaxOutput)
}

func (p *PID) Integral() float64 {
	return p.integral
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	} else if v < -limit {
		return -limit
	}
	return v
}
