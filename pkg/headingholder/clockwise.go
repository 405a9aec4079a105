package headingholder

// Clockwise presents the holder with headings positive clockwise, which is
// how the camera reports yaw.
type Clockwise struct {
	*Holder
}

func (c Clockwise) HeadingDegrees() float64 {
	return -c.Holder.HeadingDegrees()
}

func (c Clockwise) DriveAndHoldHeading(forwardSpeed, strafeSpeed, targetHeadingDegrees float64) {
	c.Holder.DriveAndHoldHeading(forwardSpeed, strafeSpeed, -targetHeadingDegrees)
}

func (c Clockwise) SetHoldHeading(headingDegrees float64) {
	c.Holder.SetHoldHeading(-headingDegrees)
}
