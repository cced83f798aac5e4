package chassis

const (
	// WheelCircumMM is rounded from the 70mm wheel diameter.
	WheelCircumMM = 220
	StepsPerRev   = 360
)
