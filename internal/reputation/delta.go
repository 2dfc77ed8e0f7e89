package reputation

// Delta describes a score change between two computations.
type Delta struct {
	Delta       int    `json:"delta"`
	Direction   string `json:"direction"` // up, down, same
	Description string `json:"description"`
}

// DescribeDelta compares two scores on the 0-1000 scale and labels the
// magnitude of the movement for display.
func DescribeDelta(oldScore, newScore int) Delta {
	d := newScore - oldScore
	if d == 0 {
		return Delta{Delta: 0, Direction: "same", Description: "No change"}
	}

	direction := "up"
	if d < 0 {
		direction = "down"
	}

	abs := d
	if abs < 0 {
		abs = -abs
	}

	var desc string
	switch {
	case abs >= 100:
		desc = "Major change"
	case abs >= 50:
		desc = "Significant change"
	case abs >= 20:
		desc = "Moderate change"
	case abs >= 5:
		desc = "Small change"
	default:
		desc = "Minor adjustment"
	}

	return Delta{Delta: d, Direction: direction, Description: desc}
}
