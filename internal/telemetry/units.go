package telemetry

import "math"

const kelvinOffset = 273.15

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unknown
	}

	return v
}

// lapTime treats zero and negative times as "no time set".
func lapTime(v float64) float64 {
	if !Known(v) || v <= 0 {
		return Unknown
	}

	return v
}

func nonNegative(v float64) float64 {
	if !Known(v) || v < 0 {
		return Unknown
	}

	return v
}

func fraction(v float64) float64 {
	if !Known(v) || v < 0 || v > 1 {
		return Unknown
	}

	return v
}

func celsius(kelvin float64) float64 {
	if !Known(kelvin) || kelvin <= 0 {
		return Unknown
	}

	return kelvin - kelvinOffset
}

func kelvin(celsius float64) float64 {
	if !Known(celsius) {
		return 0
	}

	return celsius + kelvinOffset
}

func millimetres(metres float64) float64 {
	if !Known(metres) || metres < 0 {
		return Unknown
	}

	return metres * 1000
}

func metres(millimetres float64) float64 {
	if !Known(millimetres) {
		return -1
	}

	return millimetres / 1000
}

// sentinel is what the simulator writes for an unknown time, fuel or distance.
func sentinel(v float64) float64 {
	if !Known(v) {
		return -1
	}

	return v
}

func vector(v [3]float64) Vector3 {
	return Vector3{X: finite(v[0]), Y: finite(v[1]), Z: finite(v[2])}
}

func speed(v Vector3) float64 {
	if !Known(v.X) || !Known(v.Y) || !Known(v.Z) {
		return Unknown
	}

	return v.Length()
}
