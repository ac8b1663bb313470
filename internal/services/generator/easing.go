package generator

import (
	"math"

	"github.com/fogleman/ease"
)

// EasingType represents the type of easing curve used by eased generators.
type EasingType string

const (
	// EasingLinear provides constant rate of change.
	EasingLinear EasingType = "LINEAR"
	// EasingInOutQuad provides gentle acceleration and deceleration.
	EasingInOutQuad EasingType = "EASE_IN_OUT_QUAD"
	// EasingInOutCubic provides smooth acceleration and deceleration.
	EasingInOutCubic EasingType = "EASE_IN_OUT_CUBIC"
	// EasingInOutSine provides gentle sine wave easing.
	EasingInOutSine EasingType = "EASE_IN_OUT_SINE"
	// EasingOutExponential provides sharp start, smooth end.
	EasingOutExponential EasingType = "EASE_OUT_EXPONENTIAL"
	// EasingSCurve provides sigmoid function easing.
	EasingSCurve EasingType = "S_CURVE"
)

// ApplyEasing applies an easing function to a progress value (0-1).
func ApplyEasing(progress float64, easingType EasingType) float64 {
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}

	switch easingType {
	case EasingLinear:
		return ease.Linear(progress)
	case EasingInOutQuad:
		return ease.InOutQuad(progress)
	case EasingInOutCubic:
		return ease.InOutCubic(progress)
	case EasingInOutSine:
		return ease.InOutSine(progress)
	case EasingOutExponential:
		return ease.OutExpo(progress)
	case EasingSCurve:
		// Sigmoid rescaled so 0 and 1 map onto themselves
		lo, hi := sigmoid(0), sigmoid(1)
		return (sigmoid(progress) - lo) / (hi - lo)
	default:
		return progress
	}
}

func sigmoid(x float64) float64 {
	k := 10.0 // Steepness factor
	return 1 / (1 + math.Exp(-k*(x-0.5)))
}
