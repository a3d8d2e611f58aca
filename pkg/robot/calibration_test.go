package robot

import (
	"math"
	"testing"
)

func TestJointCalibration_Normalize(t *testing.T) {
	cal := JointCalibration{
		RangeMin: 0,
		RangeMax: 180,
	}

	tests := []struct {
		angle    int
		expected float64
	}{
		{0, -100.0},  // min -> -100
		{180, 100.0}, // max -> 100
		{90, 0.0},    // center -> 0
		{45, -50.0},  // quarter -> -50
		{135, 50.0},  // three-quarter -> 50
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.angle)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.angle, got, tt.expected)
		}
	}
}

func TestJointCalibration_Clamp(t *testing.T) {
	cal := JointCalibration{RangeMin: 0, RangeMax: 180}

	tests := []struct {
		angle    int
		expected int
	}{
		{-5, 0},
		{0, 0},
		{90, 90},
		{180, 180},
		{185, 180},
	}

	for _, tt := range tests {
		if got := cal.Clamp(tt.angle); got != tt.expected {
			t.Errorf("Clamp(%d) = %d, want %d", tt.angle, got, tt.expected)
		}
	}
}

func TestCalibration_Joint(t *testing.T) {
	cal := Calibration{
		Base: JointCalibration{RangeMin: 20, RangeMax: 160, Step: 4},
	}

	if got := cal.Joint(Base); got.Step != 4 || got.RangeMin != 20 {
		t.Errorf("Joint(base) = %+v, want configured calibration", got)
	}
	if got := cal.Joint(Gripper); got != DefaultCalibration()[Gripper] {
		t.Errorf("Joint(gripper) = %+v, want default", got)
	}
}
