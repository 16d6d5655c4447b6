package telemetry

import "testing"

func TestConvertRate(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		unit  string
		want  float64
	}{
		{"GH", 15000, "GH", 15.0},
		{"MH", 15000000, "MH", 15.0},
		{"unknown unit passthrough", 15000, "unknown", 15000.0},
		{"empty unit passthrough", 42.555, "", 42.56},
		{"GH rounding", 12345, "GH", 12.35},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvertRate(tc.value, tc.unit)
			if got != tc.want {
				t.Errorf("ConvertRate(%v, %q) = %v, want %v", tc.value, tc.unit, got, tc.want)
			}
		})
	}
}

func TestMeanNonZero(t *testing.T) {
	if got, ok := MeanNonZero([]float64{0, 55, 57, 0}); !ok || got != 56.0 {
		t.Errorf("MeanNonZero([0,55,57,0]) = %v, %v, want 56.0, true", got, ok)
	}

	if got, ok := MeanNonZero([]float64{0, 70, 71, 0}); !ok || got != 70.5 {
		t.Errorf("MeanNonZero([0,70,71,0]) = %v, %v, want 70.5, true", got, ok)
	}

	// All sensors absent must report no reading, not divide by zero.
	if got, ok := MeanNonZero([]float64{0, 0, 0, 0}); ok || got != 0 {
		t.Errorf("MeanNonZero(all zero) = %v, %v, want 0, false", got, ok)
	}

	if _, ok := MeanNonZero(nil); ok {
		t.Error("MeanNonZero(nil) reported ok, want false")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.005); got != 1.0 && got != 1.01 {
		t.Errorf("Round2(1.005) = %v, want a 2-decimal value", got)
	}
	if got := Round2(56.789); got != 56.79 {
		t.Errorf("Round2(56.789) = %v, want 56.79", got)
	}
}
