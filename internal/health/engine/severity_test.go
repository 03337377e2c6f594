package engine

import "testing"

func TestSeverity_Blend(t *testing.T) {
	cases := []struct {
		prob, anomaly float64
		want          int
	}{
		{0, 0, 0},
		{1, 1, 100},
		{1, 0, 70},
		{0, 1, 30},
		{0.5, 0.5, 50},
		{0.354, 0.4, 37}, // typical all-default sample
	}
	for _, tc := range cases {
		if got := severity(tc.prob, tc.anomaly); got != tc.want {
			t.Errorf("severity(%v, %v) = %d, want %d", tc.prob, tc.anomaly, got, tc.want)
		}
	}
}

func TestSeverity_IntegerAndBounded(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.1 {
		for a := 0.0; a <= 1.0; a += 0.1 {
			s := severity(p, a)
			if s < 0 || s > 100 {
				t.Fatalf("severity(%v, %v) = %d out of [0,100]", p, a, s)
			}
		}
	}
}

func TestAlertEligibility_ExactThreshold(t *testing.T) {
	if !(Result{Severity: 80}).AlertEligible() {
		t.Error("severity 80 must be alert eligible")
	}
	if (Result{Severity: 79}).AlertEligible() {
		t.Error("severity 79 must not be alert eligible")
	}
}
