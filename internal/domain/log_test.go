package domain

import "testing"

func TestToKilograms(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		unit  WeightUnit
		want  float64
	}{
		{name: "kg passthrough", value: 81.4, unit: UnitKilograms, want: 81.4},
		{name: "lb rounded", value: 180, unit: UnitPounds, want: 81.65},
		{name: "lb small", value: 1, unit: UnitPounds, want: 0.45},
		{name: "zero", value: 0, unit: UnitPounds, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToKilograms(tc.value, tc.unit); got != tc.want {
				t.Fatalf("ToKilograms(%v, %q)=%v want %v", tc.value, tc.unit, got, tc.want)
			}
		})
	}
}

func TestTrackingTypeValid(t *testing.T) {
	for _, tt := range []TrackingType{TrackingRepsSetsWeight, TrackingTimeBased, TrackingDistanceBased, TrackingCalories} {
		if !tt.Valid() {
			t.Fatalf("expected %q to be valid", tt)
		}
	}
	if TrackingType("yoga").Valid() {
		t.Fatal("expected unknown tracking type to be invalid")
	}
}
