package signcount

import "testing"

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		stored   uint32
		reported uint32
		want     Outcome
	}{
		{"increment", ModeStrict, 5, 6, Outcome{UpdateTo: 6}},
		{"unchanged both zero", ModeStrict, 0, 0, Outcome{UpdateTo: noUpdate}},
		{"unchanged equal nonzero", ModeLenient, 3, 3, Outcome{UpdateTo: noUpdate}},
		{"regression strict revokes", ModeStrict, 10, 4, Outcome{UpdateTo: noUpdate, Regressed: true, Revoke: true}},
		{"regression lenient tolerated", ModeLenient, 10, 4, Outcome{UpdateTo: noUpdate, Regressed: true, Revoke: false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.mode, tc.stored, tc.reported)
			if got != tc.want {
				t.Fatalf("Evaluate(%v, %d, %d) = %+v, want %+v", tc.mode, tc.stored, tc.reported, got, tc.want)
			}
		})
	}
}
