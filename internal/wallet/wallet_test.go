package wallet

import "testing"

func strPtr(s string) *string { return &s }

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{150000, "1500.00"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.minor); got != tc.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tc.minor, got, tc.want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "ali***@example.com",
		"al@example.com":    "al***@example.com",
		"a@example.com":     "a***@example.com",
		"noatsign":          "noatsign",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMaskName(t *testing.T) {
	cases := []struct {
		first, last *string
		want        string
	}{
		{strPtr("Ada"), strPtr("Lovelace"), "Ada L."},
		{strPtr("Ada"), nil, "Ada"},
		{nil, strPtr("Lovelace"), "L."},
		{nil, nil, ""},
		{strPtr("Ada"), strPtr(""), "Ada"},
	}
	for _, tc := range cases {
		if got := MaskName(tc.first, tc.last); got != tc.want {
			t.Errorf("MaskName(%v, %v) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
