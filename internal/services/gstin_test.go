package services

import "testing"

func TestValidGSTIN(t *testing.T) {
	cases := []struct {
		gstin string
		want  bool
	}{
		{"27AAPFU0939F1ZV", true},
		{"27aapfu0939f1zv", true},  // case-insensitive input
		{" 27AAPFU0939F1ZV ", true},
		{"27AAPFU0939F1ZW", false}, // wrong check digit
		{"28AAPFU0939F1ZV", false}, // state code changed, stale check digit
		{"27AAPFU0939F1Z", false},  // too short
		{"27AAPFU0939F1ZVX", false},
		{"27AAPFU0939F2ZV", false}, // entity digit changed
		{"", false},
		{"ABCDEFGHIJKLMNO", false},
	}
	for _, tc := range cases {
		if got := ValidGSTIN(tc.gstin); got != tc.want {
			t.Errorf("ValidGSTIN(%q) = %v, want %v", tc.gstin, got, tc.want)
		}
	}
}

func TestGSTINChecksumSelfConsistent(t *testing.T) {
	// Recomputing the check digit over a verified GSTIN's body must return
	// its own fifteenth character.
	body := "27AAPFU0939F1Z"
	if got := gstinChecksum(body); got != 'V' {
		t.Fatalf("gstinChecksum(%q) = %c, want V", body, got)
	}
}
