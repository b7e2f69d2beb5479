package domain

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"(512) 555-1234", "15125551234"},
		{"5125551234", "15125551234"},
		{"+1 512 555 1234", "15125551234"},
		{"1-512-555-1234", "15125551234"},
		{"512.555.1234", "15125551234"},
		{"+44 20 7946 0958", "442079460958"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSamePhone(t *testing.T) {
	if !SamePhone("(512) 555-1234", "5125551234") {
		t.Error("formatting differences should not matter")
	}
	if SamePhone("5125551234", "5125559999") {
		t.Error("different numbers should not match")
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"5125551234", "(512) 555-1234", "+44 20 7946 0958"}
	for _, p := range valid {
		if !ValidPhone(p) {
			t.Errorf("ValidPhone(%q) = false, want true", p)
		}
	}
	invalid := []string{"", "123", "555-1234", "12345678901234567890"}
	for _, p := range invalid {
		if ValidPhone(p) {
			t.Errorf("ValidPhone(%q) = true, want false", p)
		}
	}
}
