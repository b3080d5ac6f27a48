package model

import (
	"errors"
	"testing"
)

func TestNormalizeLandID(t *testing.T) {
	cases := map[string]LandID{
		"apple.banana.cherry":    "apple.banana.cherry",
		"  Apple.Banana.CHERRY ": "apple.banana.cherry",
		"///filled.count.soap":   "filled.count.soap",
		"///Índice.größe.straße": "índice.größe.straße",
	}
	for input, want := range cases {
		got, err := NormalizeLandID(input)
		if err != nil {
			t.Fatalf("normalize %q: unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("normalize %q: got %q want %q", input, got, want)
		}
	}
}

func TestNormalizeLandIDInvalid(t *testing.T) {
	inputs := []string{
		"",
		"apple.banana",
		"apple.banana.cherry.date",
		"apple..cherry",
		"apple.banana.",
		"apple.ban4na.cherry",
		"apple banana cherry",
		"apple.banana.cher-ry",
	}
	for _, input := range inputs {
		if _, err := NormalizeLandID(input); !errors.Is(err, ErrInvalidLandID) {
			t.Fatalf("normalize %q: expected ErrInvalidLandID, got %v", input, err)
		}
	}
}
