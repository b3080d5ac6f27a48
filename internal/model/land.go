package model

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidLandID is returned for strings that are not a three-word address.
var ErrInvalidLandID = errors.New("invalid land id")

// LandID is a normalized three-word address such as "apple.banana.cherry".
type LandID string

func (l LandID) String() string {
	return string(l)
}

// NormalizeLandID trims, lower-cases and validates a three-word address.
// A leading "///" as used by what3words links is accepted and stripped.
func NormalizeLandID(raw string) (LandID, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "///")
	s = strings.ToLower(s)

	words := strings.Split(s, ".")
	if len(words) != 3 {
		return "", ErrInvalidLandID
	}
	for _, word := range words {
		if word == "" {
			return "", ErrInvalidLandID
		}
		for _, r := range word {
			if !unicode.IsLetter(r) {
				return "", ErrInvalidLandID
			}
		}
	}
	return LandID(s), nil
}
