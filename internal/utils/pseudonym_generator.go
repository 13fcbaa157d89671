package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Patient", "Contrarian", "Quiet", "Bold", "Steady",
	"Rational", "Frugal", "Keen", "Prudent", "Curious",
	"Hawkish", "Dovish", "Macro", "Value", "Growth",
	"Defensive", "Cyclical", "Liquid", "Hedged", "Levered",
}

var nouns = []string{
	"Bull", "Bear", "Owl", "Fox", "Badger",
	"Whale", "Shark", "Turtle", "Falcon", "Wolf",
	"Analyst", "Allocator", "Stacker", "Skeptic", "Chartist",
	"Compounder", "Arbiter", "Scout", "Drifter", "Pilot",
}

// GeneratePseudonym creates a random pseudonym in the format
// "Adjective_Noun_XXXX" where XXXX is a random 4-digit number
func GeneratePseudonym() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random adjective: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random noun: %w", err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	pseudonym := fmt.Sprintf("%s_%s_%04d",
		adjectives[adjIdx.Int64()],
		nouns[nounIdx.Int64()],
		suffix.Int64(),
	)

	return pseudonym, nil
}
