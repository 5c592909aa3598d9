package server

import (
	"errors"
	"testing"

	"stopthebus/internal/config"
)

func TestValidateSessionConfigFillsDefaults(t *testing.T) {
	defaults := config.Default()
	cfg, err := validateSessionConfig(SessionConfig{Categories: []string{" Animals "}}, defaults)
	if err != nil {
		t.Fatalf("validate config: %v", err)
	}
	if cfg.Categories[0] != "Animals" {
		t.Fatalf("expected trimmed category, got %q", cfg.Categories[0])
	}
	if cfg.TotalRounds != defaults.DefaultTotalRounds {
		t.Fatalf("expected default rounds, got %d", cfg.TotalRounds)
	}
	if cfg.RoundDuration != defaults.DefaultRoundSeconds {
		t.Fatalf("expected default round duration, got %d", cfg.RoundDuration)
	}
	if cfg.MatchDuration != defaults.DefaultMatchSeconds {
		t.Fatalf("expected default match duration, got %d", cfg.MatchDuration)
	}
	if cfg.AllowedLetters != defaults.DefaultAllowedLetters {
		t.Fatalf("expected default letter pool, got %q", cfg.AllowedLetters)
	}
}

func TestValidateSessionConfigRejectsNegatives(t *testing.T) {
	_, err := validateSessionConfig(SessionConfig{Categories: []string{"Animals"}, TotalRounds: -1}, config.Default())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateAllowedLetters(t *testing.T) {
	letters, err := validateAllowedLetters(" abba ", "XYZ")
	if err != nil {
		t.Fatalf("validate letters: %v", err)
	}
	if letters != "AB" {
		t.Fatalf("expected deduped uppercase pool, got %q", letters)
	}

	letters, err = validateAllowedLetters("", "XYZ")
	if err != nil || letters != "XYZ" {
		t.Fatalf("expected fallback pool, got %q err=%v", letters, err)
	}

	if _, err := validateAllowedLetters("A1", "XYZ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected rejection of non-letters, got %v", err)
	}
}

func TestValidateRoomCode(t *testing.T) {
	code, err := validateRoomCode(" bus42 ")
	if err != nil || code != "BUS42" {
		t.Fatalf("expected normalized code, got %q err=%v", code, err)
	}
	if _, err := validateRoomCode("bad code"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected rejection of spaces, got %v", err)
	}
	if _, err := validateRoomCode(""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected rejection of empty code, got %v", err)
	}
}

func TestValidateAnswerTextCapsLength(t *testing.T) {
	long := make([]byte, maxAnswerLength+1)
	for i := range long {
		long[i] = 'b'
	}
	if _, err := validateAnswerText(string(long)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected overlong answer rejection, got %v", err)
	}
	text, err := validateAnswerText("  Bear  ")
	if err != nil || text != "Bear" {
		t.Fatalf("expected trimmed answer, got %q err=%v", text, err)
	}
}
