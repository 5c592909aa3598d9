package server

import (
	"fmt"
	"strings"

	"stopthebus/internal/config"
)

const (
	minCategories     = 1
	maxCategories     = 8
	maxCategoryLength = 64
	maxAnswerLength   = 140
	maxRoomCodeLength = 12
	maxPlayerIDLength = 64
)

// validateSessionConfig normalizes a submitted config and fills the gaps
// from server defaults. Category count outside [1,8] is the one hard
// failure the session store contract names.
func validateSessionConfig(cfg SessionConfig, defaults config.Config) (SessionConfig, error) {
	categories := make([]string, 0, len(cfg.Categories))
	for _, name := range cfg.Categories {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return SessionConfig{}, fmt.Errorf("%w: category name is required", ErrValidation)
		}
		if len(trimmed) > maxCategoryLength {
			return SessionConfig{}, fmt.Errorf("%w: category name must be %d characters or fewer", ErrValidation, maxCategoryLength)
		}
		categories = append(categories, trimmed)
	}
	if len(categories) < minCategories || len(categories) > maxCategories {
		return SessionConfig{}, fmt.Errorf("%w: category count must be between %d and %d", ErrValidation, minCategories, maxCategories)
	}
	if cfg.TotalRounds < 0 || cfg.RoundDuration < 0 || cfg.MatchDuration < 0 {
		return SessionConfig{}, fmt.Errorf("%w: durations and rounds must be positive", ErrValidation)
	}
	if cfg.TotalRounds == 0 {
		cfg.TotalRounds = defaults.DefaultTotalRounds
	}
	if cfg.RoundDuration == 0 {
		cfg.RoundDuration = defaults.DefaultRoundSeconds
	}
	if cfg.MatchDuration == 0 {
		cfg.MatchDuration = defaults.DefaultMatchSeconds
	}
	letters, err := validateAllowedLetters(cfg.AllowedLetters, defaults.DefaultAllowedLetters)
	if err != nil {
		return SessionConfig{}, err
	}
	cfg.Categories = categories
	cfg.AllowedLetters = letters
	return cfg, nil
}

func validateAllowedLetters(letters, fallback string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(letters))
	if trimmed == "" {
		return fallback, nil
	}
	seen := make(map[rune]struct{}, len(trimmed))
	var unique []rune
	for _, r := range trimmed {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: allowed letters must be A-Z", ErrValidation)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		unique = append(unique, r)
	}
	return string(unique), nil
}

func validateRoomCode(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return "", fmt.Errorf("%w: room code is required", ErrValidation)
	}
	if len(trimmed) > maxRoomCodeLength {
		return "", fmt.Errorf("%w: room code must be %d characters or fewer", ErrValidation, maxRoomCodeLength)
	}
	for _, r := range trimmed {
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		return "", fmt.Errorf("%w: room code contains unsupported characters", ErrValidation)
	}
	return trimmed, nil
}

func validatePlayerID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("%w: player id is required", ErrValidation)
	}
	if len(trimmed) > maxPlayerIDLength {
		return "", fmt.Errorf("%w: player id must be %d characters or fewer", ErrValidation, maxPlayerIDLength)
	}
	return trimmed, nil
}

// validateAnswerText caps length only. Empty answers are legal and simply
// score zero at finalize.
func validateAnswerText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxAnswerLength {
		return "", fmt.Errorf("%w: answer must be %d characters or fewer", ErrValidation, maxAnswerLength)
	}
	return trimmed, nil
}
