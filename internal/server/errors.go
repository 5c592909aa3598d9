package server

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound covers unknown sessions, rooms, rounds and answers.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers malformed configuration and commands.
	ErrValidation = errors.New("invalid request")
	// ErrState covers commands that are legal in some other phase.
	ErrState = errors.New("not allowed in current phase")
	// ErrGameCompleted is returned when a round start is attempted after
	// the match has ended.
	ErrGameCompleted = errors.New("game already completed")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrGameCompleted):
		return http.StatusGone
	case errors.Is(err, ErrState):
		return http.StatusConflict
	default:
		return http.StatusConflict
	}
}
