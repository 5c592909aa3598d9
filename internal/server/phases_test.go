package server

import (
	"errors"
	"testing"
	"time"
)

func activeTestSession() *Session {
	sess := &Session{
		ID:              "s1",
		RoomCode:        "ROOM",
		Categories:      []string{"Animals"},
		TotalRounds:     2,
		RoundDuration:   60,
		AllowedLetters:  "B",
		OverallTimeLeft: 300,
		Status:          statusWaiting,
	}
	if err := beginRound(sess, "B", time.Now().UTC()); err != nil {
		panic(err)
	}
	return sess
}

func TestBeginRoundRejectsExhaustedMatch(t *testing.T) {
	sess := &Session{
		TotalRounds:     1,
		CurrentRound:    1,
		OverallTimeLeft: 300,
		Status:          statusWaiting,
	}
	if err := beginRound(sess, "B", time.Now().UTC()); !errors.Is(err, ErrGameCompleted) {
		t.Fatalf("expected completion error after last round, got %v", err)
	}

	sess = &Session{
		TotalRounds:     3,
		OverallTimeLeft: 0,
		Status:          statusWaiting,
	}
	if err := beginRound(sess, "B", time.Now().UTC()); !errors.Is(err, ErrGameCompleted) {
		t.Fatalf("expected completion error with exhausted clock, got %v", err)
	}
}

func TestEndAnswerPhaseSecondCallIsNoop(t *testing.T) {
	sess := activeTestSession()

	changed, err := endAnswerPhase(sess, 1, "ada")
	if err != nil || !changed {
		t.Fatalf("expected first stop to transition, got changed=%v err=%v", changed, err)
	}
	if !sess.GlobalTimerPaused {
		t.Fatalf("expected review to pause the match clock")
	}

	changed, err = endAnswerPhase(sess, 1, "ben")
	if err != nil || changed {
		t.Fatalf("expected second stop to be a no-op, got changed=%v err=%v", changed, err)
	}
	if round := roundByNumber(sess, 1); round.StoppedBy != "ada" {
		t.Fatalf("expected first stopper to be recorded, got %q", round.StoppedBy)
	}
}

func TestEndAnswerPhaseRejectsStaleRound(t *testing.T) {
	sess := activeTestSession()
	if _, err := endAnswerPhase(sess, 2, "ada"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected unknown round error, got %v", err)
	}
}

func TestFinalizeRoundReturnsCachedResult(t *testing.T) {
	sess := activeTestSession()
	if err := submitAnswer(sess, "ada", "Animals", "Bear"); err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if _, err := endAnswerPhase(sess, 1, "ada"); err != nil {
		t.Fatalf("end answer phase: %v", err)
	}

	first, changed, err := finalizeRound(sess, 1, time.Now().UTC())
	if err != nil || !changed {
		t.Fatalf("expected first finalize to score, got changed=%v err=%v", changed, err)
	}
	if sess.Status != statusWaiting {
		t.Fatalf("expected waiting status with a round remaining, got %s", sess.Status)
	}
	if sess.CurrentLetter != "" {
		t.Fatalf("expected letter cleared after finalize, got %q", sess.CurrentLetter)
	}

	second, changed, err := finalizeRound(sess, 1, time.Now().UTC())
	if err != nil || changed {
		t.Fatalf("expected second finalize to be cached, got changed=%v err=%v", changed, err)
	}
	if first != second {
		t.Fatalf("expected the same round state back")
	}
}

func TestFinalizeLastRoundFinishesSession(t *testing.T) {
	sess := activeTestSession()
	sess.TotalRounds = 1
	if _, err := endAnswerPhase(sess, 1, ""); err != nil {
		t.Fatalf("end answer phase: %v", err)
	}
	if _, _, err := finalizeRound(sess, 1, time.Now().UTC()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sess.Status != statusFinished {
		t.Fatalf("expected finished status, got %s", sess.Status)
	}
	if err := beginRound(sess, "B", time.Now().UTC()); !errors.Is(err, ErrGameCompleted) {
		t.Fatalf("expected completion error after finish, got %v", err)
	}
}

func TestFinalizeRequiresReview(t *testing.T) {
	sess := activeTestSession()
	if _, _, err := finalizeRound(sess, 1, time.Now().UTC()); !errors.Is(err, ErrState) {
		t.Fatalf("expected state error while round is active, got %v", err)
	}
}
