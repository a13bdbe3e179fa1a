package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSessionState indicates the operation is not valid for the
	// session's current status.
	ErrInvalidSessionState = errors.New("invalid session state")

	// ErrStaleQuestion indicates an answer referenced a question that is no
	// longer active. The caller must re-fetch.
	ErrStaleQuestion = errors.New("stale question")

	// ErrPowerupNotOwned indicates the powerup is not in the inventory.
	ErrPowerupNotOwned = errors.New("powerup not owned")

	// ErrUnknownPowerup indicates the id is not in the catalog.
	ErrUnknownPowerup = errors.New("unknown powerup")

	// ErrAlreadyActive indicates a non-terminated session already exists
	// for the player and material.
	ErrAlreadyActive = errors.New("session already active")

	// ErrPoolExhausted indicates no eligible question is available.
	ErrPoolExhausted = errors.New("question pool exhausted")

	// ErrNotEnoughQuestions indicates the material has too few questions to
	// start a game.
	ErrNotEnoughQuestions = errors.New("not enough questions")

	// ErrInvalidArgument indicates malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrSessionNotFound  = errors.New("session not found")
	ErrSaveNotFound     = errors.New("save not found")
	ErrQuestionNotFound = errors.New("question not found")

	// ErrVersionConflict indicates a stale writer lost an optimistic
	// version check.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrPersistence matches any *PersistenceError via errors.Is.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError wraps a failure of the persistence contract.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err as a *PersistenceError for op. Nil stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
