package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration matches every *GenerationError.
	ErrGeneration = errors.New("generation failed")
	// ErrInsufficientResults matches every *InsufficientResultsError.
	ErrInsufficientResults = errors.New("not enough valid recommendations found")
	// ErrEmptyMessage rejects a turn before it starts.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSystemTurn is returned when a caller tries to append a second system turn.
	ErrSystemTurn = errors.New("system turn can only open a conversation")
)

// GenerationError reports that the generative call failed or produced unusable output.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGeneration, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// InsufficientResultsError reports that too few candidates survived enrichment.
type InsufficientResultsError struct {
	Got  int
	Want int
}

func (e *InsufficientResultsError) Error() string {
	return fmt.Sprintf("%s: got %d, need at least %d", ErrInsufficientResults, e.Got, e.Want)
}

func (e *InsufficientResultsError) Is(target error) bool { return target == ErrInsufficientResults }
