package model

import "errors"

var (
	// ErrCapacityExhausted is returned when a session already holds its
	// target number of questions.
	ErrCapacityExhausted = errors.New("authoring capacity exhausted")
	// ErrEmptyTopic is returned when generation is requested with a blank topic.
	ErrEmptyTopic = errors.New("topic is empty")
	// ErrInvalidDifficulty is returned for an unknown difficulty level.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidIndex is returned for item indices outside the session.
	ErrInvalidIndex = errors.New("item index out of range")
	// ErrNotRevealed is returned when an operation requires a revealed item.
	ErrNotRevealed = errors.New("item not revealed yet")
	// ErrIncompleteSet is returned when save is attempted before every
	// item has been chosen.
	ErrIncompleteSet = errors.New("authored set incomplete")
	// ErrEmptyTeam is returned when an event arrives without a team id.
	ErrEmptyTeam = errors.New("team id is empty")

	// ErrServiceUnavailable indicates the generation service could not be reached.
	ErrServiceUnavailable = errors.New("generation service unavailable")
	// ErrMalformedResponse indicates the generation service returned an
	// unusable payload.
	ErrMalformedResponse = errors.New("malformed generation response")
)
