package games

import "errors"

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrAlreadyAnswered = errors.New("current round already answered")
	ErrNotAnswered     = errors.New("current round not answered yet")
	ErrFinished        = errors.New("game already finished")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrInvalidContent  = errors.New("invalid game content")
)
