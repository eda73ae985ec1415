package session

import "errors"

// Sentinel errors
var (
	ErrNotFound            = errors.New("session not found")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
