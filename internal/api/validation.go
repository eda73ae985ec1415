package api

import (
	"fmt"
	"unicode/utf8"
)

const maxCodeBytes = 1 * 1024 * 1024

// validateCreateSessionRequest validates session creation parameters.
// Language membership in the configured set is the registry's call; here we
// only reject garbage.
func validateCreateSessionRequest(req createSessionRequest) error {
	if len(req.Language) > 32 {
		return fmt.Errorf("language must not exceed 32 characters")
	}
	return nil
}

// validateExecuteRequest validates code execution parameters
func validateExecuteRequest(req executeRequest) error {
	if req.Code == "" {
		return fmt.Errorf("code is required")
	}
	if len(req.Code) > maxCodeBytes {
		return fmt.Errorf("code must not exceed %d bytes", maxCodeBytes)
	}
	if !utf8.ValidString(req.Code) {
		return fmt.Errorf("code must be valid UTF-8")
	}
	if len(req.Language) > 32 {
		return fmt.Errorf("language must not exceed 32 characters")
	}
	return nil
}
