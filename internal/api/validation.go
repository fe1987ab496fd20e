package api

import (
	"fmt"
	"regexp"
)

// sessionIDPattern matches ids minted by the registry: 12 chars of a
// uuid, so hex digits and hyphens.
var sessionIDPattern = regexp.MustCompile(`^[0-9a-f-]{12}$`)

func validateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id")
	}
	return nil
}

// validateCreateSessionRequest checks shape only; allowed browsers and
// vram values depend on configuration and are enforced by the registry.
func validateCreateSessionRequest(req createSessionRequest) error {
	if req.Browser == "" {
		return fmt.Errorf("browser is required")
	}
	if req.RAM == "" {
		return fmt.Errorf("ram is required")
	}
	if req.VRAM <= 0 {
		return fmt.Errorf("vram must be positive")
	}
	return nil
}

func validateHistoryLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if limit > 1000 {
		return fmt.Errorf("limit must not exceed 1000")
	}
	return nil
}
