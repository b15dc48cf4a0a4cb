package provider

import (
	"fmt"

	"github.com/erg0nix/parley/internal/core"
)

type ValidationError struct {
	Index        int
	CurrentRole  core.Role
	PreviousRole core.Role
	Message      string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateRoleAlternation checks that the conversation opens with a system
// message and then alternates between user and assistant.
func validateRoleAlternation(messages []core.Message) error {
	if len(messages) == 0 {
		return nil
	}

	if messages[0].Role != core.RoleSystem {
		return &ValidationError{
			Index:   0,
			Message: fmt.Sprintf("first message must be system role, got: %s", messages[0].Role),
		}
	}

	var prevRole core.Role

	for i := 1; i < len(messages); i++ {
		role := messages[i].Role

		if role == core.RoleSystem {
			return &ValidationError{
				Index:       i,
				CurrentRole: role,
				Message:     fmt.Sprintf("system message at index %d after the anchor", i),
			}
		}

		if role == prevRole {
			return &ValidationError{
				Index:        i,
				CurrentRole:  role,
				PreviousRole: prevRole,
				Message:      fmt.Sprintf("consecutive %s messages at index %d and %d", role, i-1, i),
			}
		}

		prevRole = role
	}

	return nil
}
