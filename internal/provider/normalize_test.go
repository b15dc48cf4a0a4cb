package provider

import (
	"testing"

	"github.com/erg0nix/parley/internal/core"
)

func TestNormalizeMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []core.Message
		expected []core.Message
	}{
		{
			name: "consecutive user messages merged",
			messages: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleUser, Content: "first"},
				{Role: core.RoleUser, Content: "second"},
				{Role: core.RoleAssistant, Content: "response"},
			},
			expected: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleUser, Content: "first\n\n---\n\nsecond"},
				{Role: core.RoleAssistant, Content: "response"},
			},
		},
		{
			name: "no consecutive same roles",
			messages: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleUser, Content: "user"},
				{Role: core.RoleAssistant, Content: "assistant"},
			},
			expected: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleUser, Content: "user"},
				{Role: core.RoleAssistant, Content: "assistant"},
			},
		},
		{
			name: "anchor never merged into first turn",
			messages: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleSystem, Content: "second system"},
			},
			expected: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleSystem, Content: "second system"},
			},
		},
		{
			name: "empty content merged without separator",
			messages: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleAssistant, Content: ""},
				{Role: core.RoleAssistant, Content: "text"},
			},
			expected: []core.Message{
				{Role: core.RoleSystem, Content: "system"},
				{Role: core.RoleAssistant, Content: "text"},
			},
		},
		{
			name:     "single message unchanged",
			messages: []core.Message{{Role: core.RoleUser, Content: "hello"}},
			expected: []core.Message{{Role: core.RoleUser, Content: "hello"}},
		},
		{
			name:     "empty messages",
			messages: []core.Message{},
			expected: []core.Message{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeMessages(tt.messages)

			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d messages, got %d", len(tt.expected), len(result))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("message %d: expected %+v, got %+v", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

func TestNormalizeMessagesDoesNotMutateInput(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "system"},
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleUser, Content: "second"},
	}

	normalizeMessages(messages)

	if messages[1].Content != "first" {
		t.Fatalf("input was modified: %q", messages[1].Content)
	}
}
