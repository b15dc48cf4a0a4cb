package provider

import "github.com/erg0nix/parley/internal/core"

// normalizeMessages merges runs of same-role messages so a transcript left
// with broken alternation by an earlier session is still accepted by the API.
// The input slice is not modified.
func normalizeMessages(messages []core.Message) []core.Message {
	if len(messages) <= 1 {
		return messages
	}

	result := []core.Message{messages[0]}

	for i := 1; i < len(messages); i++ {
		current := messages[i]
		previous := &result[len(result)-1]

		if i > 1 && current.Role == previous.Role {
			mergeMessages(previous, current)
		} else {
			result = append(result, current)
		}
	}

	return result
}

func mergeMessages(target *core.Message, source core.Message) {
	if target.Content != "" && source.Content != "" {
		target.Content += "\n\n---\n\n" + source.Content
	} else {
		target.Content += source.Content
	}
}
