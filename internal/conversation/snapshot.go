package conversation

import "github.com/erg0nix/parley/internal/core"

// Snapshot captures the token budget state of a transcript at a point in time.
type Snapshot struct {
	TokenLimit      int            `json:"token_limit"`
	AnchorTokens    int            `json:"anchor_tokens"`
	HistoryTokens   int            `json:"history_tokens"`
	TotalTokens     int            `json:"total_tokens"`
	RemainingTokens int            `json:"remaining_tokens"`
	TotalMessages   int            `json:"total_messages"`
	Messages        []MessageStats `json:"messages,omitempty"`
}

// MessageStats holds token count and source metadata for a single message in a snapshot.
type MessageStats struct {
	Role   core.Role `json:"role"`
	Tokens int       `json:"tokens"`
	Source string    `json:"source"`
}
