package conversation

import "github.com/erg0nix/parley/internal/tokens"

// Limiter keeps a transcript's total token cost within Limit by evicting the
// oldest non-anchor turns first.
type Limiter struct {
	Counter tokens.Counter
	Limit   int
}

// EnforceResult describes what a single Enforce call did.
type EnforceResult struct {
	Before     int
	After      int
	Limit      int
	Evicted    int
	OverBudget bool
}

// Total returns the summed token cost of every turn in t, anchor included.
func (l Limiter) Total(t *Transcript) int {
	texts := make([]string, len(t.messages))
	for i, msg := range t.messages {
		texts[i] = msg.Content
	}
	return tokens.Sum(l.Counter, texts...)
}

// Enforce evicts the turn at index 1 until the transcript fits the limit.
//
// The anchor is never evicted, and neither is the last remaining non-anchor
// turn: an oversized newest turn is sent as-is. When nothing else can go the
// call returns with OverBudget set instead of failing.
func (l Limiter) Enforce(t *Transcript) EnforceResult {
	costs := make([]int, len(t.messages))
	total := 0
	for i, msg := range t.messages {
		costs[i] = l.Counter.Count(msg.Content)
		total += costs[i]
	}

	result := EnforceResult{Before: total, Limit: l.Limit}

	for total > l.Limit && len(t.messages) > 2 {
		if _, ok := t.EvictOldest(); !ok {
			break
		}
		total -= costs[1]
		costs = append(costs[:1], costs[2:]...)
		result.Evicted++
	}

	result.After = total
	result.OverBudget = total > l.Limit

	return result
}

// Snapshot reports the per-turn token breakdown of t against the limit.
func (l Limiter) Snapshot(t *Transcript) Snapshot {
	messages := make([]MessageStats, 0, len(t.messages))
	total := 0

	for i, msg := range t.messages {
		count := l.Counter.Count(msg.Content)
		total += count

		source := "history"
		if i == 0 {
			source = "anchor"
		}
		messages = append(messages, MessageStats{Role: msg.Role, Tokens: count, Source: source})
	}

	anchorTokens := 0
	if len(messages) > 0 {
		anchorTokens = messages[0].Tokens
	}

	return Snapshot{
		TokenLimit:      l.Limit,
		AnchorTokens:    anchorTokens,
		HistoryTokens:   total - anchorTokens,
		TotalTokens:     total,
		RemainingTokens: l.Limit - total,
		TotalMessages:   len(messages),
		Messages:        messages,
	}
}
