package contextmgr

import "github.com/tsharp/agent-runtime/chatmsg"

// DefaultMinMessagesToKeep bounds how aggressively TokenBudget evicts: it
// never shrinks history below this many messages (spec §4.2).
const DefaultMinMessagesToKeep = 3

// safetyBufferRatio is the 10% safety margin TokenBudget applies to its
// derived input-token budget before triggering a prune.
const safetyBufferRatio = 0.90

// TokenBudget derives max_input_tokens = total*r/(r+1) and prunes once
// estimated tokens exceed a 10% safety-buffered threshold, preserving
// leading system messages and evicting whole request/response groups from
// the oldest non-system message forward (spec §4.2).
type TokenBudget struct {
	// Total is the overall token budget shared between input and output.
	Total uint
	// Ratio is the input:output partition ratio r (input = total*r/(r+1)).
	Ratio float64
	// MinMessagesToKeep floors how many messages may remain after a prune.
	// Zero means DefaultMinMessagesToKeep.
	MinMessagesToKeep int
}

// MaxInputTokens returns the derived input-token budget.
func (s TokenBudget) MaxInputTokens() uint {
	if s.Ratio <= 0 {
		return s.Total
	}
	return uint(float64(s.Total) * s.Ratio / (s.Ratio + 1))
}

func (s TokenBudget) minKeep() int {
	if s.MinMessagesToKeep > 0 {
		return s.MinMessagesToKeep
	}
	return DefaultMinMessagesToKeep
}

// ShouldPrune reports whether estimatedTokens exceeds the safety-buffered
// input budget.
func (s TokenBudget) ShouldPrune(_ []chatmsg.ChatMessage, estimatedTokens uint) bool {
	threshold := uint(float64(s.MaxInputTokens()) * safetyBufferRatio)
	return estimatedTokens > threshold
}

// Prune preserves all leading system messages, then evicts from the oldest
// non-system message forward -- in whole request/response groups -- until
// the budget is met or only MinMessagesToKeep messages remain.
func (s TokenBudget) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	before := EstimateTokens(history)
	sysCount := leadingSystemCount(history)
	budget := uint(float64(s.MaxInputTokens()) * safetyBufferRatio)
	minKeep := s.minKeep()

	rest := append([]chatmsg.ChatMessage{}, history[sysCount:]...)
	current := func() []chatmsg.ChatMessage {
		return append(append([]chatmsg.ChatMessage{}, history[:sysCount]...), rest...)
	}

	for len(rest) > 0 {
		total := sysCount + len(rest)
		if total <= minKeep {
			break
		}
		if EstimateTokens(evictToolOrphans(current())) <= budget {
			break
		}
		rest = rest[evictGroupLen(rest, 0):]
	}

	pruned := evictToolOrphans(current())
	after := EstimateTokens(pruned)
	freed := uint(0)
	if before > after {
		freed = before - after
	}
	return pruned, freed
}

// evictGroupLen returns how many messages starting at idx form one
// request/response group: the message at idx plus any immediately
// following tool messages that respond to its tool calls. This keeps an
// assistant message and its tool results evicted together.
func evictGroupLen(msgs []chatmsg.ChatMessage, idx int) int {
	if idx >= len(msgs) {
		return 0
	}
	n := 1
	if msgs[idx].Role == chatmsg.RoleAssistant && len(msgs[idx].ToolCalls) > 0 {
		ids := make(map[string]bool, len(msgs[idx].ToolCalls))
		for _, tc := range msgs[idx].ToolCalls {
			ids[tc.ID] = true
		}
		for idx+n < len(msgs) && msgs[idx+n].Role == chatmsg.RoleTool && ids[msgs[idx+n].ToolCallID] {
			n++
		}
	}
	return n
}

// EstimateTokens delegates to the shared estimator.
func (s TokenBudget) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name returns "token_budget".
func (s TokenBudget) Name() string { return "token_budget" }
