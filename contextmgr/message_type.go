package contextmgr

import "github.com/tsharp/agent-runtime/chatmsg"

// MessageType prunes by priority order system > user/assistant > tool:
// system messages are always preserved, the tail is walked to preserve up
// to RecentPairs user/assistant pairs, older tool messages are discarded
// first, and if still over budget the result is truncated by priority
// (spec §4.2).
type MessageType struct {
	// MaxTokens is the target token budget after pruning.
	MaxTokens uint
	// RecentPairs is how many trailing user/assistant pairs to always keep.
	RecentPairs int
}

// ShouldPrune reports whether estimatedTokens exceeds MaxTokens.
func (s MessageType) ShouldPrune(_ []chatmsg.ChatMessage, estimatedTokens uint) bool {
	return estimatedTokens > s.MaxTokens
}

// Prune always preserves system messages, preserves up to RecentPairs
// trailing user/assistant pairs, discards older tool messages first, and
// truncates remaining non-system, non-preserved messages from oldest to
// newest if still over budget.
func (s MessageType) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	before := EstimateTokens(history)

	var systemMsgs, others []chatmsg.ChatMessage
	for _, msg := range history {
		if msg.Role == chatmsg.RoleSystem {
			systemMsgs = append(systemMsgs, msg)
		} else {
			others = append(others, msg)
		}
	}

	preserved := make(map[int]bool)
	pairs := 0
	for i := len(others) - 1; i >= 0 && pairs < s.RecentPairs; i-- {
		if others[i].Role == chatmsg.RoleAssistant {
			preserved[i] = true
			if i-1 >= 0 && others[i-1].Role == chatmsg.RoleUser {
				preserved[i-1] = true
			}
			pairs++
		} else if others[i].Role == chatmsg.RoleUser && !preserved[i] {
			preserved[i] = true
		}
	}

	build := func(dropTools bool) []chatmsg.ChatMessage {
		out := append([]chatmsg.ChatMessage{}, systemMsgs...)
		for i, msg := range others {
			if preserved[i] {
				out = append(out, msg)
				continue
			}
			if dropTools && msg.Role == chatmsg.RoleTool {
				continue
			}
			out = append(out, msg)
		}
		return evictToolOrphans(out)
	}

	pruned := build(false)
	if EstimateTokens(pruned) > s.MaxTokens {
		pruned = build(true)
	}
	// Still over budget: truncate remaining non-preserved messages from
	// oldest to newest (lowest priority first), one at a time.
	if EstimateTokens(pruned) > s.MaxTokens {
		dropped := make(map[int]bool)
		for i := range others {
			if preserved[i] {
				continue
			}
			dropped[i] = true
			out := append([]chatmsg.ChatMessage{}, systemMsgs...)
			for j, msg := range others {
				if dropped[j] {
					continue
				}
				out = append(out, msg)
			}
			candidate := evictToolOrphans(out)
			pruned = candidate
			if EstimateTokens(candidate) <= s.MaxTokens {
				break
			}
		}
	}

	after := EstimateTokens(pruned)
	freed := uint(0)
	if before > after {
		freed = before - after
	}
	return pruned, freed
}

// EstimateTokens delegates to the shared estimator.
func (s MessageType) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name returns "message_type".
func (s MessageType) Name() string { return "message_type" }
