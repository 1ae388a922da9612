// Package contextmgr implements the pluggable Context Manager policy family
// that keeps a conversation's message log within a configured token budget
// (spec §4.2). Every strategy is pure over the history passed to it: no
// hidden state is retained between calls, so any Strategy can be swapped in
// for another at runtime.
package contextmgr

import (
	"github.com/tsharp/agent-runtime/chatmsg"
)

// Strategy is the Context Manager interface. Implementations must be
// deterministic over a given history.
type Strategy interface {
	// ShouldPrune reports whether history needs shrinking, given its
	// estimated token count (normally EstimateTokens(history)).
	ShouldPrune(history []chatmsg.ChatMessage, estimatedTokens uint) bool
	// Prune returns a shrunk history plus the number of tokens (or,
	// documented per-strategy, messages) it freed.
	Prune(history []chatmsg.ChatMessage) (pruned []chatmsg.ChatMessage, freed uint)
	// EstimateTokens approximates the token cost of history.
	EstimateTokens(history []chatmsg.ChatMessage) uint
	// Name identifies the strategy for logging/diagnostics.
	Name() string
}

// EstimateTokens implements the shared approximation every strategy must
// use (spec §4.2): 1 token ≈ 4 content characters, +1 per role marker, +20
// per outgoing tool call.
func EstimateTokens(history []chatmsg.ChatMessage) uint {
	var total uint
	for _, msg := range history {
		total += uint(len(msg.Content)+3) / 4
		total++ // role marker
		total += uint(len(msg.ToolCalls)) * 20
	}
	return total
}

// leadingSystemCount returns how many messages at the start of history are
// system messages.
func leadingSystemCount(history []chatmsg.ChatMessage) int {
	n := 0
	for _, msg := range history {
		if msg.Role != chatmsg.RoleSystem {
			break
		}
		n++
	}
	return n
}

// evictToolOrphans drops any tool message whose tool_call_id no longer
// matches a surviving assistant ToolCall, and any assistant ToolCall left
// with no surviving tool response, so prune never leaves a dangling half of
// a request/response pair (spec §4.2 TokenBudget "does not split
// assistant/tool pairs arbitrarily").
func evictToolOrphans(history []chatmsg.ChatMessage) []chatmsg.ChatMessage {
	toolCallIDs := make(map[string]bool)
	for _, msg := range history {
		if msg.Role == chatmsg.RoleAssistant {
			for _, tc := range msg.ToolCalls {
				toolCallIDs[tc.ID] = true
			}
		}
	}
	respondedTo := make(map[string]bool)
	for _, msg := range history {
		if msg.Role == chatmsg.RoleTool && toolCallIDs[msg.ToolCallID] {
			respondedTo[msg.ToolCallID] = true
		}
	}

	out := make([]chatmsg.ChatMessage, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chatmsg.RoleTool:
			if !toolCallIDs[msg.ToolCallID] {
				continue
			}
			out = append(out, msg)
		case chatmsg.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				kept := msg.ToolCalls[:0:0]
				for _, tc := range msg.ToolCalls {
					if respondedTo[tc.ID] {
						kept = append(kept, tc)
					}
				}
				msg.ToolCalls = kept
			}
			out = append(out, msg)
		default:
			out = append(out, msg)
		}
	}
	return out
}
