package contextmgr

import "github.com/tsharp/agent-runtime/chatmsg"

// NoOp never prunes. It is the default Strategy when no budget management
// is required.
type NoOp struct{}

// ShouldPrune always returns false.
func (NoOp) ShouldPrune([]chatmsg.ChatMessage, uint) bool { return false }

// Prune returns history unchanged with zero tokens freed.
func (NoOp) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	return history, 0
}

// EstimateTokens delegates to the shared estimator.
func (NoOp) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name returns "noop".
func (NoOp) Name() string { return "noop" }
