package contextmgr

import (
	"strings"

	"github.com/tsharp/agent-runtime/chatmsg"
)

// Chain runs ShouldPrune/Prune across its members in order, stopping as
// soon as a member's Prune brings estimated tokens back within whatever
// triggered pruning. It lets callers compose cheap structural strategies
// (SlidingWindow, MessageType) ahead of an expensive one (Summarisation).
type Chain struct {
	Strategies []Strategy
}

// ShouldPrune reports whether any member strategy would prune.
func (c Chain) ShouldPrune(history []chatmsg.ChatMessage, estimatedTokens uint) bool {
	for _, s := range c.Strategies {
		if s.ShouldPrune(history, estimatedTokens) {
			return true
		}
	}
	return false
}

// Prune applies each member strategy in order, feeding each one's output to
// the next. Members whose own ShouldPrune is false are skipped, and the
// chain stops early once no member judges the result prune-worthy.
func (c Chain) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	before := EstimateTokens(history)
	current := history
	for _, s := range c.Strategies {
		estimated := s.EstimateTokens(current)
		if !s.ShouldPrune(current, estimated) {
			continue
		}
		next, _ := s.Prune(current)
		current = next
		if !c.ShouldPrune(current, EstimateTokens(current)) {
			break
		}
	}
	after := EstimateTokens(current)
	freed := uint(0)
	if before > after {
		freed = before - after
	}
	return current, freed
}

// EstimateTokens delegates to the shared estimator.
func (c Chain) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name joins member strategy names with "+", e.g. "sliding_window+summarisation".
func (c Chain) Name() string {
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}
