package contextmgr

import "github.com/tsharp/agent-runtime/chatmsg"

// SlidingWindow keeps the leading system messages plus the last N minus the
// number of system messages non-system messages (spec §4.2).
type SlidingWindow struct {
	// N is the total window size, including preserved system messages.
	N int
}

// ShouldPrune reports whether history has more messages than the window
// can hold.
func (s SlidingWindow) ShouldPrune(history []chatmsg.ChatMessage, _ uint) bool {
	return len(history) > s.N
}

// Prune keeps every leading system message plus the most recent
// N-#system non-system messages, evicting whole request/response groups
// from the oldest surviving boundary when necessary so no tool message is
// orphaned.
func (s SlidingWindow) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	before := EstimateTokens(history)
	sysCount := leadingSystemCount(history)
	keepNonSystem := s.N - sysCount
	if keepNonSystem < 0 {
		keepNonSystem = 0
	}
	rest := history[sysCount:]
	if len(rest) > keepNonSystem {
		rest = rest[len(rest)-keepNonSystem:]
	}
	pruned := evictToolOrphans(append(append([]chatmsg.ChatMessage{}, history[:sysCount]...), rest...))
	after := EstimateTokens(pruned)
	freed := uint(0)
	if before > after {
		freed = before - after
	}
	return pruned, freed
}

// EstimateTokens delegates to the shared estimator.
func (s SlidingWindow) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name returns "sliding_window".
func (s SlidingWindow) Name() string { return "sliding_window" }
