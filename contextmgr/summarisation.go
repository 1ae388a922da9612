package contextmgr

import (
	"fmt"

	"github.com/tsharp/agent-runtime/chatmsg"
)

// Summarise produces a synthetic system message summarising a run of
// messages. The default implementation is a deterministic, non-LLM
// placeholder (counts messages and roles); callers that want model-backed
// summarisation should supply their own Summarise function.
type Summarise func(head []chatmsg.ChatMessage) chatmsg.ChatMessage

// defaultSummarise implements the package default: a short, deterministic
// digest. It exists so Summarisation is usable without an LLM dependency;
// production callers should inject a model-backed Summarise.
func defaultSummarise(head []chatmsg.ChatMessage) chatmsg.ChatMessage {
	counts := map[chatmsg.Role]int{}
	for _, msg := range head {
		counts[msg.Role]++
	}
	return chatmsg.NewSystem(fmt.Sprintf(
		"[summary of %d earlier messages: %d user, %d assistant, %d tool]",
		len(head), counts[chatmsg.RoleUser], counts[chatmsg.RoleAssistant], counts[chatmsg.RoleTool],
	))
}

// Summarisation prunes by splitting history into a head to summarise and a
// tail of KeepRecent messages once estimated tokens exceed Threshold,
// producing a single synthetic system message for the head and
// concatenating system messages from head + summary + tail (spec §4.2).
type Summarisation struct {
	// MaxInputTokens is the target budget the result must respect; an
	// emergency truncation is applied if the summary does not fit.
	MaxInputTokens uint
	// Threshold is the estimated-token trigger for summarisation.
	Threshold uint
	// KeepRecent is the number of trailing messages always kept verbatim.
	KeepRecent int
	// Summarise produces the synthetic summary message for the head. When
	// nil, defaultSummarise is used.
	Summarise Summarise
}

// ShouldPrune reports whether estimatedTokens exceeds Threshold.
func (s Summarisation) ShouldPrune(_ []chatmsg.ChatMessage, estimatedTokens uint) bool {
	return estimatedTokens > s.Threshold
}

// Prune splits history into head/tail, summarises the head's non-system
// messages, and concatenates system-messages-of-head + summary + tail. If the result still
// exceeds MaxInputTokens, an emergency truncation drops tail messages
// (oldest-of-tail first, never the summary) until it fits.
func (s Summarisation) Prune(history []chatmsg.ChatMessage) ([]chatmsg.ChatMessage, uint) {
	before := EstimateTokens(history)
	keepRecent := s.KeepRecent
	if keepRecent > len(history) {
		keepRecent = len(history)
	}
	splitAt := len(history) - keepRecent
	head := history[:splitAt]
	tail := append([]chatmsg.ChatMessage{}, history[splitAt:]...)

	if len(head) == 0 {
		return history, 0
	}

	var headSystem, headRest []chatmsg.ChatMessage
	for _, msg := range head {
		if msg.Role == chatmsg.RoleSystem {
			headSystem = append(headSystem, msg)
		} else {
			headRest = append(headRest, msg)
		}
	}

	summarise := s.Summarise
	if summarise == nil {
		summarise = defaultSummarise
	}
	summary := summarise(headRest)

	result := append(append([]chatmsg.ChatMessage{}, headSystem...), summary)
	result = append(result, tail...)
	result = evictToolOrphans(result)

	if s.MaxInputTokens > 0 {
		for EstimateTokens(result) > s.MaxInputTokens && len(tail) > 0 {
			tail = tail[1:]
			result = evictToolOrphans(append(append(append([]chatmsg.ChatMessage{}, headSystem...), summary), tail...))
		}
	}

	after := EstimateTokens(result)
	freed := uint(0)
	if before > after {
		freed = before - after
	}
	return result, freed
}

// EstimateTokens delegates to the shared estimator.
func (s Summarisation) EstimateTokens(history []chatmsg.ChatMessage) uint {
	return EstimateTokens(history)
}

// Name returns "summarisation".
func (s Summarisation) Name() string { return "summarisation" }
