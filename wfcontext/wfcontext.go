// Package wfcontext implements WorkflowContext: the shared, interior-mutable
// message log and token budget that a workflow and every step within it
// co-own for the duration of one run (spec §3 "WorkflowContext", §4.3).
package wfcontext

import (
	"sync"
	"time"

	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/ids"
)

// Metadata carries the bookkeeping fields a WorkflowContext tracks
// alongside its message log.
type Metadata struct {
	WorkflowID  ids.WorkflowID
	CreatedAt   time.Time
	LastUpdated time.Time
	StepCount   int
}

// Context is the concurrently shared state of one workflow run: its chat
// history and derived token budgets. Sub-workflows share (do not clone) a
// parent's Context unless Fork is called explicitly (spec §3 "Ownership").
//
// Access is guarded by a reader/writer lock: readers such as History and
// MaxInputTokens may run concurrently with each other; mutation
// (AppendMessages, SetHistory) takes exclusive access. No lock is ever held across I/O (spec
// §5 "Shared resources").
type Context struct {
	mu       sync.RWMutex
	history  []chatmsg.ChatMessage
	metadata Metadata

	// maxContextTokens is the overall budget shared between input and
	// output; must be >= 1.
	maxContextTokens uint
	// ratio is the input:output partition ratio r; must be > 0.
	ratio float64
}

// New constructs a Context for a fresh workflow run. maxContextTokens must
// be >= 1 and ratio must be > 0, per the WorkflowContext invariants.
func New(workflowID ids.WorkflowID, maxContextTokens uint, ratio float64) *Context {
	if maxContextTokens < 1 {
		maxContextTokens = 1
	}
	if ratio <= 0 {
		ratio = 1
	}
	now := timeNow()
	return &Context{
		metadata: Metadata{
			WorkflowID:  workflowID,
			CreatedAt:   now,
			LastUpdated: now,
		},
		maxContextTokens: maxContextTokens,
		ratio:            ratio,
	}
}

// timeNow is a seam so tests can be deterministic about LastUpdated without
// depending on wall-clock jitter; production callers get real time.
var timeNow = time.Now

// History returns a copy of the current message log. Callers must not
// cache the result across an await point (spec §4.3): the context is the
// single source of truth during a run.
func (c *Context) History() []chatmsg.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chatmsg.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}

// AppendMessages appends msgs to the history and bumps LastUpdated.
func (c *Context) AppendMessages(msgs ...chatmsg.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, msgs...)
	c.metadata.LastUpdated = timeNow()
}

// SetHistory replaces the history wholesale (e.g. after a Context Manager
// prune) and bumps LastUpdated.
func (c *Context) SetHistory(msgs []chatmsg.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append([]chatmsg.ChatMessage{}, msgs...)
	c.metadata.LastUpdated = timeNow()
}

// Fork produces a deep copy of c under a new workflow id, for callers that
// explicitly want isolation instead of the default shared-context behavior
// (spec §3 "Ownership", §4.3).
func (c *Context) Fork(newWorkflowID ids.WorkflowID) *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	forked := New(newWorkflowID, c.maxContextTokens, c.ratio)
	forked.history = append([]chatmsg.ChatMessage{}, c.history...)
	return forked
}

// MaxInputTokens returns floor(maxContextTokens * ratio / (ratio + 1)).
func (c *Context) MaxInputTokens() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint(float64(c.maxContextTokens) * c.ratio / (c.ratio + 1))
}

// MaxOutputTokens returns floor(maxContextTokens / (ratio + 1)).
func (c *Context) MaxOutputTokens() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint(float64(c.maxContextTokens) / (c.ratio + 1))
}

// MaxContextTokens returns the overall token budget.
func (c *Context) MaxContextTokens() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxContextTokens
}

// Ratio returns the input:output partition ratio.
func (c *Context) Ratio() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ratio
}

// Metadata returns a copy of the workflow-level bookkeeping fields.
func (c *Context) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata
}

// IncrementStepCount bumps the recorded step count by one. Called by the
// Runtime as it advances through a workflow's steps.
func (c *Context) IncrementStepCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata.StepCount++
	c.metadata.LastUpdated = timeNow()
}
