// Package toolloop implements the per-agent-run Tool Loop Detector (spec
// §4.5): a scratchpad that recognises a repeated (tool name, canonical
// arguments) call within one agent run and hands back the prior result
// instead of letting the Agent re-invoke the tool.
package toolloop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tsharp/agent-runtime/tool"
)

// SuppressionTemplate formats the tool message injected in place of a real
// result when a duplicate call is detected (spec §4.5; customizable so
// callers can tune the wording a model responds to best).
type SuppressionTemplate func(name string, prior tool.Result) string

// DefaultSuppressionTemplate is the spec's explicit default: it names the
// tool, states the call has already been made, and presents the prior
// result, instructing the model to use it or vary the arguments.
func DefaultSuppressionTemplate(name string, prior tool.Result) string {
	return fmt.Sprintf(
		"This exact call to tool %q has already been made with the same arguments. "+
			"The prior result was: %s. Use that result, or vary the arguments if you need a different answer.",
		name, string(prior.Output),
	)
}

// record is the tuple the detector keeps per distinct call it has seen.
type record struct {
	result tool.Result
}

// Detector is local to one agent run; it is never shared across runs (spec
// §5 "Loop Detector is local to one agent run; not shared").
type Detector struct {
	// SuppressionTemplate formats the message shown on a detected repeat.
	// Defaults to DefaultSuppressionTemplate when nil.
	SuppressionTemplate SuppressionTemplate

	mu   sync.Mutex
	seen map[string]record
}

// NewDetector constructs an empty Detector for one agent run.
func NewDetector() *Detector {
	return &Detector{seen: make(map[string]record)}
}

// CanonicalKey parses argsJSON (the model-emitted arguments string),
// normalises it to a key-sorted object and returns a stable hash of the
// canonical bytes, combined with name. Malformed JSON falls back to hashing
// the raw string verbatim, so a detector never errors on bad input — it
// simply treats distinct malformed strings as distinct calls.
func CanonicalKey(name, argsJSON string) string {
	canonical := canonicalizeJSON(argsJSON)
	sum := sha256.Sum256([]byte(name + "\x00" + canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalizeJSON(raw string) string {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	canonical, err := canonicalMarshal(decoded)
	if err != nil {
		return raw
	}
	return canonical
}

// canonicalMarshal renders v with object keys sorted, so two JSON
// documents that differ only in key order hash identically.
func canonicalMarshal(v any) (string, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return "", err
			}
			vs, err := canonicalMarshal(val[k])
			if err != nil {
				return "", err
			}
			out += string(kb) + ":" + vs
		}
		out += "}"
		return out, nil
	case []any:
		out := "["
		for i, elem := range val {
			if i > 0 {
				out += ","
			}
			vs, err := canonicalMarshal(elem)
			if err != nil {
				return "", err
			}
			out += vs
		}
		out += "]"
		return out, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// CheckForLoop reports whether (name, argsJSON) has already been recorded
// in this run, returning the earlier result if so (spec §4.5
// "check_for_loop").
func (d *Detector) CheckForLoop(name, argsJSON string) (tool.Result, bool) {
	key := CanonicalKey(name, argsJSON)
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.seen[key]
	if !ok {
		return tool.Result{}, false
	}
	return rec.result, true
}

// Record stores the result of a (name, argsJSON) call so future duplicates
// are detected. The *first* recorded result for a key is retained; later
// Record calls for the same key are no-ops, so every duplicate compares
// against the original result (spec's explicit suppression contract).
func (d *Detector) Record(name, argsJSON string, result tool.Result) {
	key := CanonicalKey(name, argsJSON)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return
	}
	d.seen[key] = record{result: result}
}

// Suppression formats the suppression message for a detected duplicate,
// using SuppressionTemplate if set, else DefaultSuppressionTemplate.
func (d *Detector) Suppression(name string, prior tool.Result) string {
	tmpl := d.SuppressionTemplate
	if tmpl == nil {
		tmpl = DefaultSuppressionTemplate
	}
	return tmpl(name, prior)
}
