// Package config holds yaml-tagged configuration structs that Parse decodes
// from yaml bytes. Turning them into the CORE's constructor options is not
// done here; callers map the fields themselves. No file-system access lives here —
// callers read bytes themselves and hand them to Parse; this package is
// the ambient "typed, validated configuration" concern, carried even
// though loading config files from disk is out of scope for CORE.
package config

import (
	"gopkg.in/yaml.v3"

	"github.com/tsharp/agent-runtime/rterrors"
)

// RetryConfigFile is the yaml shape of a retry policy.
type RetryConfigFile struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
	Jitter       bool    `yaml:"jitter"`
}

// ContextManagerConfigFile is the yaml shape of a Context Manager policy
// (spec §4.2): exactly one of SlidingWindow or Summarisation should be set.
type ContextManagerConfigFile struct {
	MaxContextTokens uint    `yaml:"max_context_tokens"`
	InputOutputRatio float64 `yaml:"input_output_ratio"`

	SlidingWindow *struct {
		KeepLastN int `yaml:"keep_last_n"`
	} `yaml:"sliding_window,omitempty"`

	Summarisation *struct {
		TriggerTokens uint `yaml:"trigger_tokens"`
		KeepLastN     int  `yaml:"keep_last_n"`
	} `yaml:"summarisation,omitempty"`
}

// AgentConfigFile is the yaml shape of an Agent's static configuration
// (spec §4.7 "Config").
type AgentConfigFile struct {
	Name              string  `yaml:"name"`
	SystemPrompt      string  `yaml:"system_prompt"`
	MaxToolIterations int     `yaml:"max_tool_iterations"`
	Temperature       float64 `yaml:"temperature,omitempty"`

	ContextManager *ContextManagerConfigFile `yaml:"context_manager,omitempty"`
	Retry          *RetryConfigFile          `yaml:"retry,omitempty"`
}

// WorkflowConfigFile is the yaml shape of a Workflow's static declaration:
// the ordered step names plus which named Agent config backs each Agent
// Step. Transform/Conditional/SubWorkflow steps are wired in code — only
// an Agent Step's model-facing configuration is worth externalising to
// yaml.
type WorkflowConfigFile struct {
	Name  string `yaml:"name"`
	Steps []struct {
		Name      string `yaml:"name"`
		Type      string `yaml:"type"`
		AgentName string `yaml:"agent_name,omitempty"`
	} `yaml:"steps"`
}

// Parse decodes data into T, wrapping any yaml error as an
// rterrors.KindConfiguration failure (spec §1.3 "fatal at load time, never
// at run time").
func Parse[T any](data []byte) (T, error) {
	var out T
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, rterrors.Wrap(rterrors.KindConfiguration, "config.parse", err, "failed to parse configuration")
	}
	return out, nil
}

// Validate checks that an AgentConfigFile has a name, a system prompt and a
// positive max_tool_iterations. agent.New itself checks none of these; the
// agent's own guards (model client and system prompt) run in Execute.
func (c AgentConfigFile) Validate() error {
	if c.Name == "" {
		return rterrors.New(rterrors.KindConfiguration, "config.validate", "agent config missing name")
	}
	if c.SystemPrompt == "" {
		return rterrors.New(rterrors.KindConfiguration, "config.validate", "agent config missing system_prompt")
	}
	if c.MaxToolIterations <= 0 {
		return rterrors.New(rterrors.KindConfiguration, "config.validate", "agent config max_tool_iterations must be positive")
	}
	return nil
}
