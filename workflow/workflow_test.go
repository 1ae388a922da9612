package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsharp/agent-runtime/agent"
	"github.com/tsharp/agent-runtime/chatmsg"
	"github.com/tsharp/agent-runtime/eventstream"
	"github.com/tsharp/agent-runtime/ids"
	"github.com/tsharp/agent-runtime/llm"
	"github.com/tsharp/agent-runtime/llm/mock"
	"github.com/tsharp/agent-runtime/step"
	"github.com/tsharp/agent-runtime/telemetry"
	"github.com/tsharp/agent-runtime/wfcontext"
	"github.com/tsharp/agent-runtime/workflow"
)

func upper(data any) (any, error) {
	s, _ := data.(string)
	out := ""
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out += string(r)
	}
	return out, nil
}

// TestRuntime_SequencesStepsOutputToInput covers spec §8 property 7:
// step k+1's input equals step k's output; step 0's input equals the
// workflow's initial input.
func TestRuntime_SequencesStepsOutputToInput(t *testing.T) {
	var seenInputs []any
	s1 := step.NewTransformStep("upper", func(data any) (any, error) {
		seenInputs = append(seenInputs, data)
		return upper(data)
	})
	s2 := step.NewTransformStep("exclaim", func(data any) (any, error) {
		seenInputs = append(seenInputs, data)
		str, _ := data.(string)
		return str + "!", nil
	})

	events := eventstream.New("test", telemetry.Bundle{})
	rt := workflow.NewRuntime(events, telemetry.Bundle{})
	wf := workflow.New(ids.NewWorkflowID(), []step.Step{s1, s2}, "hello", nil)

	run, err := rt.Execute(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, run.State)
	assert.Equal(t, "HELLO!", run.FinalOutput.Data)

	require.Len(t, seenInputs, 2)
	assert.Equal(t, "hello", seenInputs[0])
	assert.Equal(t, "HELLO", seenInputs[1])

	allEvents := events.All()
	var startedWorkflow, completedWorkflow int
	for _, e := range allEvents {
		if e.Scope == eventstream.ScopeWorkflow && e.Type == eventstream.TypeStarted {
			startedWorkflow++
		}
		if e.Scope == eventstream.ScopeWorkflow && e.Type == eventstream.TypeCompleted {
			completedWorkflow++
		}
	}
	assert.Equal(t, 1, startedWorkflow)
	assert.Equal(t, 1, completedWorkflow)
}

func TestRuntime_StepFailureFailsWorkflowAndRecordsFailedStep(t *testing.T) {
	boom := errors.New("boom")
	ok := step.NewTransformStep("ok", func(data any) (any, error) { return data, nil })
	bad := step.NewTransformStep("bad", func(data any) (any, error) { return nil, boom })

	events := eventstream.New("test", telemetry.Bundle{})
	rt := workflow.NewRuntime(events, telemetry.Bundle{})
	wf := workflow.New(ids.NewWorkflowID(), []step.Step{ok, bad}, "start", nil)

	run, err := rt.Execute(context.Background(), wf)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, workflow.StateFailed, run.State)
	assert.Equal(t, "bad", run.FailedStep)
}

// TestRuntime_SubWorkflowSharesContext covers spec §8 property 8 / scenario
// E6: an agent inside a SubWorkflow Step sees messages appended earlier in
// the parent workflow, and messages it appends are visible afterwards.
func TestRuntime_SubWorkflowSharesContext(t *testing.T) {
	modelParentFirst := mock.NewClient(llm.Response{Content: "parent-first"})
	modelChild := mock.NewClient(llm.Response{Content: "child-reply"})
	modelParentLast := mock.NewClient(llm.Response{Content: "parent-last"})

	agentParentFirst := agent.New(agent.Config{Name: "ap1", SystemPrompt: "helpful", Model: modelParentFirst}, telemetry.Bundle{})
	agentChild := agent.New(agent.Config{Name: "child", SystemPrompt: "helpful", Model: modelChild}, telemetry.Bundle{})
	agentParentLast := agent.New(agent.Config{Name: "ap2", SystemPrompt: "helpful", Model: modelParentLast}, telemetry.Bundle{})

	events := eventstream.New("test", telemetry.Bundle{})
	rt := workflow.NewRuntime(events, telemetry.Bundle{})

	childStepName := "child-step"
	subBuilder := func(input any) *step.Workflow {
		return &step.Workflow{
			ID:    ids.NewWorkflowID(),
			Steps: []step.Step{step.NewAgentStep(childStepName, agentChild)},
		}
	}
	subStep := step.NewSubWorkflowStep("sub", rt, subBuilder)

	wf := workflow.New(ids.NewWorkflowID(), []step.Step{
		step.NewAgentStep("ap1", agentParentFirst),
		subStep,
		step.NewAgentStep("ap2", agentParentLast),
	}, "kick it off", wfcontext.New(ids.NewWorkflowID(), 100000, 0.75))

	run, err := rt.Execute(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, run.State)
	assert.Equal(t, "parent-last", run.FinalOutput.Data)

	history := wf.Context.History()
	var assistantTexts []string
	for _, m := range history {
		if m.Role == chatmsg.RoleAssistant {
			assistantTexts = append(assistantTexts, m.Content)
		}
	}
	assert.Equal(t, []string{"parent-first", "child-reply", "parent-last"}, assistantTexts)

	parentID := wf.ID
	childEventHasParent := false
	for _, e := range events.All() {
		if e.ComponentID != "" && e.WorkflowID != parentID && e.ParentWorkflowID == parentID {
			childEventHasParent = true
		}
	}
	assert.True(t, childEventHasParent, "sub-workflow events should carry the parent workflow id")
}

func TestWorkflow_ToMermaid_RendersStepKinds(t *testing.T) {
	transform := step.NewTransformStep("normalize", func(data any) (any, error) { return data, nil })
	cond := step.NewConditionalStep("branch",
		func(any) bool { return true },
		step.NewTransformStep("yes", func(data any) (any, error) { return data, nil }),
		step.NewTransformStep("no", func(data any) (any, error) { return data, nil }),
	)

	wf := workflow.New(ids.NewWorkflowID(), []step.Step{transform, cond}, nil, nil)
	out := wf.ToMermaid()

	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "normalize")
	assert.Contains(t, out, "branch")
	assert.Contains(t, out, "classDef transformStep")
	assert.Contains(t, out, "classDef conditionalStep")
}
