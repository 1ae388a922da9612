package workflow

import (
	"fmt"
	"strings"

	"github.com/tsharp/agent-runtime/step"
)

// ToMermaid renders wf as a mermaid flowchart: a pure projection over its
// steps, recursive for SubWorkflow (inlined as a nested subgraph) and
// Conditional (branching with a convergence node), with a style class per
// step kind (spec §4.9 "Diagram rendering"; richness level per the
// original implementation's complex/mermaid viz demos).
func (wf *Workflow) ToMermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	r := &mermaidRenderer{out: &b, nextID: 0}
	prev := ""
	for _, s := range wf.Steps {
		node := r.render(s)
		if prev != "" {
			fmt.Fprintf(&b, "    %s --> %s\n", prev, node)
		}
		prev = node
	}
	r.writeClassDefs()
	return b.String()
}

type mermaidRenderer struct {
	out    *strings.Builder
	nextID int
}

func (r *mermaidRenderer) freshID(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s%d", prefix, r.nextID)
}

// render writes s's node(s) to the diagram and returns the id of the node
// that represents s's exit point (what a following step should connect
// from).
func (r *mermaidRenderer) render(s step.Step) string {
	switch typed := s.(type) {
	case *step.ConditionalStep:
		return r.renderConditional(typed)
	case *step.SubWorkflowStep:
		return r.renderSubWorkflow(typed)
	case *step.AgentStep:
		return r.renderLeaf(s.Name(), "[%s]", "agentStep")
	case *step.TransformStep:
		return r.renderLeaf(s.Name(), "[/%s/]", "transformStep")
	default:
		return r.renderLeaf(s.Name(), "[%s]", "agentStep")
	}
}

func (r *mermaidRenderer) renderLeaf(name, shape, class string) string {
	id := r.freshID("n")
	label := fmt.Sprintf(shape, name)
	fmt.Fprintf(r.out, "    %s%s:::%s\n", id, label, class)
	return id
}

func (r *mermaidRenderer) renderConditional(c *step.ConditionalStep) string {
	condID := r.freshID("n")
	fmt.Fprintf(r.out, "    %s{%s}:::conditionalStep\n", condID, c.Name())

	ifTrue, ifFalse := c.Branches()
	trueID := r.render(ifTrue)
	falseID := r.render(ifFalse)
	fmt.Fprintf(r.out, "    %s -->|true| %s\n", condID, trueID)
	fmt.Fprintf(r.out, "    %s -->|false| %s\n", condID, falseID)

	convergeID := r.freshID("n")
	fmt.Fprintf(r.out, "    %s((( )))\n", convergeID)
	fmt.Fprintf(r.out, "    %s --> %s\n", trueID, convergeID)
	fmt.Fprintf(r.out, "    %s --> %s\n", falseID, convergeID)
	return convergeID
}

func (r *mermaidRenderer) renderSubWorkflow(sw *step.SubWorkflowStep) string {
	subID := r.freshID("sub")
	fmt.Fprintf(r.out, "    subgraph %s [%s]:::subWorkflowStep\n", subID, sw.Name())

	nested := sw.Preview()
	prev := ""
	var last string
	for _, s := range nested.Steps {
		node := r.render(s)
		if prev != "" {
			fmt.Fprintf(r.out, "    %s --> %s\n", prev, node)
		}
		prev = node
		last = node
	}
	fmt.Fprintf(r.out, "    end\n")
	if last == "" {
		return subID
	}
	return last
}

func (r *mermaidRenderer) writeClassDefs() {
	fmt.Fprintln(r.out, "    classDef agentStep fill:#cce5ff,stroke:#004085;")
	fmt.Fprintln(r.out, "    classDef transformStep fill:#d4edda,stroke:#155724;")
	fmt.Fprintln(r.out, "    classDef conditionalStep fill:#fff3cd,stroke:#856404;")
	fmt.Fprintln(r.out, "    classDef subWorkflowStep fill:#f8f9fa,stroke:#343a40,stroke-width:2px;")
}
