package model

import "fmt"

// Workflow identifies one of the two independent complaint channels. Admin
// accounts, complaints and tokens all belong to exactly one workflow.
type Workflow string

const (
	WorkflowLab Workflow = "lab"
	WorkflowICC Workflow = "icc"
)

// Workflows lists every partition in a stable order.
var Workflows = []Workflow{WorkflowLab, WorkflowICC}

// ParseWorkflow returns the workflow named by s.
func ParseWorkflow(s string) (Workflow, error) {
	switch w := Workflow(s); w {
	case WorkflowLab, WorkflowICC:
		return w, nil
	}
	return "", fmt.Errorf("%w: unknown workflow %q", ErrValidation, s)
}

// Label is the human-readable channel name used in notifications.
func (w Workflow) Label() string {
	switch w {
	case WorkflowLab:
		return "Lab"
	case WorkflowICC:
		return "ICC"
	}
	return string(w)
}

func (w Workflow) String() string { return string(w) }
