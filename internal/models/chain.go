package models

import "time"

type AnchorType string

const (
	AnchorClass       AnchorType = "class"
	AnchorSeminar     AnchorType = "seminar"
	AnchorWorkshop    AnchorType = "workshop"
	AnchorAppointment AnchorType = "appointment"
	AnchorOther       AnchorType = "other"
)

// AnchorTypes lists every known anchor type in catalog order.
var AnchorTypes = []AnchorType{AnchorClass, AnchorSeminar, AnchorWorkshop, AnchorAppointment, AnchorOther}

// ParseAnchorType returns the anchor type for s, or false if s is not a known type.
func ParseAnchorType(s string) (AnchorType, bool) {
	for _, t := range AnchorTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Anchor is a fixed commitment that cannot move. It is immutable for a generation run.
type Anchor struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Location string     `json:"location,omitempty"`
	Type     AnchorType `json:"type"`
}

type ChainStep struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DurationMin     int      `json:"duration_min"`
	IsRequired      bool     `json:"is_required"`
	CanSkipWhenLate bool     `json:"can_skip_when_late"`
	GateTags        []string `json:"gate_tags,omitempty"`
	Custom          bool     `json:"custom,omitempty"`
}

type ChainTemplate struct {
	AnchorType AnchorType  `json:"anchor_type"`
	Steps      []ChainStep `json:"steps"`
}

// StepOverride customizes one template step. Nil fields are left unchanged.
type StepOverride struct {
	AnchorType  AnchorType `json:"anchor_type"`
	StepID      string     `json:"step_id"`
	Name        *string    `json:"name,omitempty"`
	DurationMin *float64   `json:"duration_min,omitempty"`
	Disabled    bool       `json:"disabled,omitempty"`
}

// CustomStep is a user-defined step inserted into a template. An empty AfterStepID
// places it immediately before the exit gate.
type CustomStep struct {
	ID          string     `json:"id"`
	AnchorType  AnchorType `json:"anchor_type"`
	Name        string     `json:"name"`
	DurationMin int        `json:"duration_min"`
	AfterStepID string     `json:"after_step_id,omitempty"`
	IsRequired  bool       `json:"is_required"`
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
)

type StepRole string

const (
	RoleAnchor    StepRole = "anchor"
	RoleChainStep StepRole = "chain_step"
	RoleExitGate  StepRole = "exit_gate"
	RoleRecovery  StepRole = "recovery"
	RoleTravel    StepRole = "travel"
)

type ChainStepInstance struct {
	Step       ChainStep  `json:"step"`
	Start      time.Time  `json:"start_time"`
	End        time.Time  `json:"end_time"`
	Status     StepStatus `json:"status"`
	Role       StepRole   `json:"role"`
	SkipReason string     `json:"skip_reason,omitempty"`
}

// Duration returns the instance length.
func (s ChainStepInstance) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// CommitmentEnvelope groups the phases of one anchor's chain. Missing phases are nil.
type CommitmentEnvelope struct {
	Prep        *ChainStepInstance `json:"prep,omitempty"`
	TravelThere *ChainStepInstance `json:"travel_there,omitempty"`
	Anchor      ChainStepInstance  `json:"anchor"`
	TravelBack  *ChainStepInstance `json:"travel_back,omitempty"`
	Recovery    *ChainStepInstance `json:"recovery,omitempty"`
}

// End returns the end of the last phase present in the envelope.
func (e CommitmentEnvelope) End() time.Time {
	end := e.Anchor.End
	if e.TravelBack != nil && e.TravelBack.End.After(end) {
		end = e.TravelBack.End
	}
	if e.Recovery != nil && e.Recovery.End.After(end) {
		end = e.Recovery.End
	}
	return end
}

type ChainStatus string

const (
	ChainPending    ChainStatus = "pending"
	ChainLate       ChainStatus = "late"
	ChainConflicted ChainStatus = "conflicted"
)

// ExecutionChain is one prep, anchor and recovery cycle. The last step always ends at
// CompletionDeadline, which equals the anchor start.
type ExecutionChain struct {
	ChainID            string              `json:"chain_id"`
	Anchor             Anchor              `json:"anchor"`
	CompletionDeadline time.Time           `json:"chain_completion_deadline"`
	Steps              []ChainStepInstance `json:"steps"`
	Envelope           CommitmentEnvelope  `json:"envelope"`
	Status             ChainStatus         `json:"status"`
	TravelMin          int                 `json:"travel_min"`
	DroppedSteps       []string            `json:"dropped_steps,omitempty"`
}

// FirstStart returns the start of the first step, or the anchor start for an empty chain.
func (c ExecutionChain) FirstStart() time.Time {
	if len(c.Steps) == 0 {
		return c.Anchor.Start
	}
	return c.Steps[0].Start
}

// StepIndex returns the position of stepID in the chain, or -1.
func (c ExecutionChain) StepIndex(stepID string) int {
	for i, s := range c.Steps {
		if s.Step.ID == stepID {
			return i
		}
	}
	return -1
}
