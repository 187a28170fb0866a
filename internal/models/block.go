package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityRoutine    ActivityType = "routine"
	ActivityTask       ActivityType = "task"
	ActivityCommitment ActivityType = "commitment"
	ActivityChainStep  ActivityType = "chain_step"
	ActivityMeal       ActivityType = "meal"
	ActivityTravel     ActivityType = "travel"
	ActivityBuffer     ActivityType = "buffer"
	ActivityFocus      ActivityType = "focus"
	ActivityAdmin      ActivityType = "admin"
)

type BlockStatus string

const (
	BlockPending   BlockStatus = "pending"
	BlockCompleted BlockStatus = "completed"
	BlockSkipped   BlockStatus = "skipped"
)

// TimeBlock is the universal schedulable unit of a plan.
type TimeBlock struct {
	ID            string       `json:"id"`
	PlanID        string       `json:"plan_id"`
	Title         string       `json:"title"`
	Start         time.Time    `json:"start_time"`
	End           time.Time    `json:"end_time"`
	ActivityType  ActivityType `json:"activity_type"`
	IsFixed       bool         `json:"is_fixed"`
	SequenceOrder int          `json:"sequence_order"`
	Status        BlockStatus  `json:"status"`
	SkipReason    string       `json:"skip_reason,omitempty"`
	Metadata      Metadata     `json:"-"`
}

// DurationMin returns the block length in whole minutes.
func (b TimeBlock) DurationMin() int {
	return int(b.End.Sub(b.Start).Minutes())
}

// Overlaps reports whether two blocks share any instant. Zero-length blocks never overlap.
func (b TimeBlock) Overlaps(o TimeBlock) bool {
	return b.Start.Before(o.End) && o.Start.Before(b.End)
}

func (b TimeBlock) IsBuffer() bool { return b.ActivityType == ActivityBuffer }

// IsTransition reports whether b is a plain travel or transition buffer. Recovery
// blocks share the buffer activity type but are not transitions.
func (b TimeBlock) IsTransition() bool {
	if !b.IsBuffer() {
		return false
	}
	_, recovery := b.Metadata.(RecoveryMeta)
	return !recovery
}

func (b TimeBlock) IsPending() bool { return b.Status == BlockPending }

func (b TimeBlock) MarshalJSON() ([]byte, error) {
	type plain TimeBlock
	raw, err := EncodeMetadata(b.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}{plain(b), raw})
}

func (b *TimeBlock) UnmarshalJSON(data []byte) error {
	type plain TimeBlock
	var aux struct {
		plain
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = TimeBlock(aux.plain)
	m, err := DecodeMetadata(aux.Metadata)
	if err != nil {
		return err
	}
	b.Metadata = m
	return nil
}

type BlockRole string

const (
	BlockRoleAnchor    BlockRole = "anchor"
	BlockRoleChainStep BlockRole = "chain_step"
	BlockRoleExitGate  BlockRole = "exit_gate"
	BlockRoleRecovery  BlockRole = "recovery"
	BlockRoleTravel    BlockRole = "travel"
	BlockRoleBuffer    BlockRole = "buffer"
	BlockRoleMeal      BlockRole = "meal"
	BlockRoleTask      BlockRole = "task"
	BlockRoleRoutine   BlockRole = "routine"
)

// Metadata is a tagged union over block roles. Each variant carries only the fields its
// role needs.
type Metadata interface {
	Role() BlockRole
}

type AnchorMeta struct {
	ChainID    string     `json:"chain_id"`
	AnchorID   string     `json:"anchor_id"`
	AnchorType AnchorType `json:"anchor_type"`
	Location   string     `json:"location,omitempty"`
}

// ChainStepMeta links a prep step block to its chain. Deadline is the chain completion
// deadline and never changes when the chain is edited.
type ChainStepMeta struct {
	ChainID         string    `json:"chain_id"`
	StepID          string    `json:"step_id"`
	Deadline        time.Time `json:"deadline"`
	Required        bool      `json:"required"`
	CanSkipWhenLate bool      `json:"can_skip_when_late"`
	Custom          bool      `json:"custom,omitempty"`
}

type ExitGateMeta struct {
	ChainID  string    `json:"chain_id"`
	StepID   string    `json:"step_id"`
	Deadline time.Time `json:"deadline"`
	GateTags []string  `json:"gate_tags,omitempty"`
}

type RecoveryMeta struct {
	ChainID string `json:"chain_id"`
}

// TravelMeta marks a travel leg. The outbound leg is the chain's leave step and carries
// its step id; the return leg has none.
type TravelMeta struct {
	ChainID   string          `json:"chain_id"`
	StepID    string          `json:"step_id,omitempty"`
	Direction TravelDirection `json:"direction"`
	Method    string          `json:"method,omitempty"`
}

type TravelDirection string

const (
	TravelThere TravelDirection = "there"
	TravelBack  TravelDirection = "back"
)

type BufferMeta struct {
	AfterBlockID string `json:"after_block_id,omitempty"`
}

type MealMeta struct {
	MealType    MealType  `json:"meal_type"`
	Desired     time.Time `json:"desired_time"`
	AnchorAware bool      `json:"anchor_aware"`
}

type TaskMeta struct {
	TaskID    string `json:"task_id,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

type RoutineMeta struct {
	RoutineID string      `json:"routine_id,omitempty"`
	Kind      RoutineKind `json:"kind"`
	Fallback  bool        `json:"fallback,omitempty"`
}

func (AnchorMeta) Role() BlockRole    { return BlockRoleAnchor }
func (ChainStepMeta) Role() BlockRole { return BlockRoleChainStep }
func (ExitGateMeta) Role() BlockRole  { return BlockRoleExitGate }
func (RecoveryMeta) Role() BlockRole  { return BlockRoleRecovery }
func (TravelMeta) Role() BlockRole    { return BlockRoleTravel }
func (BufferMeta) Role() BlockRole    { return BlockRoleBuffer }
func (MealMeta) Role() BlockRole      { return BlockRoleMeal }
func (TaskMeta) Role() BlockRole      { return BlockRoleTask }
func (RoutineMeta) Role() BlockRole   { return BlockRoleRoutine }

// ChainLink returns the chain and step a block belongs to. Step is empty for anchor,
// return travel and recovery blocks.
func ChainLink(m Metadata) (chainID, stepID string, ok bool) {
	switch v := m.(type) {
	case AnchorMeta:
		return v.ChainID, "", true
	case ChainStepMeta:
		return v.ChainID, v.StepID, true
	case ExitGateMeta:
		return v.ChainID, v.StepID, true
	case RecoveryMeta:
		return v.ChainID, "", true
	case TravelMeta:
		return v.ChainID, v.StepID, true
	}
	return "", "", false
}

// IsChainStep reports whether the block is a step of a chain, including the leave step.
func IsChainStep(m Metadata) bool {
	switch v := m.(type) {
	case ChainStepMeta, ExitGateMeta:
		return true
	case TravelMeta:
		return v.Direction == TravelThere
	}
	return false
}

type metadataEnvelope struct {
	Role BlockRole       `json:"role"`
	Data json.RawMessage `json:"data"`
}

// EncodeMetadata serializes m with its role discriminator. A nil value encodes to nil.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(metadataEnvelope{Role: m.Role(), Data: data})
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding block metadata: %w", err)
	}

	var m Metadata
	var err error
	switch env.Role {
	case BlockRoleAnchor:
		m, err = decodeAs[AnchorMeta](env.Data)
	case BlockRoleChainStep:
		m, err = decodeAs[ChainStepMeta](env.Data)
	case BlockRoleExitGate:
		m, err = decodeAs[ExitGateMeta](env.Data)
	case BlockRoleRecovery:
		m, err = decodeAs[RecoveryMeta](env.Data)
	case BlockRoleTravel:
		m, err = decodeAs[TravelMeta](env.Data)
	case BlockRoleBuffer:
		m, err = decodeAs[BufferMeta](env.Data)
	case BlockRoleMeal:
		m, err = decodeAs[MealMeta](env.Data)
	case BlockRoleTask:
		m, err = decodeAs[TaskMeta](env.Data)
	case BlockRoleRoutine:
		m, err = decodeAs[RoutineMeta](env.Data)
	default:
		return nil, fmt.Errorf("unknown block role %q", env.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s metadata: %w", env.Role, err)
	}
	return m, nil
}

func decodeAs[T Metadata](data json.RawMessage) (Metadata, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
