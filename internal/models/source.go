package models

import "time"

// Commitment is a calendar event as delivered by the commitment source.
type Commitment struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Title      string     `json:"title"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Location   string     `json:"location,omitempty"`
	AnchorType AnchorType `json:"anchor_type,omitempty"` // explicit classification, optional
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

type Task struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Title                string     `json:"title"`
	EstimatedDurationMin int        `json:"estimated_duration,omitempty"`
	Deadline             *time.Time `json:"deadline,omitempty"`
	Status               TaskStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
}

type RoutineKind string

const (
	RoutineMorning RoutineKind = "morning"
	RoutineEvening RoutineKind = "evening"
	RoutineWake    RoutineKind = "wake"
)

type Routine struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	Name                 string      `json:"name"`
	Kind                 RoutineKind `json:"kind"`
	EstimatedDurationMin int         `json:"estimated_duration"`
	Active               bool        `json:"active"`
}
