package constants

import "time"

const (
	AppName             = "daychain"
	DefaultKeyringUser  = "database-connection"
	DefaultConfigPath   = "~/.config/daychain/daychain.db"
	DefaultEngineConfig = "~/.config/daychain/engine.yaml"
	Version             = "v0.1.0"

	// EnvDBConnection holds a PostgreSQL connection string when the keyring is not used.
	EnvDBConnection = "DAYCHAIN_DB_CONNECTION"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// DefaultUserID is used by the CLI when settings do not name a user.
	DefaultUserID = "local"
)

const (
	// Plan start is rounded up to this granularity.
	PlanStartGranularity = 5 * time.Minute

	// TransitionMin is the buffer inserted after each flexible activity and essential block.
	TransitionMin = 5

	// WakeRampSkipAfter is how long after waking the ramp is considered unnecessary.
	WakeRampSkipAfter = 2 * time.Hour

	// EveningRoutineFloor is the earliest wall-clock start for the evening routine.
	EveningRoutineFloor = "18:00"

	FocusBlockMin     = 60
	ResetAdminMin     = 10
	TailDinnerMin     = 45
	TailEveningMin    = 20
	DefaultTaskMin    = 30
	DefaultTravelMin  = 20
	MedicationStepMin = 5
)

// Block titles used by the builder.
const (
	TitleTransition     = "Transition"
	TitlePrimaryFocus   = "Primary Focus Block"
	TitleResetAdmin     = "Reset/Admin"
	TitleMorningRoutine = "Morning Routine"
	TitleEveningRoutine = "Evening Routine"
	TitleWakeRamp       = "Wake Ramp"
	TitleDinner         = "Dinner"
)

// Skip reasons are machine-readable and surfaced on blocks, meals and chain steps.
const (
	SkipPastMealWindow  = "Past meal window"
	SkipSpacing         = "Spacing constraint"
	SkipNoValidSlot     = "No valid slot"
	SkipNoHomeInterval  = "No home interval"
	SkipExceedsSleep    = "Would exceed sleep time"
	SkipDegraded        = "Dropped during degradation"
	SkipBeforePlanStart = "Occurred before plan start"
	SkipWhenLate        = "Skipped when late"
	SkipChainConflict   = "Chain conflict"
	SkipOverlapping     = "Overlapping commitment"
	SkipDisplaced       = "Displaced by chain edit"
	SkipAlreadyAwake    = "Already awake for more than 2 hours"
	SkipRampConflict    = "Conflicts with first commitment"
	SkipNoFit           = "No free slot before sleep"
)
