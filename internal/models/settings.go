package models

// Settings represents per-installation scheduling preferences
type Settings struct {
	UserID        string `json:"user_id"`        // owner of generated plans
	WakeTime      string `json:"wake_time"`      // HH:MM, e.g. "07:00"
	SleepTime     string `json:"sleep_time"`     // HH:MM, e.g. "23:00"
	Timezone      string `json:"timezone"`       // IANA timezone name or "Local"
	DefaultEnergy string `json:"default_energy"` // low, medium or high
	HomeLocation  string `json:"home_location"`  // location treated as home by the travel calculator
}
