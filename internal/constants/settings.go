package constants

const (
	SettingWakeTime     = "wake_time"
	SettingSleepTime    = "sleep_time"
	SettingTimezone     = "timezone"
	SettingEnergy       = "default_energy"
	SettingUserID       = "user_id"
	SettingHomeLocation = "home_location"

	DefaultWakeTime     = "07:00"
	DefaultSleepTime    = "23:00"
	DefaultTimezone     = "Local" // Use system local timezone by default
	DefaultEnergy       = "medium"
	DefaultHomeLocation = "home"
)
