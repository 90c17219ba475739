package state

// Store keys.
const (
	KeySchedule = "focusflow_schedule"
	KeySettings = "focusflow_settings"
)

// Settings are the user preferences. Only Notifications changes behaviour in
// the daemon; the others shape presentation.
type Settings struct {
	Notifications   bool `json:"notifications"`
	DarkMode        bool `json:"darkMode"`
	Use24HourFormat bool `json:"use24HourFormat"`
}

func DefaultSettings() Settings { return Settings{Notifications: true} }

// SettingsPatch is a partial update; nil fields are left alone.
type SettingsPatch struct {
	Notifications   *bool `json:"notifications,omitempty"`
	DarkMode        *bool `json:"darkMode,omitempty"`
	Use24HourFormat *bool `json:"use24HourFormat,omitempty"`
}

func (p SettingsPatch) Empty() bool {
	return p.Notifications == nil && p.DarkMode == nil && p.Use24HourFormat == nil
}

func (p SettingsPatch) apply(s Settings) Settings {
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.Use24HourFormat != nil {
		s.Use24HourFormat = *p.Use24HourFormat
	}
	return s
}
