package models

import "time"

const (
	// DefaultRetentionDays applies when settings were never saved.
	DefaultRetentionDays = 10
	// DefaultMinimumTrimInterval spaces background trims when unset.
	DefaultMinimumTrimInterval = 24 * time.Hour
)

// Settings is the site-scoped audit trail configuration.
type Settings struct {
	RetentionDays                int              `json:"retention_days"`
	EnableClientIPAddressLogging bool             `json:"enable_client_ip_address_logging"`
	EventSettings                []EventSetting   `json:"event_settings"`
	Trimming                     TrimmingSettings `json:"trimming"`
}

// EventSetting overrides the default enablement of one event.
type EventSetting struct {
	EventName string `json:"event_name"` // full event name
	IsEnabled bool   `json:"is_enabled"`
}

// TrimmingSettings controls the background retention sweep.
type TrimmingSettings struct {
	Disabled           bool          `json:"disabled"`
	MinimumRunInterval time.Duration `json:"minimum_run_interval"`
	LastRunUTC         *time.Time    `json:"last_run_utc,omitempty"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() *Settings {
	return &Settings{
		RetentionDays: DefaultRetentionDays,
		Trimming: TrimmingSettings{
			MinimumRunInterval: DefaultMinimumTrimInterval,
		},
	}
}

// RetentionPeriod converts the retention in days into a duration.
func (s *Settings) RetentionPeriod() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// EventSetting returns the override for a full event name, if any.
func (s *Settings) EventSetting(fullEventName string) (EventSetting, bool) {
	for _, es := range s.EventSettings {
		if es.EventName == fullEventName {
			return es, true
		}
	}
	return EventSetting{}, false
}

// SetEventEnabled upserts the override for a full event name.
func (s *Settings) SetEventEnabled(fullEventName string, enabled bool) {
	for i := range s.EventSettings {
		if s.EventSettings[i].EventName == fullEventName {
			s.EventSettings[i].IsEnabled = enabled
			return
		}
	}
	s.EventSettings = append(s.EventSettings, EventSetting{EventName: fullEventName, IsEnabled: enabled})
}

// TrimDue reports whether a background trim may run at now.
func (s *Settings) TrimDue(now time.Time) bool {
	if s.Trimming.Disabled {
		return false
	}
	if s.Trimming.LastRunUTC == nil {
		return true
	}
	interval := s.Trimming.MinimumRunInterval
	if interval <= 0 {
		interval = DefaultMinimumTrimInterval
	}
	return !now.Before(s.Trimming.LastRunUTC.Add(interval))
}
