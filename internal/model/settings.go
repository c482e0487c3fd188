package model

import "time"

// SettingsID is the fixed key of the singleton settings record.
const SettingsID = "app_settings"

// RemoteCredentials identifies the remote object-store namespace events are
// reconciled against. Saving settings with these set (re)configures the sync
// engine's remote without a restart.
type RemoteCredentials struct {
	Bucket   string `json:"bucket" toml:"bucket"`
	Endpoint string `json:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Region   string `json:"region,omitempty" toml:"region,omitempty"`
	Prefix   string `json:"prefix,omitempty" toml:"prefix,omitempty"`
}

// Configured reports whether the credentials are complete enough to reach a
// remote bucket.
func (c *RemoteCredentials) Configured() bool {
	return c != nil && c.Bucket != ""
}

// Settings is the singleton application settings record. Conflicting writes
// are resolved last-writer-wins by LastModified.
type Settings struct {
	AlertThreshold    float64            `json:"alert_threshold"`
	RecordingEnabled  bool               `json:"recording_enabled"`
	CloudSync         bool               `json:"cloud_sync"`
	WifiOnly          bool               `json:"wifi_only"`
	MaxLocalStorageMB int                `json:"max_local_storage_mb"`
	RetentionDays     int                `json:"retention_days"`
	Remote            *RemoteCredentials `json:"remote,omitempty"`
	LastModified      time.Time          `json:"last_modified"`
	Synced            bool               `json:"synced"`
}

// DefaultSettings returns the settings used before the UI has saved any.
func DefaultSettings() *Settings {
	return &Settings{
		AlertThreshold:    0.6,
		RecordingEnabled:  true,
		CloudSync:         false,
		WifiOnly:          false,
		MaxLocalStorageMB: 512,
		RetentionDays:     30,
	}
}
