package models

import "time"

// Settings are a user's posting defaults. Publish requests fall back to them
// for any platform list or target they leave empty.
type Settings struct {
	DefaultPlatforms []string       `json:"default_platforms,omitempty"`
	Targets          PublishTargets `json:"targets"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
