package models

import "time"

// PostContent is one logical post fanned out to several platforms.
type PostContent struct {
	Caption  string   `json:"caption"`
	ImageURL string   `json:"image_url,omitempty"`
	VideoURL string   `json:"video_url,omitempty"`
	Link     string   `json:"link,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// PublishTargets carries the externally supplied destinations some
// platforms need.
type PublishTargets struct {
	FacebookPageID    string `json:"facebook_page_id,omitempty"`
	LinkedInPersonURN string `json:"linkedin_person_urn,omitempty"`
	PinterestBoardID  string `json:"pinterest_board_id,omitempty"`
}

type PostResult struct {
	Success  bool   `json:"success"`
	PostID   string `json:"post_id,omitempty"`
	Error    string `json:"error,omitempty"`
	Platform string `json:"platform"`
}

// ScheduledPost is a publish request deferred to ScheduledTime.
type ScheduledPost struct {
	UserID        int64           `json:"user_id"`
	Platforms     []string        `json:"platforms"`
	Content       PostContent     `json:"content"`
	Targets       *PublishTargets `json:"targets,omitempty"`
	ScheduledTime time.Time       `json:"scheduled_time"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
)
