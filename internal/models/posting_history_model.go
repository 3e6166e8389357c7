package models

import "time"

type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	TaskID       string    `db:"task_id" json:"task_id"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	RemotePostID string    `db:"remote_post_id" json:"remote_post_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
