package queue

import (
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

type Queue struct {
	pub service.PublisherService
	ph  repository.PostingHistoryRepository
}

func NewQueue(pub service.PublisherService, ph repository.PostingHistoryRepository) *Queue {
	return &Queue{
		pub: pub,
		ph:  ph,
	}
}

const TaskTypeSchedulePost = "schedule:post"

// SchedulePostPayload is the task body. TaskID is also the asynq task id and
// ties posting history rows back to the schedule request.
type SchedulePostPayload struct {
	TaskID string `json:"task_id"`
	models.ScheduledPost
}
