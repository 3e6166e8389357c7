package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueuePost schedules post for its ScheduledTime. A past time runs it
// immediately. Failed platforms are recorded, never retried.
func EnqueuePost(ctx context.Context, client Enqueuer, post models.ScheduledPost) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	taskPayload, err := json.Marshal(SchedulePostPayload{TaskID: id, ScheduledPost: post})
	if err != nil {
		return "", err
	}

	delay := time.Until(post.ScheduledTime)
	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypeSchedulePost, taskPayload)
	_, err = client.EnqueueContext(ctx, task,
		asynq.TaskID(id),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return "", err
	}

	log.Printf("Task scheduled: %s for user %d at %s", id, post.UserID, post.ScheduledTime.Format(time.RFC3339))
	return id, nil
}
