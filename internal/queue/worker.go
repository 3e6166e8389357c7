package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/crosspost/internal/models"
)

func (j *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypeSchedulePost, err, asynq.SkipRetry)
	}

	j.PublishPost(ctx, payload)
	return nil
}

// PublishPost runs the publisher and records one history row per platform.
func (j *Queue) PublishPost(ctx context.Context, payload SchedulePostPayload) []models.PostResult {
	results := j.pub.PostToMultiplePlatforms(ctx, payload.UserID, payload.Platforms, payload.Content, payload.Targets)

	for _, res := range results {
		postingHistory := models.PostingHistory{
			UserID:       payload.UserID,
			TaskID:       payload.TaskID,
			Platform:     res.Platform,
			Status:       models.PostStatusPosted,
			RemotePostID: res.PostID,
		}
		if !res.Success {
			postingHistory.Status = models.PostStatusFailed
			postingHistory.ErrorMessage = res.Error
			log.Printf("Error posting to %s for task %s: %s", res.Platform, payload.TaskID, res.Error)
		}
		if _, err := j.ph.Create(ctx, &postingHistory); err != nil {
			log.Printf("Error saving posting history for task %s: %v", payload.TaskID, err)
		}
	}

	return results
}
