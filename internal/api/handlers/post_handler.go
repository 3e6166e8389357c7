package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	pub         service.PublisherService
	settings    service.SettingsService
	ph          repository.PostingHistoryRepository
	AsynqClient queue.Enqueuer
}

func NewPostHandler(pub service.PublisherService, settings service.SettingsService, ph repository.PostingHistoryRepository, asynqClient queue.Enqueuer) *PostHandler {
	return &PostHandler{pub: pub, settings: settings, ph: ph, AsynqClient: asynqClient}
}

// publishInput is a parsed request with the user's defaults applied.
type publishInput struct {
	platforms     []string
	content       models.PostContent
	targets       *models.PublishTargets
	scheduledTime string
}

func (h *PostHandler) parsePublishRequest(c *fiber.Ctx, userID int64) (*publishInput, error) {
	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	platforms, targets := h.settings.ApplyDefaults(c.Context(), userID, req.Platforms, &models.PublishTargets{
		FacebookPageID:    req.FacebookPageID,
		LinkedInPersonURN: req.LinkedInPersonURN,
		PinterestBoardID:  req.PinterestBoardID,
	})
	if len(platforms) == 0 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No platforms selected",
		})
	}

	return &publishInput{
		platforms: platforms,
		content: models.PostContent{
			Caption:  req.Caption,
			ImageURL: req.ImageURL,
			VideoURL: req.VideoURL,
			Link:     req.Link,
			Hashtags: req.Hashtags,
		},
		targets:       targets,
		scheduledTime: req.ScheduledTime,
	}, nil
}

// PublishPost posts immediately and returns one result per requested platform.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	in, err := h.parsePublishRequest(c, userID)
	if in == nil {
		return err
	}

	results := h.pub.PostToMultiplePlatforms(c.Context(), userID, in.platforms, in.content, in.targets)

	return c.Status(fiber.StatusOK).JSON(results)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	in, err := h.parsePublishRequest(c, userID)
	if in == nil {
		return err
	}

	scheduledTime, err := time.Parse(time.RFC3339, in.scheduledTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled time",
		})
	}

	taskID, err := queue.EnqueuePost(c.Context(), h.AsynqClient, models.ScheduledPost{
		UserID:        userID,
		Platforms:     in.platforms,
		Content:       in.content,
		Targets:       in.targets,
		ScheduledTime: scheduledTime,
	})
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error scheduling post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"task_id": taskID,
	})
}

func (h *PostHandler) ListHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)

	history, err := h.ph.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(history)
}
