package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type pinterestPublisher struct {
	client *http.Client
	apiURL string
}

func (pin *pinterestPublisher) check(content models.PostContent, targets models.PublishTargets) string {
	if targets.PinterestBoardID == "" {
		return "Pinterest Board ID required"
	}
	if content.ImageURL == "" {
		return "Pinterest requires an image"
	}
	return ""
}

func (pin *pinterestPublisher) publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult {
	resp, err := sendJSON(ctx, pin.client, pin.apiURL+"/v5/pins", bearer(accessToken), transfer.PinRequest{
		BoardID: targets.PinterestBoardID,
		MediaSource: transfer.PinMediaSource{
			SourceType: "image_url",
			URL:        content.ImageURL,
		},
		Description: content.Caption,
		Link:        content.Link,
	})
	if err != nil {
		slog.Info(err.Error())
		return failure(platform.Pinterest, transportError(platform.Pinterest))
	}

	if !resp.ok() {
		return failure(platform.Pinterest, messageError(resp.body, "Failed to create pin"))
	}

	var result transfer.IDResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		slog.Info(err.Error())
		return failure(platform.Pinterest, transportError(platform.Pinterest))
	}
	return success(platform.Pinterest, result.ID)
}
