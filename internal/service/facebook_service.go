package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// facebookPublisher posts to a Page: photos for image posts, feed otherwise.
type facebookPublisher struct {
	client   *http.Client
	graphURL string
}

func (fb *facebookPublisher) check(content models.PostContent, targets models.PublishTargets) string {
	if targets.FacebookPageID == "" {
		return "Facebook Page ID required"
	}
	return ""
}

func (fb *facebookPublisher) publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult {
	endpoint := fmt.Sprintf("%s/%s/feed", fb.graphURL, targets.FacebookPageID)
	payload := map[string]string{
		"access_token": accessToken,
		"message":      content.Caption,
	}
	if content.ImageURL != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", fb.graphURL, targets.FacebookPageID)
		payload["url"] = content.ImageURL
	}
	if content.Link != "" {
		payload["link"] = content.Link
	}

	resp, err := sendJSON(ctx, fb.client, endpoint, nil, payload)
	if err != nil {
		slog.Info(err.Error())
		return failure(platform.Facebook, transportError(platform.Facebook))
	}

	if !resp.ok() {
		return failure(platform.Facebook, graphError(resp.body, "Failed to post"))
	}

	var result transfer.GraphIDResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		slog.Info(err.Error())
		return failure(platform.Facebook, transportError(platform.Facebook))
	}

	postID := result.ID
	if postID == "" {
		postID = result.PostID
	}
	return success(platform.Facebook, postID)
}
