package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// instagramPublisher creates a media container and then publishes it. A
// container whose publish fails is left behind on the account.
type instagramPublisher struct {
	client   *http.Client
	graphURL string
}

func (ig *instagramPublisher) check(content models.PostContent, targets models.PublishTargets) string {
	return ""
}

func (ig *instagramPublisher) publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult {
	params := url.Values{}
	params.Set("access_token", accessToken)
	params.Set("caption", content.Caption)
	if content.ImageURL != "" {
		params.Set("image_url", content.ImageURL)
	} else if content.VideoURL != "" {
		params.Set("video_url", content.VideoURL)
		params.Set("media_type", "VIDEO")
	}

	containerID, msg := ig.call(ctx, "/me/media", params, "Failed to create media")
	if msg != "" {
		return failure(platform.Instagram, msg)
	}

	params = url.Values{}
	params.Set("access_token", accessToken)
	params.Set("creation_id", containerID)

	postID, msg := ig.call(ctx, "/me/media_publish", params, "Failed to publish")
	if msg != "" {
		return failure(platform.Instagram, msg)
	}

	return success(platform.Instagram, postID)
}

// call POSTs params as a query string and returns the created object id, or
// a user-facing error message.
func (ig *instagramPublisher) call(ctx context.Context, path string, params url.Values, fallback string) (string, string) {
	resp, err := sendJSON(ctx, ig.client, ig.graphURL+path+"?"+params.Encode(), nil, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", transportError(platform.Instagram)
	}

	if !resp.ok() {
		return "", graphError(resp.body, fallback)
	}

	var result transfer.GraphIDResponse
	if err := json.Unmarshal(resp.body, &result); err != nil || result.ID == "" {
		slog.Info("no media ID returned from Instagram", "body", string(resp.body))
		return "", fallback
	}
	return result.ID, ""
}

func graphError(body []byte, fallback string) string {
	var e transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return fallback
}
