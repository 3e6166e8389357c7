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

type linkedinPublisher struct {
	client *http.Client
	apiURL string
}

func (li *linkedinPublisher) check(content models.PostContent, targets models.PublishTargets) string {
	if targets.LinkedInPersonURN == "" {
		return "LinkedIn Person URN required"
	}
	return ""
}

func (li *linkedinPublisher) publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult {
	category := "NONE"
	if content.ImageURL != "" {
		category = "IMAGE"
	}

	post := transfer.LinkedInUGCPost{
		Author:         targets.LinkedInPersonURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]transfer.LinkedInShareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    transfer.LinkedInShareCommentary{Text: content.Caption},
				ShareMediaCategory: category,
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	headers := bearer(accessToken)
	headers["X-Restli-Protocol-Version"] = "2.0.0"

	resp, err := sendJSON(ctx, li.client, li.apiURL+"/v2/ugcPosts", headers, post)
	if err != nil {
		slog.Info(err.Error())
		return failure(platform.LinkedIn, transportError(platform.LinkedIn))
	}

	if !resp.ok() {
		return failure(platform.LinkedIn, messageError(resp.body, "Failed to post"))
	}

	var result transfer.IDResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		slog.Info(err.Error())
		return failure(platform.LinkedIn, transportError(platform.LinkedIn))
	}
	return success(platform.LinkedIn, result.ID)
}

func messageError(body []byte, fallback string) string {
	var e transfer.MessageErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return fallback
}
