package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	tweetLimit    = 280
	tweetEllipsis = "..."
)

type twitterPublisher struct {
	client *http.Client
	apiURL string
}

func (tw *twitterPublisher) check(content models.PostContent, targets models.PublishTargets) string {
	return ""
}

// TweetText joins caption and hashtags and truncates the result to the
// tweet limit, counted in characters rather than bytes.
func TweetText(content models.PostContent) string {
	text := content.Caption
	if len(content.Hashtags) > 0 {
		text += "\n\n" + strings.Join(content.Hashtags, " ")
	}

	runes := []rune(text)
	if len(runes) > tweetLimit {
		keep := tweetLimit - len([]rune(tweetEllipsis))
		text = string(runes[:keep]) + tweetEllipsis
	}
	return text
}

func (tw *twitterPublisher) publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult {
	resp, err := sendJSON(ctx, tw.client, tw.apiURL+"/2/tweets", bearer(accessToken), transfer.TweetRequest{
		Text: TweetText(content),
	})
	if err != nil {
		slog.Info(err.Error())
		return failure(platform.Twitter, transportError(platform.Twitter))
	}

	if !resp.ok() {
		var e transfer.TwitterErrorResponse
		if err := json.Unmarshal(resp.body, &e); err == nil && e.Detail != "" {
			return failure(platform.Twitter, e.Detail)
		}
		return failure(platform.Twitter, "Failed to tweet")
	}

	var result transfer.TweetResponse
	if err := json.Unmarshal(resp.body, &result); err != nil {
		slog.Info(err.Error())
		return failure(platform.Twitter, transportError(platform.Twitter))
	}
	return success(platform.Twitter, result.Data.ID)
}
