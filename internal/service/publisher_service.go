package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

const (
	MsgNotAuthenticated = "Not authenticated"

	// concurrent platform publishes per batch
	publishConcurrency = 5
	maxPublishBytes    = 1 << 20
)

// Endpoints are the API bases the publisher talks to.
type Endpoints struct {
	InstagramGraph string
	FacebookGraph  string
	TwitterAPI     string
	LinkedInAPI    string
	PinterestAPI   string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		InstagramGraph: "https://graph.instagram.com",
		FacebookGraph:  "https://graph.facebook.com/v18.0",
		TwitterAPI:     "https://api.twitter.com",
		LinkedInAPI:    "https://api.linkedin.com",
		PinterestAPI:   "https://api.pinterest.com",
	}
}

// platformPublisher publishes one post to one platform. check reports a
// configuration problem without touching the network.
type platformPublisher interface {
	check(content models.PostContent, targets models.PublishTargets) string
	publish(ctx context.Context, accessToken string, content models.PostContent, targets models.PublishTargets) models.PostResult
}

type PublisherService interface {
	PostToMultiplePlatforms(ctx context.Context, userID int64, platforms []string, content models.PostContent, targets *models.PublishTargets) []models.PostResult
}

type publisherService struct {
	tokens     TokenService
	publishers map[platform.Platform]platformPublisher
}

func NewPublisherService(tokens TokenService, endpoints Endpoints) PublisherService {
	client := &http.Client{Timeout: 30 * time.Second}
	return &publisherService{
		tokens: tokens,
		publishers: map[platform.Platform]platformPublisher{
			platform.Instagram: &instagramPublisher{client: client, graphURL: strings.TrimRight(endpoints.InstagramGraph, "/")},
			platform.Facebook:  &facebookPublisher{client: client, graphURL: strings.TrimRight(endpoints.FacebookGraph, "/")},
			platform.Twitter:   &twitterPublisher{client: client, apiURL: strings.TrimRight(endpoints.TwitterAPI, "/")},
			platform.LinkedIn:  &linkedinPublisher{client: client, apiURL: strings.TrimRight(endpoints.LinkedInAPI, "/")},
			platform.Pinterest: &pinterestPublisher{client: client, apiURL: strings.TrimRight(endpoints.PinterestAPI, "/")},
		},
	}
}

// PostToMultiplePlatforms returns exactly one result per requested platform,
// in request order. A failure on one platform never affects the others.
func (s *publisherService) PostToMultiplePlatforms(ctx context.Context, userID int64, platforms []string, content models.PostContent, targets *models.PublishTargets) []models.PostResult {
	var t models.PublishTargets
	if targets != nil {
		t = *targets
	}

	results := make([]models.PostResult, len(platforms))

	var g errgroup.Group
	g.SetLimit(publishConcurrency)
	for i, name := range platforms {
		i, name := i, name
		g.Go(func() error {
			results[i] = s.postOne(ctx, userID, name, content, t)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *publisherService) postOne(ctx context.Context, userID int64, name string, content models.PostContent, targets models.PublishTargets) (result models.PostResult) {
	p, err := platform.Parse(name)
	if err != nil {
		return models.PostResult{Success: false, Error: MsgUnsupported, Platform: name}
	}
	pub, ok := s.publishers[p]
	if !ok {
		return models.PostResult{Success: false, Error: MsgUnsupported, Platform: name}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while publishing", "platform", p, "panic", r)
			result = failure(p, transportError(p))
		}
	}()

	if msg := pub.check(content, targets); msg != "" {
		return failure(p, msg)
	}

	accessToken, ok := s.tokens.GetValidAccessToken(ctx, userID, p)
	if !ok {
		return failure(p, MsgNotAuthenticated)
	}

	return pub.publish(ctx, accessToken, content, targets)
}

func failure(p platform.Platform, msg string) models.PostResult {
	return models.PostResult{Success: false, Error: msg, Platform: string(p)}
}

func success(p platform.Platform, postID string) models.PostResult {
	return models.PostResult{Success: true, PostID: postID, Platform: string(p)}
}

func transportError(p platform.Platform) string {
	return fmt.Sprintf("Failed to post to %s", p.Title())
}

// apiResponse is a completed HTTP exchange with a platform API.
type apiResponse struct {
	status int
	body   []byte
}

func (r apiResponse) ok() bool {
	return r.status >= 200 && r.status < 300
}

func sendJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (*apiResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("error marshalling payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxPublishBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return &apiResponse{status: resp.StatusCode, body: respBody}, nil
}

func bearer(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}
