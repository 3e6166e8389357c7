package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) IsExpired(token *models.OAuthToken) bool {
	return m.Called(token).Bool(0)
}

func (m *mockTokens) GetValidAccessToken(ctx context.Context, userID int64, p platform.Platform) (string, bool) {
	args := m.Called(ctx, userID, p)
	return args.String(0), args.Bool(1)
}

func (m *mockTokens) Refresh(ctx context.Context, userID int64, p platform.Platform, current *models.OAuthToken) *models.OAuthToken {
	token, _ := m.Called(ctx, userID, p, current).Get(0).(*models.OAuthToken)
	return token
}

func (m *mockTokens) IsConnected(ctx context.Context, userID int64, p platform.Platform) bool {
	return m.Called(ctx, userID, p).Bool(0)
}

func (m *mockTokens) Renew(ctx context.Context, userID int64, p platform.Platform) bool {
	return m.Called(ctx, userID, p).Bool(0)
}

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) find(path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func newPublisherFixture(t *testing.T, handlers map[string]func(w http.ResponseWriter, r *http.Request)) (*publisherService, *mockTokens, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handlers: handlers}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		api.mu.Lock()
		api.requests = append(api.requests, rec)
		api.mu.Unlock()

		if h, ok := api.handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	tokens := &mockTokens{}
	svc := NewPublisherService(tokens, Endpoints{
		InstagramGraph: srv.URL + "/ig",
		FacebookGraph:  srv.URL + "/fb/",
		TwitterAPI:     srv.URL + "/tw",
		LinkedInAPI:    srv.URL + "/li",
		PinterestAPI:   srv.URL + "/pin",
	}).(*publisherService)
	return svc, tokens, api
}

func reply(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestPostToMultiplePlatforms_OrderAndIndependence(t *testing.T) {
	svc, tokens, _ := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/tw/2/tweets": reply(http.StatusCreated, `{"data":{"id":"t-1","text":"hi"}}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Twitter).Return("tw-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1,
		[]string{"facebook", "twitter", "pinterest"},
		models.PostContent{Caption: "hi"}, nil)

	require.Len(t, results, 3)
	assert.Equal(t, models.PostResult{Success: false, Error: "Facebook Page ID required", Platform: "facebook"}, results[0])
	assert.Equal(t, models.PostResult{Success: true, PostID: "t-1", Platform: "twitter"}, results[1])
	assert.Equal(t, models.PostResult{Success: false, Error: "Pinterest Board ID required", Platform: "pinterest"}, results[2])

	// configuration failures never look up a token
	tokens.AssertNotCalled(t, "GetValidAccessToken", mock.Anything, mock.Anything, platform.Facebook)
	tokens.AssertNotCalled(t, "GetValidAccessToken", mock.Anything, mock.Anything, platform.Pinterest)
}

func TestPostToMultiplePlatforms_UnsupportedAndUnauthenticated(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, nil)
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Twitter).Return("", false)

	results := svc.PostToMultiplePlatforms(context.Background(), 1,
		[]string{"myspace", "twitter"}, models.PostContent{Caption: "hi"}, &models.PublishTargets{})

	require.Len(t, results, 2)
	assert.Equal(t, models.PostResult{Success: false, Error: MsgUnsupported, Platform: "myspace"}, results[0])
	assert.Equal(t, models.PostResult{Success: false, Error: MsgNotAuthenticated, Platform: "twitter"}, results[1])
	assert.Empty(t, api.find("/tw/2/tweets"))
}

func TestPostToMultiplePlatforms_EmptyRequest(t *testing.T) {
	svc, _, _ := newPublisherFixture(t, nil)
	results := svc.PostToMultiplePlatforms(context.Background(), 1, nil, models.PostContent{}, nil)
	assert.Empty(t, results)
}

func TestInstagram_TwoPhasePublish(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ig/me/media":         reply(http.StatusOK, `{"id":"container-1"}`),
		"/ig/me/media_publish": reply(http.StatusOK, `{"id":"ig-post-1"}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Instagram).Return("ig-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"instagram"},
		models.PostContent{Caption: "sunset", ImageURL: "https://cdn.example.com/a.png"}, nil)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "ig-post-1", results[0].PostID)

	create := api.find("/ig/me/media")
	require.Len(t, create, 1)
	assert.Equal(t, http.MethodPost, create[0].Method)
	assert.Contains(t, create[0].Query, "image_url=https%3A%2F%2Fcdn.example.com%2Fa.png")
	assert.Contains(t, create[0].Query, "access_token=ig-token")

	publish := api.find("/ig/me/media_publish")
	require.Len(t, publish, 1)
	assert.Contains(t, publish[0].Query, "creation_id=container-1")
}

func TestInstagram_ContainerFailureSkipsPublish(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/ig/me/media": reply(http.StatusBadRequest, `{"error":{"message":"Invalid image URL","code":100}}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Instagram).Return("ig-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"instagram"},
		models.PostContent{Caption: "x", ImageURL: "bad"}, nil)

	assert.Equal(t, models.PostResult{Success: false, Error: "Invalid image URL", Platform: "instagram"}, results[0])
	assert.Empty(t, api.find("/ig/me/media_publish"))
}

func TestTwitter_TruncatesLongText(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/tw/2/tweets": reply(http.StatusCreated, `{"data":{"id":"t-2"}}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Twitter).Return("tw-token", true)

	svc.PostToMultiplePlatforms(context.Background(), 1, []string{"twitter"},
		models.PostContent{Caption: strings.Repeat("a", 300)}, nil)

	sent := api.find("/tw/2/tweets")
	require.Len(t, sent, 1)
	assert.Equal(t, "Bearer tw-token", sent[0].Header.Get("Authorization"))
	text := sent[0].Body["text"].(string)
	assert.Len(t, text, 280)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestTweetText(t *testing.T) {
	text := TweetText(models.PostContent{Caption: "hello", Hashtags: []string{"#go", "#oauth"}})
	assert.Equal(t, "hello\n\n#go #oauth", text)

	text = TweetText(models.PostContent{Caption: strings.Repeat("é", 281)})
	assert.Equal(t, 280, utf8.RuneCountInString(text))

	text = TweetText(models.PostContent{Caption: strings.Repeat("b", 280)})
	assert.Equal(t, strings.Repeat("b", 280), text)
}

func TestTwitter_ErrorDetail(t *testing.T) {
	svc, tokens, _ := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/tw/2/tweets": reply(http.StatusForbidden, `{"title":"Forbidden","detail":"duplicate content","status":403}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Twitter).Return("tw-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"twitter"}, models.PostContent{Caption: "x"}, nil)
	assert.Equal(t, "duplicate content", results[0].Error)
}

func TestFacebook_PhotosOrFeed(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/fb/page-1/photos": reply(http.StatusOK, `{"id":"photo-1","post_id":"page-1_9"}`),
		"/fb/page-1/feed":   reply(http.StatusOK, `{"id":"page-1_10"}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Facebook).Return("fb-token", true)
	targets := &models.PublishTargets{FacebookPageID: "page-1"}

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"facebook"},
		models.PostContent{Caption: "pic", ImageURL: "https://cdn.example.com/p.png"}, targets)
	assert.Equal(t, "photo-1", results[0].PostID)

	results = svc.PostToMultiplePlatforms(context.Background(), 1, []string{"facebook"},
		models.PostContent{Caption: "text", Link: "https://example.com"}, targets)
	assert.Equal(t, "page-1_10", results[0].PostID)

	feed := api.find("/fb/page-1/feed")
	require.Len(t, feed, 1)
	assert.Equal(t, "fb-token", feed[0].Body["access_token"])
	assert.Equal(t, "https://example.com", feed[0].Body["link"])
}

func TestLinkedIn_UGCPost(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/li/v2/ugcPosts": reply(http.StatusCreated, `{"id":"urn:li:share:1"}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.LinkedIn).Return("li-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"linkedin"},
		models.PostContent{Caption: "update"}, &models.PublishTargets{LinkedInPersonURN: "urn:li:person:abc"})

	assert.Equal(t, models.PostResult{Success: true, PostID: "urn:li:share:1", Platform: "linkedin"}, results[0])
	sent := api.find("/li/v2/ugcPosts")
	require.Len(t, sent, 1)
	assert.Equal(t, "2.0.0", sent[0].Header.Get("X-Restli-Protocol-Version"))
	assert.Equal(t, "urn:li:person:abc", sent[0].Body["author"])
	assert.Equal(t, "PUBLISHED", sent[0].Body["lifecycleState"])
}

func TestPinterest(t *testing.T) {
	svc, tokens, api := newPublisherFixture(t, map[string]func(http.ResponseWriter, *http.Request){
		"/pin/v5/pins": reply(http.StatusBadRequest, `{"code":1,"message":"Board not found"}`),
	})
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.Pinterest).Return("pin-token", true)

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"pinterest"},
		models.PostContent{Caption: "no image"}, &models.PublishTargets{PinterestBoardID: "b-1"})
	assert.Equal(t, "Pinterest requires an image", results[0].Error)
	assert.Empty(t, api.find("/pin/v5/pins"))

	results = svc.PostToMultiplePlatforms(context.Background(), 1, []string{"pinterest"},
		models.PostContent{Caption: "pin", ImageURL: "https://cdn.example.com/p.png"}, &models.PublishTargets{PinterestBoardID: "b-1"})
	assert.Equal(t, models.PostResult{Success: false, Error: "Board not found", Platform: "pinterest"}, results[0])

	sent := api.find("/pin/v5/pins")
	require.Len(t, sent, 1)
	assert.Equal(t, "b-1", sent[0].Body["board_id"])
}

func TestPublish_TransportFailure(t *testing.T) {
	svc, tokens, _ := newPublisherFixture(t, nil)
	tokens.On("GetValidAccessToken", mock.Anything, int64(1), platform.LinkedIn).Return("li-token", true)
	svc.publishers[platform.LinkedIn] = &linkedinPublisher{client: http.DefaultClient, apiURL: "http://127.0.0.1:1"}

	results := svc.PostToMultiplePlatforms(context.Background(), 1, []string{"linkedin"},
		models.PostContent{Caption: "x"}, &models.PublishTargets{LinkedInPersonURN: "urn:li:person:abc"})
	assert.Equal(t, "Failed to post to LinkedIn", results[0].Error)
}
