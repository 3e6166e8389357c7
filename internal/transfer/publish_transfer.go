package transfer

type TweetRequest struct {
	Text string `json:"text"`
}

type TweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// TwitterErrorResponse follows the RFC 7807 problem shape used by API v2.
type TwitterErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

type LinkedInShareCommentary struct {
	Text string `json:"text"`
}

type LinkedInShareContent struct {
	ShareCommentary    LinkedInShareCommentary `json:"shareCommentary"`
	ShareMediaCategory string                  `json:"shareMediaCategory"`
}

type LinkedInUGCPost struct {
	Author          string                          `json:"author"`
	LifecycleState  string                          `json:"lifecycleState"`
	SpecificContent map[string]LinkedInShareContent `json:"specificContent"`
	Visibility      map[string]string               `json:"visibility"`
}

// MessageErrorResponse is the {"message": ...} error body used by LinkedIn
// and Pinterest.
type MessageErrorResponse struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type PinMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type PinRequest struct {
	BoardID     string         `json:"board_id"`
	MediaSource PinMediaSource `json:"media_source"`
	Description string         `json:"description"`
	Link        string         `json:"link,omitempty"`
}

type PublishRequest struct {
	Platforms []string `json:"platforms"`
	Caption   string   `json:"caption"`
	ImageURL  string   `json:"image_url"`
	VideoURL  string   `json:"video_url"`
	Link      string   `json:"link"`
	Hashtags  []string `json:"hashtags"`

	FacebookPageID    string `json:"facebook_page_id"`
	LinkedInPersonURN string `json:"linkedin_person_urn"`
	PinterestBoardID  string `json:"pinterest_board_id"`

	// RFC 3339; only used by the schedule endpoint
	ScheduledTime string `json:"scheduled_time"`
}
