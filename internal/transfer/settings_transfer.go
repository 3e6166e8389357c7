package transfer

type SettingsUpdate struct {
	DefaultPlatforms  []string `json:"default_platforms"`
	FacebookPageID    string   `json:"facebook_page_id"`
	LinkedInPersonURN string   `json:"linkedin_person_urn"`
	PinterestBoardID  string   `json:"pinterest_board_id"`
}
