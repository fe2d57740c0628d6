package models

// Project is a hosted content project. Slug is the unique natural key used
// for all external lookups; ID is a secondary identifier kept for legacy
// references.
type Project struct {
	ID               string   `json:"id"`
	Slug             string   `json:"slug"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	CategoryIDs      []string `json:"categoryIds"`
	AdditionalTags   []string `json:"additionalTags"`
	DonationURLs     []string `json:"donationUrls"`
	GalleryURLs      []string `json:"galleryUrls"`
	GameVersions     []string `json:"gameVersions"`
	VersionIDs       []string `json:"versionIds"`
	Body             string   `json:"body"`
	Status           string   `json:"status"`
	RequestedStatus  string   `json:"requestedStatus"`
	IssuesURL        string   `json:"issuesUrl"`
	SourceURL        string   `json:"sourceUrl"`
	WikiURL          string   `json:"wikiUrl"`
	DiscordURL       string   `json:"discordUrl"`
	ProjectType      string   `json:"projectType"`
	Downloads        int      `json:"downloads"`
	IconURL          string   `json:"iconUrl"`
	ColorHex         string   `json:"colorHex"`
	OwnerID          string   `json:"ownerId"`
	ModeratorMessage string   `json:"moderatorMessage"`
	CreatedAt        int64    `json:"createdAt"`
	UpdatedAt        int64    `json:"updatedAt"`
	ApprovedAt       int64    `json:"approvedAt"`
	QueuedAt         int64    `json:"queuedAt"`
	Followers        int      `json:"followers"`
	License          string   `json:"license"`
}

// Clone returns a deep copy of the record.
func (p Project) Clone() Project {
	p.CategoryIDs = cloneStrings(p.CategoryIDs)
	p.AdditionalTags = cloneStrings(p.AdditionalTags)
	p.DonationURLs = cloneStrings(p.DonationURLs)
	p.GalleryURLs = cloneStrings(p.GalleryURLs)
	p.GameVersions = cloneStrings(p.GameVersions)
	p.VersionIDs = cloneStrings(p.VersionIDs)
	return p
}
