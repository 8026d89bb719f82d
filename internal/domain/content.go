package domain

// BlogPost: item of /api/bot/blogs
type BlogPost struct {
	Title  string      `json:"title"`
	Slug   string      `json:"slug"`
	Author *AuthorInfo `json:"author,omitempty"`
}

// AuthorInfo is the author block embedded in website payloads.
type AuthorInfo struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// AuthorName returns the author display name or "".
func (a *AuthorInfo) AuthorName() string {
	if a == nil {
		return ""
	}
	return a.Name
}

// ForumPost: item of /api/bot/forums
type ForumPost struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Author *AuthorInfo `json:"author,omitempty"`
}

// LeaderboardUser is one row of /api/leaderboard.
type LeaderboardUser struct {
	Name             string `json:"name"`
	Username         string `json:"username"`
	ExperiencePoints int    `json:"experiencePoints"`
}

// Leaderboard: response of /api/leaderboard
type Leaderboard struct {
	Users   []LeaderboardUser `json:"users"`
	HasMore bool              `json:"hasMore"`
}

// CommunityEvent: item of /api/events
type CommunityEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Link        string `json:"link"`
}

// NewsItem: one entry of the tech-news digest
type NewsItem struct {
	Title string
	Link  string
	Score int
}

// Quote: quote of the day
type Quote struct {
	Text   string
	Author string
}

// Meme: rendered meme ready to send
type Meme struct {
	Template string
	Topic    string
	URL      string
	PageURL  string
}

// ScoreEntry: a member of the quiz leaderboard sorted set
type ScoreEntry struct {
	Member string
	Score  float64
}
