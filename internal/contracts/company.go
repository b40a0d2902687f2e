package contracts

import "time"

// CompanyMeta holds cached reference metadata for one symbol
type CompanyMeta struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stale checks if the cached metadata is older than ttl
func (m *CompanyMeta) Stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(m.UpdatedAt) > ttl
}

// NewsItem is one cached news story for a symbol
type NewsItem struct {
	Symbol       string    `json:"symbol"`
	PublishedUTC time.Time `json:"published_utc"`
	Headline     string    `json:"headline"`
	URL          string    `json:"url"`
}
