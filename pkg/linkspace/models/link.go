package models

import "time"

// Link represents a shortened URL record. Short tokens and aliases are
// unique within a serving domain, not globally: two spaces bound to
// different domains may both own a "docs" token.
type Link struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Owner     string    `gorm:"not null;index" json:"owner"`
	SpaceID   string    `gorm:"index" json:"space_id"`
	Domain    string    `gorm:"not null;uniqueIndex:idx_domain_short" json:"domain"`
	Short     string    `gorm:"not null;uniqueIndex:idx_domain_short" json:"short"`
	Full      string    `gorm:"not null" json:"full"`
	Alias     []string  `gorm:"serializer:json" json:"alias"`
	Clicks    uint      `gorm:"default:0" json:"clicks"`
}

// Resolves reports whether token identifies this link, either as its
// primary short token or as one of its aliases.
func (l *Link) Resolves(token string) bool {
	if l.Short == token {
		return true
	}
	for _, a := range l.Alias {
		if a == token {
			return true
		}
	}
	return false
}

// HasAlias reports whether token is already among the link's aliases.
func (l *Link) HasAlias(token string) bool {
	for _, a := range l.Alias {
		if a == token {
			return true
		}
	}
	return false
}
