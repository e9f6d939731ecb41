package database

import (
	"time"
)

// WidgetSettings is the single-row settings record. SingletonID keeps
// updates idempotent; there is never more than one row.
const SingletonID = 1

type WidgetSettings struct {
	ID int `gorm:"primaryKey"`

	Enabled    bool `gorm:"default:true"`
	WebhookURL string
	SiteSlug   string `gorm:"size:64"`

	PrimaryColor    string `gorm:"size:7"`
	SecondaryColor  string `gorm:"size:7"`
	BackgroundColor string `gorm:"size:7"`
	Position        string `gorm:"size:8"`

	TeaserText       string
	ShowTeaserOnLoad bool
	TeaserAvatar     string

	HeaderName       string
	ResponseTimeText string
	WelcomeMessage   string

	PoweredByText string
	PoweredByLink string

	ShowBadge  bool
	BadgeCount int `gorm:"default:0"`

	UpdatedAt time.Time
}
