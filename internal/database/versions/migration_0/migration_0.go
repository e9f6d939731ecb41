package migration_0

import (
	"time"

	"gorm.io/gorm"
)

// Initial schema: the single-row widget settings table.

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

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&WidgetSettings{})
}

func Rollback(txn *gorm.DB) error {
	return txn.Migrator().DropTable(&WidgetSettings{})
}
