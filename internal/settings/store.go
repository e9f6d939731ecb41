package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chat-widget-backend/internal/database"
)

// Store persists the widget settings as a single database row. Reads fall
// back to defaults until something has been saved.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context) (Settings, error) {
	var record database.WidgetSettings
	err := s.db.WithContext(ctx).First(&record, "id = ?", database.SingletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("error loading settings: %w", err)
	}
	return fromRecord(record), nil
}

// Save sanitizes and upserts the settings row.
func (s *Store) Save(ctx context.Context, cfg Settings) (Settings, error) {
	cfg = Sanitize(cfg)

	record := toRecord(cfg)
	err := s.db.WithContext(ctx).Save(&record).Error
	if err != nil {
		return Settings{}, fmt.Errorf("error saving settings: %w", err)
	}
	return cfg, nil
}

func fromRecord(r database.WidgetSettings) Settings {
	return Settings{
		Enabled:          r.Enabled,
		WebhookURL:       r.WebhookURL,
		SiteSlug:         r.SiteSlug,
		PrimaryColor:     r.PrimaryColor,
		SecondaryColor:   r.SecondaryColor,
		BackgroundColor:  r.BackgroundColor,
		Position:         r.Position,
		TeaserText:       r.TeaserText,
		ShowTeaserOnLoad: r.ShowTeaserOnLoad,
		TeaserAvatar:     r.TeaserAvatar,
		HeaderName:       r.HeaderName,
		ResponseTimeText: r.ResponseTimeText,
		WelcomeMessage:   r.WelcomeMessage,
		PoweredByText:    r.PoweredByText,
		PoweredByLink:    r.PoweredByLink,
		ShowBadge:        r.ShowBadge,
		BadgeCount:       r.BadgeCount,
	}
}

func toRecord(cfg Settings) database.WidgetSettings {
	return database.WidgetSettings{
		ID:               database.SingletonID,
		Enabled:          cfg.Enabled,
		WebhookURL:       cfg.WebhookURL,
		SiteSlug:         cfg.SiteSlug,
		PrimaryColor:     cfg.PrimaryColor,
		SecondaryColor:   cfg.SecondaryColor,
		BackgroundColor:  cfg.BackgroundColor,
		Position:         cfg.Position,
		TeaserText:       cfg.TeaserText,
		ShowTeaserOnLoad: cfg.ShowTeaserOnLoad,
		TeaserAvatar:     cfg.TeaserAvatar,
		HeaderName:       cfg.HeaderName,
		ResponseTimeText: cfg.ResponseTimeText,
		WelcomeMessage:   cfg.WelcomeMessage,
		PoweredByText:    cfg.PoweredByText,
		PoweredByLink:    cfg.PoweredByLink,
		ShowBadge:        cfg.ShowBadge,
		BadgeCount:       cfg.BadgeCount,
	}
}
