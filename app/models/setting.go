package models

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting is one stored runtime setting.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required,oneof=string boolean integer date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys.
const (
	SettingMinimumChangeDate = "contract_minimum_change_date"
	SettingDefaultMedium     = "contract_default_medium"
	SettingCreditorID        = "contract_creditor_id"
	SettingCreditorUsesBIC   = "contract_creditor_uses_bic"
)

// AppSettings are the contract settings kept in the settings table.
type AppSettings struct {
	// MinimumChangeDate is "2006-01-02" or empty for none.
	MinimumChangeDate string `json:"minimum_change_date" validate:"omitempty,datetime=2006-01-02"`
	DefaultMediumID   string `json:"default_medium_id" validate:"omitempty,numeric"`
	CreditorID        int64  `json:"creditor_id" validate:"gte=0"`
	CreditorUsesBIC   bool   `json:"creditor_uses_bic"`
	mu                sync.RWMutex
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)


// GetAppSettings returns the loaded settings, nil before LoadSettings.
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings reads the settings table over defaults.
func LoadSettings(db *gorm.DB, defaults *AppSettings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	loaded := &AppSettings{}
	if defaults != nil {
		loaded = defaults.copy()
	}

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	for _, setting := range settings {
		switch setting.Key {
		case SettingMinimumChangeDate:
			loaded.MinimumChangeDate = setting.Value
		case SettingDefaultMedium:
			loaded.DefaultMediumID = setting.Value
		case SettingCreditorID:
			if id, err := strconv.ParseInt(setting.Value, 10, 64); err == nil {
				loaded.CreditorID = id
			}
		case SettingCreditorUsesBIC:
			loaded.CreditorUsesBIC = setting.Value == "true"
		}
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid stored settings: %w", err)
	}

	appSettings = loaded
	return nil
}

// SaveSettings validates and stores settings, then makes them current.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	values := map[string]string{
		SettingMinimumChangeDate: settings.MinimumChangeDate,
		SettingDefaultMedium:     settings.DefaultMediumID,
		SettingCreditorID:        strconv.FormatInt(settings.CreditorID, 10),
		SettingCreditorUsesBIC:   strconv.FormatBool(settings.CreditorUsesBIC),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			var setting Setting
			err := tx.Where("setting_key = ?", key).First(&setting).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				setting = Setting{Key: key, Value: value, Type: settingType(key)}
				if err := tx.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			case err != nil:
				return fmt.Errorf("failed to query setting %s: %w", key, err)
			default:
				setting.Value = value
				if err := tx.Save(&setting).Error; err != nil {
					return fmt.Errorf("failed to update setting %s: %w", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appSettings = settings.copy()
	return nil
}

func settingType(key string) string {
	switch key {
	case SettingCreditorUsesBIC:
		return "boolean"
	case SettingCreditorID, SettingDefaultMedium:
		return "integer"
	case SettingMinimumChangeDate:
		return "date"
	default:
		return "string"
	}
}

var settingsValidator = validator.New()

func (s *AppSettings) Validate() error {
	return settingsValidator.Struct(s)
}

// MinimumChangeTime parses MinimumChangeDate; zero when unset.
func (s *AppSettings) MinimumChangeTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.MinimumChangeDate == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", s.MinimumChangeDate, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *AppSettings) copy() *AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &AppSettings{
		MinimumChangeDate: s.MinimumChangeDate,
		DefaultMediumID:   s.DefaultMediumID,
		CreditorID:        s.CreditorID,
		CreditorUsesBIC:   s.CreditorUsesBIC,
	}
}

