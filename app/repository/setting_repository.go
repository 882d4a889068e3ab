package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/contracts/app/models"
	"github.com/ManuelReschke/contracts/internal/pkg/contract"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns the loaded settings, loading them without defaults on first
// use.
func (r *settingRepository) Get() (*models.AppSettings, error) {
	if s := models.GetAppSettings(); s != nil {
		return s, nil
	}
	if err := models.LoadSettings(r.db, nil); err != nil {
		return nil, err
	}
	return models.GetAppSettings(), nil
}

func (r *settingRepository) Save(settings *models.AppSettings) error {
	return models.SaveSettings(r.db, settings)
}

// GetValue returns the stored value of key, "" when unset.
func (r *settingRepository) GetValue(key string) (string, error) {
	var setting models.Setting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (r *settingRepository) SetValue(key, value string) error {
	var setting models.Setting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.Setting{Key: key, Value: value, Type: "string"}
		return r.db.Create(&setting).Error
	}
	if err != nil {
		return err
	}
	setting.Value = value
	return r.db.Save(&setting).Error
}

// ContractSettings implements contract.SettingsSource.
func (r *settingRepository) ContractSettings(context.Context) (contract.Settings, error) {
	s, err := r.Get()
	if err != nil {
		return contract.Settings{}, err
	}
	return contract.Settings{
		MinimumChangeDate: s.MinimumChangeTime(),
		DefaultMediumID:   s.DefaultMediumID,
		CreditorUsesBIC:   s.CreditorUsesBIC,
	}, nil
}
