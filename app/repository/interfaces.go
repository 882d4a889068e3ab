package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/contracts/app/models"
	"github.com/ManuelReschke/contracts/internal/pkg/contract"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
)

// EntityRepository is the self-hosted entity gateway.
type EntityRepository interface {
	entity.Gateway
	entity.Transactor
}

// SettingRepository defines the interface for the contract settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
	ContractSettings(ctx context.Context) (contract.Settings, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Entity  EntityRepository
	Setting SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Entity:  NewEntityRepository(db),
		Setting: NewSettingRepository(db),
	}
}
