package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ManuelReschke/contracts/app/models"
	"github.com/ManuelReschke/contracts/app/repository"
	"github.com/ManuelReschke/contracts/internal/pkg/cache"
	"github.com/ManuelReschke/contracts/internal/pkg/civiapi"
	"github.com/ManuelReschke/contracts/internal/pkg/contract"
	"github.com/ManuelReschke/contracts/internal/pkg/contractfile"
	"github.com/ManuelReschke/contracts/internal/pkg/database"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/env"
	"github.com/ManuelReschke/contracts/internal/pkg/lock"
)

// Entity backends.
const (
	BackendDatabase = "database"
	BackendCiviCRM  = "civicrm"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// setupBackend connects the entity gateway and the settings source of
// backend.
func setupBackend(backend string) (entity.Gateway, contract.SettingsSource) {
	switch backend {
	case BackendDatabase:
		setupSettingsDatabase()
		factory := repository.GetGlobalFactory()
		if env.GetBool("CONTRACT_PROVISION", true) {
			if _, err := repository.Provision(context.Background(), factory.GetEntityRepository()); err != nil {
				log.Fatalf("Failed to provision the entity store: %v", err)
			}
		}
		return factory.GetEntityRepository(), factory.GetSettingRepository()
	case BackendCiviCRM:
		client := civiapi.NewClientFromEnv()
		if client.BaseURL == "" {
			log.Fatal("CIVICRM_URL is required for the civicrm entity backend")
		}
		// Settings stay in the local database when one is configured.
		if env.GetEnv("DB_HOST", "") != "" {
			setupSettingsDatabase()
			return client, repository.GetGlobalFactory().GetSettingRepository()
		}
		return client, contract.StaticSettings(contractSettings(envSettings()))
	default:
		log.Fatalf("Unknown ENTITY_BACKEND %q, use %q or %q", backend, BackendDatabase, BackendCiviCRM)
		return nil, nil
	}
}

func setupSettingsDatabase() {
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	if err := models.LoadSettings(database.GetDB(), envSettings()); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
}

// envSettings are the settings defaults from the environment.
func envSettings() *models.AppSettings {
	return &models.AppSettings{
		MinimumChangeDate: env.GetEnv("CONTRACT_MINIMUM_CHANGE_DATE", ""),
		DefaultMediumID:   env.GetEnv("CONTRACT_DEFAULT_MEDIUM", ""),
		CreditorID:        env.GetInt64("CONTRACT_CREDITOR_ID", 0),
		CreditorUsesBIC:   env.GetBool("CONTRACT_CREDITOR_USES_BIC", false),
	}
}

func contractSettings(s *models.AppSettings) contract.Settings {
	return contract.Settings{
		MinimumChangeDate: s.MinimumChangeTime(),
		DefaultMediumID:   s.DefaultMediumID,
		CreditorUsesBIC:   s.CreditorUsesBIC,
	}
}

func creditorID() int64 {
	if s := models.GetAppSettings(); s != nil {
		return s.CreditorID
	}
	return env.GetInt64("CONTRACT_CREDITOR_ID", 0)
}

// newLocker builds the contract locker selected by CONTRACT_LOCK_BACKEND.
func newLocker() lock.Locker {
	wait := env.GetDuration("CONTRACT_LOCK_WAIT", 5*time.Second)
	switch backend := env.GetEnv("CONTRACT_LOCK_BACKEND", LockLocal); backend {
	case LockRedis:
		cache.SetupCache()
		ttl := env.GetDuration("CONTRACT_LOCK_TTL", 2*time.Minute)
		return lock.NewRedis(cache.GetClient(), ttl, wait)
	case LockLocal:
		return lock.NewLocal(wait)
	default:
		log.Printf("Warning: Unknown CONTRACT_LOCK_BACKEND %q, using in-process locks", backend)
		return lock.NewLocal(wait)
	}
}

func setupContractFiles(ctx context.Context) *contractfile.Store {
	cfg, err := contractfile.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid contract file configuration: %v", err)
	}
	store, err := contractfile.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up contract files: %v", err)
	}
	return store
}

// findBasePath locates the project root holding docs/, "" when absent.
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/contracts to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	return ""
}
