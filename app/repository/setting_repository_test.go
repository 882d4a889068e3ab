package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/app/models"
)

func TestSettingRepositoryValues(t *testing.T) {
	repo := NewSettingRepository(newTestDB(t))

	v, err := repo.GetValue("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repo.SetValue("greeting", "hello"))
	require.NoError(t, repo.SetValue("greeting", "moin"))
	v, err = repo.GetValue("greeting")
	require.NoError(t, err)
	assert.Equal(t, "moin", v)
}

func TestSettingRepositoryContractSettings(t *testing.T) {
	repo := NewSettingRepository(newTestDB(t))
	require.NoError(t, repo.Save(&models.AppSettings{MinimumChangeDate: "2026-11-01", DefaultMediumID: "2", CreditorUsesBIC: true}))

	s, err := repo.ContractSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.Local), s.MinimumChangeDate)
	assert.Equal(t, "2", s.DefaultMediumID)
	assert.True(t, s.CreditorUsesBIC)
}
