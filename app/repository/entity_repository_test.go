package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/contracts/app/models"
	"github.com/ManuelReschke/contracts/internal/pkg/change"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// seedHost copies the host configuration of entitytest into the store.
func seedHost(t *testing.T, repo EntityRepository) *entitytest.Host {
	t.Helper()
	host := entitytest.NewHost()
	ctx := context.Background()
	for _, typ := range []entity.Type{entity.OptionValue, entity.MembershipStatus, entity.CustomField} {
		for _, rec := range host.All(typ) {
			_, err := repo.Create(ctx, typ, rec)
			require.NoError(t, err)
		}
	}
	return host
}

func TestEntityRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(newTestDB(t))

	id, err := repo.Create(ctx, entity.Activity, entity.Record{
		"activity_type_id":   "52",
		"status_id":          "1",
		"source_record_id":   int64(7),
		"activity_date_time": "2026-10-14 10:00:00",
		"subject":            "Cancel Contract [7]",
		"custom_3":           "Financial",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	rec, err := repo.Get(ctx, entity.Activity, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID())
	assert.Equal(t, "52", rec.String("activity_type_id"))
	assert.Equal(t, int64(7), rec.Int64("source_record_id"))
	assert.Equal(t, "2026-10-14 10:00:00", rec.String("activity_date_time"))
	assert.Equal(t, "Financial", rec.String("custom_3"))
	assert.NotContains(t, rec, "created_at")
}

func TestEntityRepositoryGetMissing(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t))
	_, err := repo.Get(context.Background(), entity.Membership, 99)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestEntityRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(newTestDB(t))
	id, err := repo.Create(ctx, entity.Membership, entity.Record{"contact_id": int64(1), "membership_type_id": int64(1), "status_id": int64(2)})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, entity.Membership, id, entity.Record{"status_id": int64(6), "end_date": "2026-10-14", "custom_1": 5}))
	require.NoError(t, repo.Update(ctx, entity.Membership, id, entity.Record{"custom_1": "6"}))

	rec, err := repo.Get(ctx, entity.Membership, id)
	require.NoError(t, err)
	assert.Equal(t, int64(6), rec.Int64("status_id"))
	assert.Equal(t, "2026-10-14", rec.String("end_date"))
	assert.Equal(t, "6", rec.String("custom_1"))

	var values int64
	require.NoError(t, repo.(*entityRepository).db.Model(&models.CustomValue{}).Count(&values).Error)
	assert.Equal(t, int64(1), values)
}

func TestEntityRepositoryUpdateMissing(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t))
	err := repo.Update(context.Background(), entity.Membership, 42, entity.Record{"status_id": 2})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestEntityRepositoryRejectsUnknownField(t *testing.T) {
	repo := NewEntityRepository(newTestDB(t))
	_, err := repo.Create(context.Background(), entity.Contact, entity.Record{"display_name": "x", "shoe_size": 44})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "shoe_size"`)
}

func TestEntityRepositoryFindAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(newTestDB(t))
	for i, rc := range []string{"10", "11", "10"} {
		_, err := repo.Create(ctx, entity.Membership, entity.Record{
			"contact_id":         int64(1),
			"membership_type_id": int64(1),
			"status_id":          int64(i + 1),
			"custom_1":           rc,
		})
		require.NoError(t, err)
	}

	recs, err := repo.Find(ctx, entity.Membership, entity.Where("custom_1", 10).OrderBy("status_id DESC"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(3), recs[0].Int64("status_id"))
	assert.Equal(t, int64(1), recs[1].Int64("status_id"))

	n, err := repo.Count(ctx, entity.Membership, entity.Filter{}.In("custom_1", "10", "11").NotEq("id", recs[0].ID()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Count(ctx, entity.Membership, entity.Filter{}.In("status_id"))
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err = repo.Find(ctx, entity.Membership, entity.Filter{}.In("status_id", int64(1), int64(2)).WithLimit(1))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = repo.Find(ctx, entity.Membership, entity.Filter{}.OrderBy("id; DROP TABLE x"))
	assert.Error(t, err)
}

func TestEntityRepositoryTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(newTestDB(t))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(gw entity.Gateway) error {
		if _, err := gw.Create(ctx, entity.Contact, entity.Record{"display_name": "Erika"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repo.Count(ctx, entity.Contact, entity.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelThroughStore(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepository(newTestDB(t))
	host := seedHost(t, repo)

	contact, err := repo.Create(ctx, entity.Contact, entity.Record{"display_name": "Erika Mustermann"})
	require.NoError(t, err)
	payment, err := repo.Create(ctx, entity.ContributionRecur, entity.Record{
		"contact_id":             contact,
		"amount":                 "10.00",
		"frequency_unit":         "month",
		"frequency_interval":     1,
		"payment_instrument_id":  entitytest.InstrumentRCUR,
		"contribution_status_id": entitytest.ContributionInProgress,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, entity.SepaMandate, entity.Record{
		"reference":    "REF-1",
		"contact_id":   contact,
		"type":         "RCUR",
		"status":       "RCUR",
		"entity_table": "civicrm_contribution_recur",
		"entity_id":    payment,
	})
	require.NoError(t, err)
	contractID, err := repo.Create(ctx, entity.Membership, host.Stored(entity.Record{
		"contact_id":                             contact,
		"membership_type_id":                     1,
		"status_id":                              entitytest.StatusCurrent,
		fieldmap.MembershipRecurringContribution: payment,
	}))
	require.NoError(t, err)

	deps := change.NewDeps(repo)
	deps.Now = func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.Local) }
	c := change.New(deps, change.Cancel, entity.Record{
		"source_record_id":          contractID,
		fieldmap.ChangeCancelReason: "Financial",
	})
	require.NoError(t, c.Execute(ctx))
	assert.False(t, c.IsNew())

	contract, err := repo.Get(ctx, entity.Membership, contractID)
	require.NoError(t, err)
	assert.Equal(t, entitytest.StatusCancelled, contract.Int64("status_id"))
	assert.Equal(t, "Financial", contract.String(host.Key(fieldmap.MembershipCancelReason)))

	audits, err := repo.Count(ctx, entity.Activity, entity.Where("source_record_id", contractID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), audits)

	rc, err := repo.Get(ctx, entity.ContributionRecur, payment)
	require.NoError(t, err)
	assert.Equal(t, entitytest.ContributionCancelled, rc.String("contribution_status_id"))
}
