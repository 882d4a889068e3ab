package fieldmap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
)

func TestResolverLoadsOnce(t *testing.T) {
	ctx := context.Background()
	host := entitytest.NewHost()
	r := fieldmap.New(host)

	for i := 0; i < 3; i++ {
		key, err := r.Resolve(ctx, fieldmap.ChangeResumeDate)
		require.NoError(t, err)
		assert.Equal(t, host.Key(fieldmap.ChangeResumeDate), key)
	}

	finds := 0
	for _, c := range host.Calls() {
		if c.Op == "find" && c.Type == entity.CustomField {
			finds++
		}
	}
	assert.Equal(t, len(fieldmap.DefaultGroups), finds)
}

func TestResolverRetriesFailedLoad(t *testing.T) {
	ctx := context.Background()
	host := entitytest.NewHost()
	r := fieldmap.New(host)

	host.FailOn("find", entity.CustomField, errors.New("host down"))
	_, err := r.Resolve(ctx, fieldmap.ChangeAnnual)
	require.ErrorContains(t, err, "host down")

	host.FailOn("find", entity.CustomField, nil)
	key, err := r.Resolve(ctx, fieldmap.ChangeAnnual)
	require.NoError(t, err)
	assert.Equal(t, host.Key(fieldmap.ChangeAnnual), key)
}

func TestResolverStrictKey(t *testing.T) {
	ctx := context.Background()
	r := fieldmap.NewStatic(map[string]int64{fieldmap.ChangeFrequency: 42})

	key, err := r.Key(ctx, fieldmap.ChangeFrequency)
	require.NoError(t, err)
	assert.Equal(t, "custom_42", key)

	_, err = r.Key(ctx, "contract_updates.nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	id, err := r.FieldID(ctx, fieldmap.ChangeFrequency)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestResolveFilter(t *testing.T) {
	ctx := context.Background()
	r := fieldmap.NewStatic(map[string]int64{fieldmap.MembershipRecurringContribution: 7})

	f, err := r.ResolveFilter(ctx, entity.Where(fieldmap.MembershipRecurringContribution, int64(3)).
		NotEq("status_id", "6").
		OrderBy(fieldmap.MembershipRecurringContribution+" DESC").
		WithLimit(5))
	require.NoError(t, err)
	assert.Equal(t, "custom_7", f.Conditions[0].Field)
	assert.Equal(t, "status_id", f.Conditions[1].Field)
	assert.Equal(t, "custom_7 DESC", f.Sort)
	assert.Equal(t, 5, f.Limit)
}

func TestResolveRecordPrefersName(t *testing.T) {
	ctx := context.Background()
	r := fieldmap.NewStatic(map[string]int64{fieldmap.ChangeAnnual: 9})

	out, err := r.ResolveRecord(ctx, entity.Record{"custom_9": "old", fieldmap.ChangeAnnual: "new", "subject": "x"})
	require.NoError(t, err)
	assert.Equal(t, entity.Record{"custom_9": "new", "subject": "x"}, out)
}

func TestStorageKeyID(t *testing.T) {
	id, ok := fieldmap.StorageKeyID("custom_12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	for _, key := range []string{"custom_", "custom_x", "status_id", ""} {
		_, ok := fieldmap.StorageKeyID(key)
		assert.False(t, ok, key)
	}
}
