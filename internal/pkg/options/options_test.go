package options_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

func TestValue(t *testing.T) {
	ctx := context.Background()
	l := options.New(entitytest.NewHost())

	v, err := l.Value(ctx, options.GroupActivityStatus, "Needs Review")
	require.NoError(t, err)
	assert.Equal(t, entitytest.ActivityNeedsReview, v)

	vs, err := l.Values(ctx, options.GroupContributionStatus, "Pending", "In Progress")
	require.NoError(t, err)
	assert.Equal(t, []string{entitytest.ContributionPending, entitytest.ContributionInProgress}, vs)

	_, err = l.Value(ctx, options.GroupActivityStatus, "Postponed")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorContains(t, err, `"Postponed"`)
	assert.ErrorContains(t, err, options.GroupActivityStatus)
}

func TestNameAndLabels(t *testing.T) {
	ctx := context.Background()
	l := options.New(entitytest.NewHost())

	name, err := l.Name(ctx, options.GroupPaymentInstrument, entitytest.InstrumentRCUR)
	require.NoError(t, err)
	assert.Equal(t, "RCUR", name)

	name, err = l.Name(ctx, options.GroupPaymentInstrument, "99")
	require.NoError(t, err)
	assert.Empty(t, name)

	labels, err := l.Labels(ctx, options.GroupPaymentInstrument)
	require.NoError(t, err)
	assert.Equal(t, "SEPA Recurring", labels[entitytest.InstrumentRCUR])
}

func TestOptionsOrderedByWeightAndCached(t *testing.T) {
	ctx := context.Background()
	host := entitytest.NewHost()
	l := options.New(host)

	opts, err := l.Options(ctx, options.GroupEncounterMedium)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "in_person", opts[0].Name)

	before := len(host.Calls())
	_, err = l.Options(ctx, options.GroupEncounterMedium)
	require.NoError(t, err)
	assert.Len(t, host.Calls(), before)
}

func TestStatuses(t *testing.T) {
	ctx := context.Background()
	l := options.New(entitytest.NewHost())

	name, err := l.StatusName(ctx, entitytest.StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, "Paused", name)

	id, err := l.StatusID(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, entitytest.StatusGrace, id)

	_, err = l.StatusName(ctx, 99)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = l.StatusID(ctx, "Frozen")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestFailedLoadIsRetried(t *testing.T) {
	ctx := context.Background()
	host := entitytest.NewHost()
	l := options.New(host)

	host.FailOn("find", entity.MembershipStatus, errors.New("timeout"))
	_, err := l.Statuses(ctx)
	require.Error(t, err)

	host.FailOn("find", entity.MembershipStatus, nil)
	statuses, err := l.Statuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, len(options.DefaultStatuses))
}
