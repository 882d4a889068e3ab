package change

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

func TestRegistryResolve(t *testing.T) {
	host := entitytest.NewHost()
	reg := NewRegistry(options.New(host))
	ctx := context.Background()

	tests := []struct {
		in   string
		want Type
	}{
		{"Contract_Cancelled", Cancel},
		{"Contract_Updated", Update},
		{"pause", Pause},
		{"resume", Resume},
		{"revive", Revive},
		{entitytest.TypeContractCancelled, Cancel},
		{entitytest.TypeContractRevived, Revive},
	}
	for _, tt := range tests {
		got, err := reg.Resolve(ctx, tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	host := entitytest.NewHost()
	reg := NewRegistry(options.New(host))

	for _, in := range []string{"Contract_Signed", entitytest.TypeContractSigned, "delete", ""} {
		_, err := reg.Resolve(context.Background(), in)
		require.Error(t, err, in)
		assert.True(t, apperror.IsValidation(err), in)
		assert.Contains(t, err.Error(), "no such change type")
	}
}

func TestRegistryLoadsIDsOnce(t *testing.T) {
	host := entitytest.NewHost()
	reg := NewRegistry(options.New(host))
	ctx := context.Background()

	_, err := reg.Resolve(ctx, entitytest.TypeContractPaused)
	require.NoError(t, err)
	_, err = reg.Resolve(ctx, entitytest.TypeContractResumed)
	require.NoError(t, err)

	finds := 0
	for _, c := range host.Calls() {
		if c.Op == "find" && c.Type == entity.OptionValue {
			finds++
		}
	}
	assert.Equal(t, 1, finds)

	id, err := reg.ActivityTypeID(ctx, Pause)
	require.NoError(t, err)
	assert.Equal(t, entitytest.TypeContractPaused, id)

	ids, err := reg.ActivityTypeIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, len(Types))
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	host := entitytest.NewHost()
	reg := NewRegistry(options.New(host))
	ctx := context.Background()

	host.FailOn("find", entity.OptionValue, assert.AnError)
	_, err := reg.Resolve(ctx, entitytest.TypeContractPaused)
	require.ErrorIs(t, err, assert.AnError)

	host.FailOn("find", entity.OptionValue, nil)
	got, err := reg.Resolve(ctx, entitytest.TypeContractPaused)
	require.NoError(t, err)
	assert.Equal(t, Pause, got)
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "Contract_Paused", Pause.ActivityType())
	assert.Equal(t, "revive", Revive.Action())
	assert.Equal(t, "Cancel Contract", Cancel.Title())
	assert.Equal(t, "update", Update.String())
	assert.False(t, Type(42).Valid())

	got, ok := ParseAction(" Cancel ")
	assert.True(t, ok)
	assert.Equal(t, Cancel, got)
	_, ok = ParseAction("sign")
	assert.False(t, ok)
}

func TestGuard(t *testing.T) {
	tests := []struct {
		status string
		typ    Type
		legal  bool
	}{
		{StatusCurrent, Cancel, true},
		{StatusNew, Cancel, true},
		{StatusGrace, Pause, true},
		{StatusPaused, Cancel, false},
		{StatusCancelled, Cancel, false},
		{StatusPaused, Resume, true},
		{StatusCurrent, Resume, false},
		{StatusCancelled, Revive, true},
		{StatusCurrent, Revive, false},
		{StatusCurrent, Update, true},
		{StatusCancelled, Update, false},
		{"Expired", Update, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.legal, IsLegalFrom(tt.status, tt.typ), "%s from %s", tt.typ, tt.status)
	}

	err := CheckTransition(StatusPaused, Cancel)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "cancel")
	assert.Contains(t, err.Error(), "'Paused'")
	assert.NoError(t, CheckTransition(StatusPaused, Resume))
}

func TestEndStatuses(t *testing.T) {
	want := map[Type]string{
		Update: StatusCurrent,
		Cancel: StatusCancelled,
		Pause:  StatusPaused,
		Resume: StatusCurrent,
		Revive: StatusCurrent,
	}
	for typ, status := range want {
		assert.Equal(t, status, typ.Variant().EndStatus(), typ.String())
		assert.Equal(t, typ, typ.Variant().Type())
	}
}
