package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterBuilderDoesNotAlias(t *testing.T) {
	base := Where("contact_id", 1)
	a := base.Eq("status_id", 2)
	b := base.NotEq("status_id", 3)

	require.Len(t, base.Conditions, 1)
	assert.Equal(t, Condition{Field: "status_id", Op: OpEq, Value: 2}, a.Conditions[1])
	assert.Equal(t, Condition{Field: "status_id", Op: OpNotEq, Value: 3}, b.Conditions[1])

	f := base.OrderBy("id DESC").WithLimit(3)
	assert.Equal(t, "id DESC", f.Sort)
	assert.Equal(t, 3, f.Limit)
	assert.Empty(t, base.Sort)
}

func TestConditionValues(t *testing.T) {
	in := Filter{}.In("id", Int64s([]int64{1, 2})...)
	assert.Equal(t, []any{int64(1), int64(2)}, in.Conditions[0].Values())

	empty := Filter{}.In("id")
	assert.Empty(t, empty.Conditions[0].Values())

	assert.Equal(t, []any{"a"}, Condition{Field: "x", Op: OpEq, Value: "a"}.Values())
	assert.Equal(t, []any{"a", "b"}, Strings([]string{"a", "b"}))
}

type plainGateway struct{ Gateway }

type txGateway struct {
	plainGateway
	ran bool
}

func (g *txGateway) Transaction(_ context.Context, fn func(gw Gateway) error) error {
	g.ran = true
	return fn(g)
}

func TestInTransaction(t *testing.T) {
	ctx := context.Background()

	tx := &txGateway{}
	assert.True(t, IsTransactional(tx))
	require.NoError(t, InTransaction(ctx, tx, func(Gateway) error { return nil }))
	assert.True(t, tx.ran)

	plain := plainGateway{}
	assert.False(t, IsTransactional(plain))
	boom := errors.New("boom")
	assert.ErrorIs(t, InTransaction(ctx, plain, func(Gateway) error { return boom }), boom)
}

func TestNotFound(t *testing.T) {
	err := NotFound(Membership, 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "4")
}
