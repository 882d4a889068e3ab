// Package entity defines the generic read/write contract used to reach the
// host CRM's records (memberships, activities, recurring contributions, ...).
package entity

import (
	"context"
	"errors"
	"fmt"
)

// Type names a host entity.
type Type string

const (
	Membership        Type = "Membership"
	Activity          Type = "Activity"
	ContributionRecur Type = "ContributionRecur"
	SepaMandate       Type = "SepaMandate"
	SepaCreditor      Type = "SepaCreditor"
	OptionValue       Type = "OptionValue"
	CustomField       Type = "CustomField"
	Contact           Type = "Contact"
	MembershipStatus  Type = "MembershipStatus"
)

// ErrNotFound is returned by Get and Update when no record has the given id.
var ErrNotFound = errors.New("record not found")

// Gateway is the host's entity API.
type Gateway interface {
	Get(ctx context.Context, typ Type, id int64) (Record, error)
	Find(ctx context.Context, typ Type, filter Filter) ([]Record, error)
	Create(ctx context.Context, typ Type, fields Record) (int64, error)
	Update(ctx context.Context, typ Type, id int64, fields Record) error
	Count(ctx context.Context, typ Type, filter Filter) (int64, error)
}

// Transactor is implemented by gateways that can group writes atomically.
type Transactor interface {
	Transaction(ctx context.Context, fn func(gw Gateway) error) error
}

// InTransaction runs fn inside a transaction when gw supports one and
// directly against gw otherwise.
func InTransaction(ctx context.Context, gw Gateway, fn func(gw Gateway) error) error {
	if tx, ok := gw.(Transactor); ok {
		return tx.Transaction(ctx, fn)
	}
	return fn(gw)
}

// IsTransactional reports whether gw supports InTransaction atomically.
func IsTransactional(gw Gateway) bool {
	_, ok := gw.(Transactor)
	return ok
}

// NotFound wraps ErrNotFound with the entity and id that were missing.
func NotFound(typ Type, id int64) error {
	return fmt.Errorf("%s [%d]: %w", typ, id, ErrNotFound)
}
