package change

import (
	"context"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
)

type cancelVariant struct{}

func (cancelVariant) Type() Type { return Cancel }

func (cancelVariant) RequiredFields() []string {
	return []string{fieldmap.ChangeCancelReason}
}

func (cancelVariant) StartStatuses() []string {
	return []string{StatusNew, StatusCurrent, StatusGrace}
}

func (cancelVariant) EndStatus() string { return StatusCancelled }

func (cancelVariant) Apply(ctx context.Context, c *Change) error {
	contract, err := c.GetContract(ctx)
	if err != nil {
		return err
	}
	paymentID := contract.Int64(fieldmap.MembershipRecurringContribution)
	reason := c.data.String(fieldmap.ChangeCancelReason)
	date := c.Date()

	updates, err := c.contractUpdates(ctx)
	if err != nil {
		return err
	}
	updates.Merge(entity.Record{
		"is_override":                   1,
		"end_date":                      date.Format(entity.DateLayout),
		fieldmap.MembershipCancelReason: reason,
		fieldmap.MembershipCancelDate:   date.Format(entity.DateTimeLayout),
	})
	if err := c.UpdateContract(ctx, updates); err != nil {
		return err
	}
	return c.terminatePayment(ctx, paymentID, date, reason)
}
