package change

import (
	"context"
	"errors"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// terminatePayment ends a recurring contribution and completes its mandate.
func (c *Change) terminatePayment(ctx context.Context, paymentID int64, date time.Time, reason string) error {
	if paymentID == 0 {
		return nil
	}
	cancelled, err := c.deps.Options.Value(ctx, options.GroupContributionStatus, "Cancelled")
	if err != nil {
		return err
	}
	err = c.deps.Gateway.Update(ctx, entity.ContributionRecur, paymentID, entity.Record{
		"contribution_status_id": cancelled,
		"end_date":               date.Format(entity.DateTimeLayout),
		"cancel_date":            date.Format(entity.DateTimeLayout),
		"cancel_reason":          reason,
	})
	if errors.Is(err, entity.ErrNotFound) {
		fiberlog.Warnf("[Change] Recurring contribution [%d] of contract [%d] no longer exists", paymentID, c.ContractID())
		return nil
	}
	if err != nil {
		return apperror.WriteFailed("terminate", "Recurring contribution", paymentID, err)
	}
	return c.setMandateStatus(ctx, paymentID, sepa.MandateComplete)
}

// setMandateStatus changes the status of the SEPA mandate attached to a
// recurring contribution. Payments without mandate are left alone, as are
// mandates whose status is not one of from (when given).
func (c *Change) setMandateStatus(ctx context.Context, paymentID int64, status string, from ...string) error {
	if paymentID == 0 {
		return nil
	}
	mandate, err := c.deps.Payments.Mandate(ctx, paymentID)
	if err != nil {
		return err
	}
	if mandate == nil {
		return nil
	}
	current := mandate.String("status")
	if current == status {
		return nil
	}
	if len(from) > 0 && !contains(from, current) {
		return nil
	}
	if err := c.deps.Gateway.Update(ctx, entity.SepaMandate, mandate.ID(), entity.Record{"status": status}); err != nil {
		return apperror.WriteFailed("update", "SEPA mandate", mandate.ID(), err)
	}
	fiberlog.Infof("[Change] Mandate %s of contract [%d] set to %s", mandate.String("reference"), c.ContractID(), status)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
