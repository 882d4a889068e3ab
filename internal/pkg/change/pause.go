package change

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

type pauseVariant struct{}

func (pauseVariant) Type() Type { return Pause }

func (pauseVariant) RequiredFields() []string {
	return []string{fieldmap.ChangeResumeDate}
}

func (pauseVariant) StartStatuses() []string {
	return []string{StatusNew, StatusCurrent, StatusGrace}
}

func (pauseVariant) EndStatus() string { return StatusPaused }

// Apply pauses the contract, holds its mandate and schedules the resume.
func (pauseVariant) Apply(ctx context.Context, c *Change) error {
	resumeDate, ok := entity.ParseTime(c.data[fieldmap.ChangeResumeDate])
	if !ok {
		return apperror.Validation(fieldmap.ChangeResumeDate, "Invalid resume date '%s'.", c.data.String(fieldmap.ChangeResumeDate))
	}
	if resumeDate.Before(c.Date()) {
		return apperror.Validation(fieldmap.ChangeResumeDate, "Resume date must not be before the scheduled pause date.")
	}

	contract, err := c.GetContract(ctx)
	if err != nil {
		return err
	}
	updates, err := c.contractUpdates(ctx)
	if err != nil {
		return err
	}
	updates["is_override"] = 1
	if err := c.UpdateContract(ctx, updates); err != nil {
		return err
	}
	if err := c.setMandateStatus(ctx, contract.Int64(fieldmap.MembershipRecurringContribution), sepa.MandateOnHold,
		sepa.MandateFirst, sepa.MandateRecurring); err != nil {
		return err
	}

	resume := New(c.deps, Resume, entity.Record{
		"source_record_id":   c.ContractID(),
		"target_contact_id":  contract.Int64("contact_id"),
		"activity_date_time": resumeDate.Format(entity.DateTimeLayout),
		"subject":            fmt.Sprintf("Resume contract [%d] after pause", c.ContractID()),
	})
	if medium := c.data.String("medium_id"); medium != "" {
		resume.Set("medium_id", medium)
	}
	if err := resume.SetStatus(ctx, ActivityScheduled); err != nil {
		return err
	}
	return resume.Save(ctx)
}

type resumeVariant struct{}

func (resumeVariant) Type() Type { return Resume }

func (resumeVariant) RequiredFields() []string { return nil }

func (resumeVariant) StartStatuses() []string {
	return []string{StatusPaused}
}

func (resumeVariant) EndStatus() string { return StatusCurrent }

func (resumeVariant) Apply(ctx context.Context, c *Change) error {
	contract, err := c.GetContract(ctx)
	if err != nil {
		return err
	}
	paymentID := contract.Int64(fieldmap.MembershipRecurringContribution)
	updates, err := c.contractUpdates(ctx)
	if err != nil {
		return err
	}
	updates["is_override"] = 0
	if err := c.UpdateContract(ctx, updates); err != nil {
		return err
	}
	return c.setMandateStatus(ctx, paymentID, sepa.MandateRecurring, sepa.MandateOnHold)
}
