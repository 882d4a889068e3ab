package change

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
	"github.com/ManuelReschke/contracts/internal/pkg/payment"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// Cancel reason stored on payments replaced by an update.
const replacedPaymentReason = "Replaced by contract update"

const mandateNoticeDays = 7

type updateVariant struct{}

func (updateVariant) Type() Type { return Update }

func (updateVariant) RequiredFields() []string {
	return []string{fieldmap.ChangeMembershipType}
}

func (updateVariant) StartStatuses() []string {
	return []string{StatusNew, StatusCurrent, StatusGrace}
}

func (updateVariant) EndStatus() string { return StatusCurrent }

func (updateVariant) Apply(ctx context.Context, c *Change) error {
	return applyUpdate(ctx, c, false)
}

type reviveVariant struct{}

func (reviveVariant) Type() Type { return Revive }

func (reviveVariant) RequiredFields() []string {
	return []string{fieldmap.ChangeMembershipType}
}

func (reviveVariant) StartStatuses() []string {
	return []string{StatusCancelled}
}

func (reviveVariant) EndStatus() string { return StatusCurrent }

func (reviveVariant) Apply(ctx context.Context, c *Change) error {
	return applyUpdate(ctx, c, true)
}

// applyUpdate sets membership type, campaign and payment terms. The payment
// is either an existing recurring contribution or a new one created from
// the requested terms; without either the payment stays as it is.
func applyUpdate(ctx context.Context, c *Change, revive bool) error {
	contract, err := c.GetContract(ctx)
	if err != nil {
		return err
	}
	oldAnnual, err := sepa.ParseMoney(contract.String(fieldmap.MembershipAnnual))
	if err != nil {
		oldAnnual = decimal.Zero
	}
	oldPayment := contract.Int64(fieldmap.MembershipRecurringContribution)

	updates, err := c.contractUpdates(ctx)
	if err != nil {
		return err
	}
	updates["membership_type_id"] = c.data.Int64(fieldmap.ChangeMembershipType)
	if c.data.Has("campaign_id") {
		updates["campaign_id"] = c.data.Int64("campaign_id")
	}
	if revive {
		updates.Merge(entity.Record{
			"is_override":                   0,
			"end_date":                      "",
			fieldmap.MembershipCancelReason: "",
			fieldmap.MembershipCancelDate:   "",
		})
	}

	newAnnual := oldAnnual
	switch {
	case c.data.Has(fieldmap.ChangeRecurringContribution):
		terms, err := c.assignPayment(ctx, c.data.Int64(fieldmap.ChangeRecurringContribution))
		if err != nil {
			return err
		}
		updates.Merge(terms.contractFields())
		newAnnual = terms.annual

	case c.data.Has(fieldmap.ChangeAnnual) || c.data.Has(fieldmap.ChangeFrequency) || c.data.Has(fieldmap.ChangeFromBA):
		terms, err := c.createPayment(ctx, contract)
		if err != nil {
			return err
		}
		updates.Merge(terms.contractFields())
		newAnnual = terms.annual
		c.Set(fieldmap.ChangeRecurringContribution, terms.paymentID)
		if oldPayment != 0 && oldPayment != terms.paymentID {
			if err := c.terminatePayment(ctx, oldPayment, c.Date(), replacedPaymentReason); err != nil {
				return err
			}
		}
	}

	if err := c.UpdateContract(ctx, updates); err != nil {
		return err
	}
	c.Set(fieldmap.ChangeAnnualDiff, sepa.FormatMoney(newAnnual.Sub(oldAnnual)))
	return nil
}

type paymentTerms struct {
	paymentID int64
	annual    decimal.Decimal
	frequency int64
	cycleDay  int64
	fromBA    string
	toBA      string
}

func (t paymentTerms) contractFields() entity.Record {
	out := entity.Record{
		fieldmap.MembershipRecurringContribution: t.paymentID,
		fieldmap.MembershipAnnual:                sepa.FormatMoney(t.annual),
		fieldmap.MembershipFrequency:             t.frequency,
	}
	if t.cycleDay > 0 {
		out[fieldmap.MembershipCycleDay] = t.cycleDay
	}
	if t.fromBA != "" {
		out[fieldmap.MembershipFromBA] = t.fromBA
	}
	if t.toBA != "" {
		out[fieldmap.MembershipToBA] = t.toBA
	}
	return out
}

// assignPayment attaches an existing recurring contribution.
func (c *Change) assignPayment(ctx context.Context, paymentID int64) (paymentTerms, error) {
	ok, err := c.deps.Payments.IsAssignable(ctx, paymentID, c.ContractID())
	if err != nil {
		return paymentTerms{}, err
	}
	if !ok {
		return paymentTerms{}, apperror.Validation(fieldmap.ChangeRecurringContribution,
			"Recurring contribution [%d] is already used by another contract.", paymentID)
	}
	rec, err := c.deps.Gateway.Get(ctx, entity.ContributionRecur, paymentID)
	if errors.Is(err, entity.ErrNotFound) {
		return paymentTerms{}, apperror.NotFound("Recurring contribution", paymentID, err)
	}
	if err != nil {
		return paymentTerms{}, err
	}
	annual, err := payment.AnnualAmountOf(rec)
	if err != nil {
		return paymentTerms{}, err
	}
	return paymentTerms{
		paymentID: paymentID,
		annual:    annual,
		frequency: installmentsPerYear(rec),
		cycleDay:  rec.Int64("cycle_day"),
	}, nil
}

// createPayment creates a recurring contribution with a SEPA mandate from
// the requested terms.
func (c *Change) createPayment(ctx context.Context, contract entity.Record) (paymentTerms, error) {
	for _, field := range []string{fieldmap.ChangeAnnual, fieldmap.ChangeFrequency, fieldmap.ChangeFromBA} {
		if !c.data.Has(field) {
			return paymentTerms{}, apperror.MissingField(field)
		}
	}
	annual, err := sepa.ParseMoney(c.data.String(fieldmap.ChangeAnnual))
	if err != nil || !annual.IsPositive() {
		return paymentTerms{}, apperror.Validation(fieldmap.ChangeAnnual, "Invalid annual amount '%s'.", c.data.String(fieldmap.ChangeAnnual))
	}
	frequency := c.data.Int64(fieldmap.ChangeFrequency)
	if !sepa.IsFrequency(frequency) {
		return paymentTerms{}, apperror.Validation(fieldmap.ChangeFrequency, "Invalid payment frequency '%s'.", c.data.String(fieldmap.ChangeFrequency))
	}
	iban := sepa.NormalizeIBAN(c.data.String(fieldmap.ChangeFromBA))
	if !sepa.ValidateIBAN(iban) {
		return paymentTerms{}, apperror.Validation(fieldmap.ChangeFromBA, "Invalid IBAN '%s'.", iban)
	}
	cycleDay := c.data.Int64(fieldmap.ChangeCycleDay)
	if cycleDay == 0 {
		cycleDay = sepa.NextCycleDay(c.deps.now(), mandateNoticeDays)
	}
	if cycleDay < 1 || cycleDay > 28 {
		return paymentTerms{}, apperror.Validation(fieldmap.ChangeCycleDay, "Invalid cycle day '%d'.", cycleDay)
	}

	creditor, err := c.creditor(ctx)
	if err != nil {
		return paymentTerms{}, err
	}
	pending, err := c.deps.Options.Value(ctx, options.GroupContributionStatus, "Pending")
	if err != nil {
		return paymentTerms{}, err
	}
	instrument, err := c.deps.Options.Value(ctx, options.GroupPaymentInstrument, sepa.MandateRecurring)
	if err != nil {
		return paymentTerms{}, err
	}

	contactID := contract.Int64("contact_id")
	start := c.Date()
	currency := creditor.String("currency")
	if currency == "" {
		currency = "EUR"
	}
	fields := entity.Record{
		"contact_id":             contactID,
		"amount":                 sepa.FormatMoney(annual.Div(decimal.NewFromInt(frequency))),
		"currency":               currency,
		"frequency_unit":         "month",
		"frequency_interval":     sepa.IntervalFor(frequency),
		"cycle_day":              cycleDay,
		"start_date":             start.Format(entity.DateTimeLayout),
		"create_date":            c.deps.now().Format(entity.DateTimeLayout),
		"payment_instrument_id":  instrument,
		"contribution_status_id": pending,
	}
	if c.data.Has("campaign_id") {
		fields["campaign_id"] = c.data.Int64("campaign_id")
	}
	paymentID, err := c.deps.Gateway.Create(ctx, entity.ContributionRecur, fields)
	if err != nil {
		return paymentTerms{}, apperror.WriteFailed("create", "Recurring contribution", 0, err)
	}

	reference := mandateReference(c.ContractID())
	mandateID, err := c.deps.Gateway.Create(ctx, entity.SepaMandate, entity.Record{
		"contact_id":      contactID,
		"type":            sepa.MandateRecurring,
		"status":          sepa.MandateFirst,
		"entity_table":    payment.MandateTable,
		"entity_id":       paymentID,
		"reference":       reference,
		"iban":            iban,
		"bic":             strings.ToUpper(c.data.String("bic")),
		"creditor_id":     creditor.ID(),
		"date":            c.deps.now().Format(entity.DateTimeLayout),
		"validation_date": c.deps.now().Format(entity.DateTimeLayout),
	})
	if err != nil {
		return paymentTerms{}, apperror.WriteFailed("create", "SEPA mandate", 0, err)
	}
	fiberlog.Infof("[Change] Created mandate %s [%d] for contract [%d]", reference, mandateID, c.ContractID())

	return paymentTerms{
		paymentID: paymentID,
		annual:    annual,
		frequency: frequency,
		cycleDay:  cycleDay,
		fromBA:    iban,
		toBA:      creditor.String("iban"),
	}, nil
}

func (c *Change) creditor(ctx context.Context) (entity.Record, error) {
	if c.deps.CreditorID != 0 {
		rec, err := c.deps.Gateway.Get(ctx, entity.SepaCreditor, c.deps.CreditorID)
		if errors.Is(err, entity.ErrNotFound) {
			return nil, apperror.NotFound("SEPA creditor", c.deps.CreditorID, err)
		}
		return rec, err
	}
	recs, err := c.deps.Gateway.Find(ctx, entity.SepaCreditor, entity.Filter{}.WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, apperror.NotFound("SEPA creditor", 0, entity.ErrNotFound)
	}
	return recs[0], nil
}

func installmentsPerYear(rec entity.Record) int64 {
	interval := rec.Int64("frequency_interval")
	if interval <= 0 {
		return 0
	}
	switch rec.String("frequency_unit") {
	case "month":
		return 12 / interval
	case "year":
		if interval == 1 {
			return 1
		}
	}
	return 0
}

func mandateReference(contractID int64) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("CONTRACT-%d-%s", contractID, token)
}
