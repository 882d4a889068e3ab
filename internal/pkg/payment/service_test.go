package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

type fixture struct {
	host    *entitytest.Host
	svc     *Service
	contact int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	host := entitytest.NewHost()
	contact := host.Seed(entity.Contact, entity.Record{"display_name": "Erika Mustermann"})
	host.Seed(entity.SepaCreditor, entity.Record{"id": int64(1), "name": "Example e.V.", "iban": "DE02120300000000202051"})
	return &fixture{
		host:    host,
		svc:     NewService(host, fieldmap.New(host), options.New(host)),
		contact: contact,
	}
}

func (f *fixture) payment(status string) int64 {
	id := f.host.Seed(entity.ContributionRecur, entity.Record{
		"contact_id":             f.contact,
		"amount":                 "10.00",
		"currency":               "EUR",
		"frequency_unit":         "month",
		"frequency_interval":     "1",
		"cycle_day":              "15",
		"payment_instrument_id":  entitytest.InstrumentCreditCard,
		"contribution_status_id": status,
	})
	return id
}

func (f *fixture) sepaPayment(reference string) int64 {
	id := f.host.Seed(entity.ContributionRecur, entity.Record{
		"contact_id":                   f.contact,
		"amount":                       "5.00",
		"currency":                     "EUR",
		"frequency_unit":               "month",
		"frequency_interval":           "3",
		"payment_instrument_id":        entitytest.InstrumentRCUR,
		"contribution_status_id":       entitytest.ContributionInProgress,
		"next_sched_contribution_date": "2026-12-01 00:00:00",
	})
	f.host.Seed(entity.SepaMandate, entity.Record{
		"contact_id":   f.contact,
		"type":         "RCUR",
		"status":       "RCUR",
		"entity_table": MandateTable,
		"entity_id":    id,
		"reference":    reference,
		"iban":         "DE89370400440532013000",
		"creditor_id":  int64(1),
	})
	return id
}

func (f *fixture) contract(paymentID int64) int64 {
	return f.host.SeedStored(entity.Membership, entity.Record{
		"contact_id": f.contact,
		"status_id":  entitytest.StatusCurrent,
		fieldmap.MembershipRecurringContribution: paymentID,
	})
}

func (f *fixture) pendingChange(contractID, paymentID int64, status string) {
	f.host.SeedStored(entity.Activity, entity.Record{
		"activity_type_id": entitytest.TypeContractUpdated,
		"status_id":        status,
		"source_record_id": contractID,
		fieldmap.ChangeRecurringContribution: paymentID,
	})
}

func TestIsAssignable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.payment(entitytest.ContributionPending)
	a := f.contract(p)
	b := f.contract(0)

	ok, err := f.svc.IsAssignable(ctx, p, a)
	require.NoError(t, err)
	assert.True(t, ok, "a contract may keep its own payment")

	ok, err = f.svc.IsAssignable(ctx, p, b)
	require.NoError(t, err)
	assert.False(t, ok, "payment is active on another contract")
}

func TestIsAssignablePendingChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.payment(entitytest.ContributionPending)
	a := f.contract(0)
	b := f.contract(0)

	f.pendingChange(a, p, entitytest.ActivityNeedsReview)

	ok, err := f.svc.IsAssignable(ctx, p, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsAssignable(ctx, p, b)
	require.NoError(t, err)
	assert.False(t, ok)

	completed := f.payment(entitytest.ContributionPending)
	f.pendingChange(a, completed, entitytest.ActivityCompleted)
	ok, err = f.svc.IsAssignable(ctx, completed, b)
	require.NoError(t, err)
	assert.True(t, ok, "completed changes no longer hold the payment")
}

func TestListForContact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	free := f.payment(entitytest.ContributionPending)
	sepaID := f.sepaPayment("REF-2")
	f.payment(entitytest.ContributionCompleted)
	used := f.payment(entitytest.ContributionInProgress)
	mine := f.payment(entitytest.ContributionPending)
	reserved := f.payment(entitytest.ContributionPending)

	other := f.contract(used)
	current := f.contract(mine)
	f.pendingChange(other, reserved, entitytest.ActivityScheduled)

	all, err := f.svc.ListForContact(ctx, f.contact, false, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{free, sepaID, used, mine, reserved}, ids(all))

	filtered, err := f.svc.ListForContact(ctx, f.contact, true, current)
	require.NoError(t, err)
	assert.Equal(t, []int64{free, sepaID, mine}, ids(filtered))
	assert.Equal(t, "SEPA, 5.00 Every 3 months (REF-2)", filtered[1].Label)
	assert.Equal(t, "2026-12-01", filtered[1].Fields.NextDebit)
}

func TestListForContactUsesRequestCache(t *testing.T) {
	f := newFixture(t)
	f.payment(entitytest.ContributionPending)
	ctx := WithRequestCache(context.Background())

	first, err := f.svc.ListForContact(ctx, f.contact, true, 0)
	require.NoError(t, err)
	before := len(f.host.Calls())

	f.payment(entitytest.ContributionPending)
	second, err := f.svc.ListForContact(ctx, f.contact, true, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, before, len(f.host.Calls()), "cached listing must not hit the gateway")

	fresh, err := f.svc.ListForContact(WithRequestCache(context.Background()), f.contact, true, 0)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sepaID := f.sepaPayment("REF-9")

	got, err := f.svc.Current(ctx, f.contact, sepaID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SEPA Direct Debit", got.Fields.PaymentInstrument)
	assert.Equal(t, "Example e.V.", got.Fields.CreditorName)

	none, err := f.svc.Current(ctx, f.contact, 0)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.svc.Current(ctx, f.contact, 999)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCycleDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.payment(entitytest.ContributionPending)

	day, err := f.svc.CycleDay(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, int64(15), day)

	day, err = f.svc.CycleDay(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, day)
}

func TestInstruments(t *testing.T) {
	f := newFixture(t)
	in, err := f.svc.Instruments(context.Background())
	require.NoError(t, err)
	assert.True(t, in.IsSEPA(entitytest.InstrumentRCUR))
	assert.True(t, in.IsSEPA(entitytest.InstrumentFRST))
	assert.False(t, in.IsSEPA(entitytest.InstrumentCash))
	assert.Equal(t, "Cash", in.Labels[entitytest.InstrumentCash])
}

func ids(list []Rendered) []int64 {
	out := make([]int64, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}
