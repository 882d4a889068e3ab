package change

import (
	"context"
	"errors"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
	"github.com/ManuelReschke/contracts/internal/pkg/payment"
)

// Activity statuses of a change record.
const (
	ActivityScheduled   = "Scheduled"
	ActivityCompleted   = "Completed"
	ActivityNeedsReview = "Needs Review"
	ActivityCancelled   = "Cancelled"
)

// Variant is the behaviour specific to one change type.
type Variant interface {
	Type() Type
	// RequiredFields are semantic field names that must be present.
	RequiredFields() []string
	StartStatuses() []string
	EndStatus() string
	// Apply computes the new contract state and writes it through
	// Change.UpdateContract.
	Apply(ctx context.Context, c *Change) error
}

// Deps bundles the collaborators a change reads and writes through.
type Deps struct {
	Gateway  entity.Gateway
	Fields   *fieldmap.Resolver
	Options  *options.Lookup
	Payments *payment.Service
	Registry *Registry
	// CreditorID selects the SEPA creditor for new mandates; 0 picks the
	// first creditor.
	CreditorID int64
	Now        func() time.Time
}

// NewDeps wires the default collaborators around gw.
func NewDeps(gw entity.Gateway) *Deps {
	fields := fieldmap.New(gw)
	opts := options.New(gw)
	return &Deps{
		Gateway:  gw,
		Fields:   fields,
		Options:  opts,
		Payments: payment.NewService(gw, fields, opts),
		Registry: NewRegistry(opts),
		Now:      time.Now,
	}
}

// WithGateway returns a copy of d that writes through gw. Lookups keep
// their own gateway.
func (d *Deps) WithGateway(gw entity.Gateway) *Deps {
	cp := *d
	cp.Gateway = gw
	cp.Payments = d.Payments.WithGateway(gw)
	return &cp
}

func (d *Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Warm loads the process-wide lookups so that no lookup query runs inside a
// transaction.
func (d *Deps) Warm(ctx context.Context) error {
	if err := d.Fields.Load(ctx); err != nil {
		return err
	}
	if _, err := d.Options.Statuses(ctx); err != nil {
		return err
	}
	for _, group := range []string{
		options.GroupActivityStatus,
		options.GroupContributionStatus,
		options.GroupPaymentInstrument,
	} {
		if _, err := d.Options.Options(ctx, group); err != nil {
			return err
		}
	}
	return d.Registry.load(ctx)
}

// Change is one contract change backed by an activity record. Data is kept
// with semantic field names; storage keys are only used on the wire.
type Change struct {
	variant Variant
	deps    *Deps
	data    entity.Record

	contract        entity.Record
	contractWritten bool
}

// New creates a change of type t on data.
func New(deps *Deps, t Type, data entity.Record) *Change {
	if data == nil {
		data = entity.Record{}
	}
	return &Change{variant: t.Variant(), deps: deps, data: data.Clone()}
}

// ForData builds the change an activity record describes. The record may
// carry storage keys; they are labelled first.
func ForData(ctx context.Context, deps *Deps, data entity.Record) (*Change, error) {
	if !data.Has("activity_type_id") {
		return nil, apperror.Validation("activity_type_id", "No activity_type_id given.")
	}
	t, err := deps.Registry.Resolve(ctx, data.String("activity_type_id"))
	if err != nil {
		return nil, err
	}
	labelled, err := deps.Fields.LabelRecord(ctx, data)
	if err != nil {
		return nil, err
	}
	return New(deps, t, labelled), nil
}

// Type returns the change type.
func (c *Change) Type() Type {
	return c.variant.Type()
}

// Data returns a copy of the change record.
func (c *Change) Data() entity.Record {
	return c.data.Clone()
}

// Get returns one field of the change record.
func (c *Change) Get(key string) any {
	return c.data[key]
}

// Set assigns one field of the change record.
func (c *Change) Set(key string, value any) {
	c.data[key] = value
}

// ID returns the activity id, 0 while the change is new.
func (c *Change) ID() int64 {
	return c.data.ID()
}

// IsNew reports whether the change has not been saved yet.
func (c *Change) IsNew() bool {
	return c.data.ID() == 0
}

// ContractID returns the id of the contract the change applies to.
func (c *Change) ContractID() int64 {
	return c.data.Int64("source_record_id")
}

// Date returns the date the change takes effect; now if unset.
func (c *Change) Date() time.Time {
	if t, ok := entity.ParseTime(c.data["activity_date_time"]); ok {
		return t
	}
	return c.deps.now()
}

// VerifyData checks that every required field is present.
func (c *Change) VerifyData() error {
	for _, field := range c.variant.RequiredFields() {
		if !c.data.Has(field) {
			return apperror.MissingField(field)
		}
	}
	return nil
}

// GetContract returns the contract with semantic field names. The record is
// cached until the next UpdateContract or a change of ContractID.
func (c *Change) GetContract(ctx context.Context) (entity.Record, error) {
	id := c.ContractID()
	if c.contract != nil && c.contract.ID() == id {
		return c.contract, nil
	}
	rec, err := c.deps.Gateway.Get(ctx, entity.Membership, id)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, apperror.NotFound("Contract", id, err)
	}
	if err != nil {
		return nil, err
	}
	labelled, err := c.deps.Fields.LabelRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.contract = labelled
	return c.contract, nil
}

// ContractStatus returns the status name of the contract.
func (c *Change) ContractStatus(ctx context.Context) (string, error) {
	contract, err := c.GetContract(ctx)
	if err != nil {
		return "", err
	}
	return c.deps.Options.StatusName(ctx, contract.Int64("status_id"))
}

// UpdateContract writes updates through to the contract. It is the only
// path by which a change modifies a contract.
func (c *Change) UpdateContract(ctx context.Context, updates entity.Record) error {
	id := c.ContractID()
	fields := updates.Clone()
	fields["id"] = id
	resolved, err := c.deps.Fields.ResolveRecord(ctx, fields)
	if err != nil {
		return err
	}
	delete(resolved, "id")

	err = c.deps.Gateway.Update(ctx, entity.Membership, id, resolved)
	c.contract = nil
	if errors.Is(err, entity.ErrNotFound) {
		return apperror.NotFound("Contract", id, err)
	}
	if err != nil {
		return apperror.WriteFailed("update", "Contract", id, err)
	}
	c.contractWritten = true
	return nil
}

// SetStatus sets the activity status by name.
func (c *Change) SetStatus(ctx context.Context, status string) error {
	value, err := c.deps.Options.Value(ctx, options.GroupActivityStatus, status)
	if err != nil {
		return err
	}
	c.data["status_id"] = value
	return nil
}

// Status returns the activity status name.
func (c *Change) Status(ctx context.Context) (string, error) {
	return c.deps.Options.Name(ctx, options.GroupActivityStatus, c.data.String("status_id"))
}

// Save stores the change record. The first save creates the activity and
// captures its id; later saves update it.
func (c *Change) Save(ctx context.Context) error {
	if !c.data.Has("activity_type_id") {
		typeID, err := c.deps.Registry.ActivityTypeID(ctx, c.Type())
		if err != nil {
			return err
		}
		c.data["activity_type_id"] = typeID
	}
	resolved, err := c.deps.Fields.ResolveRecord(ctx, c.data)
	if err != nil {
		return err
	}

	if c.IsNew() {
		delete(resolved, "id")
		id, err := c.deps.Gateway.Create(ctx, entity.Activity, resolved)
		if err != nil {
			return apperror.WriteFailed("create", "Change", 0, err)
		}
		c.data["id"] = id
		return nil
	}

	id := c.data.ID()
	delete(resolved, "id")
	if err := c.deps.Gateway.Update(ctx, entity.Activity, id, resolved); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return apperror.NotFound("Change", id, err)
		}
		return apperror.WriteFailed("update", "Change", id, err)
	}
	return nil
}

// Execute verifies the change, checks the contract status, applies the
// change and saves it as completed. Nothing is written when verification or
// the status check fails. When the gateway supports transactions the
// contract and the change record are written atomically.
func (c *Change) Execute(ctx context.Context) error {
	if err := c.VerifyData(); err != nil {
		return err
	}
	if err := c.deps.Warm(ctx); err != nil {
		return err
	}

	deps := c.deps
	before := c.data.Clone()
	c.contractWritten = false
	err := entity.InTransaction(ctx, deps.Gateway, func(gw entity.Gateway) error {
		c.deps = deps.WithGateway(gw)
		c.contract = nil
		return c.execute(ctx)
	})
	c.deps = deps
	c.contract = nil
	if err == nil {
		return nil
	}

	if entity.IsTransactional(deps.Gateway) {
		// The rollback discarded every write, so the record must not keep
		// the status, ids or amounts set while applying.
		c.data = before
		return err
	}
	var writeErr *apperror.ExternalWriteError
	if c.contractWritten && errors.As(err, &writeErr) && writeErr.Entity == "Change" {
		writeErr.Unaudited = true
		fiberlog.Errorf("[Change] Contract [%d] was updated by %s but the change record could not be saved: %v",
			c.ContractID(), c.Type(), writeErr.Err)
	}
	return err
}

func (c *Change) execute(ctx context.Context) error {
	status, err := c.ContractStatus(ctx)
	if err != nil {
		return err
	}
	if err := CheckTransition(status, c.Type()); err != nil {
		return err
	}
	if err := c.variant.Apply(ctx, c); err != nil {
		return err
	}
	if err := c.SetStatus(ctx, ActivityCompleted); err != nil {
		return err
	}
	return c.Save(ctx)
}

// endStatusID returns the membership status id the variant ends in.
func (c *Change) endStatusID(ctx context.Context) (int64, error) {
	return c.deps.Options.StatusID(ctx, c.variant.EndStatus())
}

// contractUpdates starts the update set of a variant with its end status.
func (c *Change) contractUpdates(ctx context.Context) (entity.Record, error) {
	statusID, err := c.endStatusID(ctx)
	if err != nil {
		return nil, err
	}
	return entity.Record{"status_id": statusID}, nil
}
