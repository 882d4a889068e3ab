package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
	"github.com/ManuelReschke/contracts/internal/pkg/sepa"
)

// Contribution statuses a recurring contribution must have to be offered.
var EligibleStatuses = []string{"Pending", "In Progress"}

// Change statuses that still hold on to a recurring contribution.
var PendingChangeStatuses = []string{"Scheduled", "Needs Review"}

const listLimit = 1000

// Service reads recurring contributions through the entity gateway.
type Service struct {
	gw     entity.Gateway
	fields *fieldmap.Resolver
	opts   *options.Lookup
}

// NewService creates a payment service.
func NewService(gw entity.Gateway, fields *fieldmap.Resolver, opts *options.Lookup) *Service {
	return &Service{gw: gw, fields: fields, opts: opts}
}

// WithGateway returns a copy of s that reads through gw, e.g. a transaction.
func (s *Service) WithGateway(gw entity.Gateway) *Service {
	cp := *s
	cp.gw = gw
	return &cp
}

// Instruments loads the payment instrument labels and the SEPA subset.
func (s *Service) Instruments(ctx context.Context) (Instruments, error) {
	opts, err := s.opts.Options(ctx, options.GroupPaymentInstrument)
	if err != nil {
		return Instruments{}, err
	}
	in := Instruments{Labels: make(map[string]string, len(opts)), SEPA: make(map[string]bool)}
	for _, o := range opts {
		in.Labels[o.Value] = o.Label
		for _, name := range sepa.PaymentInstruments {
			if o.Name == name {
				in.SEPA[o.Value] = true
			}
		}
	}
	return in, nil
}

// CycleDay returns the collection day of a recurring contribution, or 0 when
// it does not exist or has none.
func (s *Service) CycleDay(ctx context.Context, paymentID int64) (int64, error) {
	if paymentID == 0 {
		return 0, nil
	}
	rec, err := s.gw.Get(ctx, entity.ContributionRecur, paymentID)
	if errors.Is(err, entity.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Int64("cycle_day"), nil
}

// Current renders the recurring contribution a contract points at. It
// returns nil when either id is missing.
func (s *Service) Current(ctx context.Context, contactID, paymentID int64) (*Rendered, error) {
	if contactID == 0 || paymentID == 0 {
		return nil, nil
	}
	contact, err := s.gw.Get(ctx, entity.Contact, contactID)
	if err != nil {
		return nil, notFound("Contact", contactID, err)
	}
	rec, err := s.gw.Get(ctx, entity.ContributionRecur, paymentID)
	if err != nil {
		return nil, notFound("Recurring contribution", paymentID, err)
	}
	creditors, err := s.gw.Find(ctx, entity.SepaCreditor, entity.Filter{})
	if err != nil {
		return nil, err
	}
	mandates, err := s.gw.Find(ctx, entity.SepaMandate, entity.Where("contact_id", contactID).
		Eq("type", sepa.MandateRecurring).
		Eq("entity_table", MandateTable).
		Eq("entity_id", paymentID))
	if err != nil {
		return nil, err
	}
	instruments, err := s.Instruments(ctx)
	if err != nil {
		return nil, err
	}
	out, err := Render(rec, contact, mandates, creditors, instruments)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Mandate returns the SEPA mandate attached to a recurring contribution, or
// nil when there is none.
func (s *Service) Mandate(ctx context.Context, paymentID int64) (entity.Record, error) {
	recs, err := s.gw.Find(ctx, entity.SepaMandate, entity.Where("entity_table", MandateTable).
		Eq("entity_id", paymentID).
		WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// IsAssignable reports whether paymentID may become the active payment of
// contractID: no other contract uses it and no other contract has a pending
// change pointing at it.
func (s *Service) IsAssignable(ctx context.Context, paymentID, contractID int64) (bool, error) {
	used, err := s.count(ctx, entity.Membership, entity.
		Where(fieldmap.MembershipRecurringContribution, paymentID).
		NotEq("id", contractID))
	if err != nil {
		return false, err
	}
	if used > 0 {
		return false, nil
	}

	statuses, err := s.opts.Values(ctx, options.GroupActivityStatus, PendingChangeStatuses...)
	if err != nil {
		return false, err
	}
	pending, err := s.count(ctx, entity.Activity, entity.Filter{}.
		In("status_id", entity.Strings(statuses)...).
		Eq(fieldmap.ChangeRecurringContribution, paymentID).
		NotEq("source_record_id", contractID))
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// count counts records matching a filter written with semantic field names.
func (s *Service) count(ctx context.Context, typ entity.Type, filter entity.Filter) (int64, error) {
	resolved, err := s.fields.ResolveFilter(ctx, filter)
	if err != nil {
		return 0, err
	}
	return s.gw.Count(ctx, typ, resolved)
}

// ListForContact renders the contact's eligible recurring contributions
// ordered by id. With excludeUsed, contributions that are or will be used by
// a contract other than contractID are left out. Results are memoized in the
// request cache of ctx, if any.
func (s *Service) ListForContact(ctx context.Context, contactID int64, excludeUsed bool, contractID int64) ([]Rendered, error) {
	cache := cacheFrom(ctx)
	key := fmt.Sprintf("%d-%s-%d", contactID, strconv.FormatBool(excludeUsed), contractID)
	if cached, ok := cache.get(key); ok {
		return cached, nil
	}

	list, err := s.listForContact(ctx, contactID, excludeUsed, contractID)
	if err != nil {
		return nil, err
	}
	cache.put(key, list)
	return clone(list), nil
}

func (s *Service) listForContact(ctx context.Context, contactID int64, excludeUsed bool, contractID int64) ([]Rendered, error) {
	contact, err := s.gw.Get(ctx, entity.Contact, contactID)
	if err != nil {
		return nil, notFound("Contact", contactID, err)
	}
	statuses, err := s.opts.Values(ctx, options.GroupContributionStatus, EligibleStatuses...)
	if err != nil {
		return nil, err
	}
	recs, err := s.gw.Find(ctx, entity.ContributionRecur, entity.Where("contact_id", contactID).
		In("contribution_status_id", entity.Strings(statuses)...).
		OrderBy("id").
		WithLimit(listLimit))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []Rendered{}, nil
	}

	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID())
	}
	mandates, err := s.gw.Find(ctx, entity.SepaMandate, entity.Where("contact_id", contactID).
		Eq("type", sepa.MandateRecurring).
		Eq("entity_table", MandateTable).
		In("entity_id", entity.Int64s(ids)...))
	if err != nil {
		return nil, err
	}
	creditors, err := s.gw.Find(ctx, entity.SepaCreditor, entity.Filter{})
	if err != nil {
		return nil, err
	}
	instruments, err := s.Instruments(ctx)
	if err != nil {
		return nil, err
	}

	excluded := map[int64]bool{}
	if excludeUsed {
		if excluded, err = s.usedElsewhere(ctx, ids, contractID); err != nil {
			return nil, err
		}
	}

	out := make([]Rendered, 0, len(recs))
	for _, r := range recs {
		if excluded[r.ID()] {
			continue
		}
		rendered, err := Render(r, contact, mandates, creditors, instruments)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

// usedElsewhere returns the ids among paymentIDs that another contract than
// contractID references, either directly or through a pending change.
func (s *Service) usedElsewhere(ctx context.Context, paymentIDs []int64, contractID int64) (map[int64]bool, error) {
	used := map[int64]bool{}
	rcKey, err := s.fields.Key(ctx, fieldmap.MembershipRecurringContribution)
	if err != nil {
		return nil, err
	}
	contracts, err := s.gw.Find(ctx, entity.Membership, entity.Filter{}.In(rcKey, entity.Int64s(paymentIDs)...))
	if err != nil {
		return nil, err
	}
	for _, c := range contracts {
		if c.ID() != contractID {
			used[c.Int64(rcKey)] = true
		}
	}

	updKey, err := s.fields.Key(ctx, fieldmap.ChangeRecurringContribution)
	if err != nil {
		return nil, err
	}
	statuses, err := s.opts.Values(ctx, options.GroupActivityStatus, PendingChangeStatuses...)
	if err != nil {
		return nil, err
	}
	changes, err := s.gw.Find(ctx, entity.Activity, entity.Filter{}.
		In("status_id", entity.Strings(statuses)...).
		In(updKey, entity.Int64s(paymentIDs)...))
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		if ch.Int64("source_record_id") != contractID {
			used[ch.Int64(updKey)] = true
		}
	}
	return used, nil
}

func notFound(what string, id int64, err error) error {
	if errors.Is(err, entity.ErrNotFound) {
		return apperror.NotFound(what, id, err)
	}
	return err
}

func clone(list []Rendered) []Rendered {
	out := make([]Rendered, len(list))
	copy(out, list)
	return out
}

// RequestCache memoizes listings for one top-level operation.
type RequestCache struct {
	mu    sync.Mutex
	lists map[string][]Rendered
}

type cacheKey struct{}

// WithRequestCache returns ctx carrying a fresh request cache.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, &RequestCache{lists: make(map[string][]Rendered)})
}

func cacheFrom(ctx context.Context) *RequestCache {
	c, _ := ctx.Value(cacheKey{}).(*RequestCache)
	return c
}

func (c *RequestCache) get(key string) ([]Rendered, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.lists[key]
	if !ok {
		return nil, false
	}
	return clone(list), true
}

func (c *RequestCache) put(key string, list []Rendered) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = clone(list)
}
