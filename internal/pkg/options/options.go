// Package options caches the host's enumerations: option groups and
// membership statuses. Both are configuration and stay stable while the
// process runs.
package options

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
)

const (
	GroupActivityType       = "activity_type"
	GroupActivityStatus     = "activity_status"
	GroupContributionStatus = "contribution_status"
	GroupPaymentInstrument  = "payment_instrument"
	GroupEncounterMedium    = "encounter_medium"
	GroupCancelReason       = "contract_cancel_reason"
)

// Option is one entry of an option group.
type Option struct {
	Value  string
	Name   string
	Label  string
	Weight int64
}

// Status is a membership status.
type Status struct {
	ID   int64
	Name string
}

// Lookup is safe for concurrent use.
type Lookup struct {
	gw entity.Gateway

	mu       sync.RWMutex
	groups   map[string][]Option
	statuses []Status
}

// New creates a lookup backed by gw.
func New(gw entity.Gateway) *Lookup {
	return &Lookup{gw: gw, groups: make(map[string][]Option)}
}

// Options returns the group's entries ordered by weight.
func (l *Lookup) Options(ctx context.Context, group string) ([]Option, error) {
	l.mu.RLock()
	opts, ok := l.groups[group]
	l.mu.RUnlock()
	if ok {
		return opts, nil
	}

	recs, err := l.gw.Find(ctx, entity.OptionValue, entity.Where("option_group_id", group))
	if err != nil {
		return nil, fmt.Errorf("failed to load option group %s: %w", group, err)
	}
	opts = make([]Option, 0, len(recs))
	for _, rec := range recs {
		opts = append(opts, Option{
			Value:  rec.String("value"),
			Name:   rec.String("name"),
			Label:  rec.String("label"),
			Weight: rec.Int64("weight"),
		})
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Weight < opts[j].Weight })

	l.mu.Lock()
	l.groups[group] = opts
	l.mu.Unlock()
	return opts, nil
}

// Value returns the stored value of the named option.
func (l *Lookup) Value(ctx context.Context, group, name string) (string, error) {
	opts, err := l.Options(ctx, group)
	if err != nil {
		return "", err
	}
	for _, o := range opts {
		if o.Name == name {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("option %q not found in group %s: %w", name, group, entity.ErrNotFound)
}

// Values resolves several names at once, failing on the first unknown name.
func (l *Lookup) Values(ctx context.Context, group string, names ...string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		v, err := l.Value(ctx, group, name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Name returns the name of the option stored as value, or "" if unknown.
func (l *Lookup) Name(ctx context.Context, group, value string) (string, error) {
	opts, err := l.Options(ctx, group)
	if err != nil {
		return "", err
	}
	for _, o := range opts {
		if o.Value == value {
			return o.Name, nil
		}
	}
	return "", nil
}

// Labels maps value to label for the whole group.
func (l *Lookup) Labels(ctx context.Context, group string) (map[string]string, error) {
	opts, err := l.Options(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		out[o.Value] = o.Label
	}
	return out, nil
}

// Statuses returns all membership statuses ordered by id.
func (l *Lookup) Statuses(ctx context.Context) ([]Status, error) {
	l.mu.RLock()
	statuses := l.statuses
	l.mu.RUnlock()
	if statuses != nil {
		return statuses, nil
	}

	recs, err := l.gw.Find(ctx, entity.MembershipStatus, entity.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load membership statuses: %w", err)
	}
	statuses = make([]Status, 0, len(recs))
	for _, rec := range recs {
		statuses = append(statuses, Status{ID: rec.ID(), Name: rec.String("name")})
	}

	l.mu.Lock()
	l.statuses = statuses
	l.mu.Unlock()
	return statuses, nil
}

// StatusName returns the name of a membership status id.
func (l *Lookup) StatusName(ctx context.Context, id int64) (string, error) {
	statuses, err := l.Statuses(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range statuses {
		if s.ID == id {
			return s.Name, nil
		}
	}
	return "", fmt.Errorf("membership status [%d]: %w", id, entity.ErrNotFound)
}

// StatusID returns the id of a membership status by (case-insensitive) name.
func (l *Lookup) StatusID(ctx context.Context, name string) (int64, error) {
	statuses, err := l.Statuses(ctx)
	if err != nil {
		return 0, err
	}
	for _, s := range statuses {
		if strings.EqualFold(s.Name, name) {
			return s.ID, nil
		}
	}
	return 0, fmt.Errorf("membership status %q: %w", name, entity.ErrNotFound)
}
