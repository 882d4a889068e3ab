// Package fieldmap translates semantic custom-field names such as
// "membership_payment.membership_recurring_contribution" to the host's
// storage keys ("custom_12") and back.
package fieldmap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
)

// Custom groups holding the contract extension's fields.
const (
	GroupMembershipPayment      = "membership_payment"
	GroupMembershipCancellation = "membership_cancellation"
	GroupContractCancellation   = "contract_cancellation"
	GroupContractUpdates        = "contract_updates"
	GroupContractPause          = "contract_pause"
)

// DefaultGroups are loaded when New is called without groups.
var DefaultGroups = []string{
	GroupMembershipPayment,
	GroupMembershipCancellation,
	GroupContractCancellation,
	GroupContractUpdates,
	GroupContractPause,
}

const storagePrefix = "custom_"

// Resolver is safe for concurrent use. The schema is assumed stable for the
// process lifetime, so the map is loaded once and kept; a failed load is
// retried on the next call.
type Resolver struct {
	gw     entity.Gateway
	groups []string

	mu     sync.RWMutex
	loaded bool
	toKey  map[string]string
	toName map[string]string
	ids    map[string]int64
}

// New creates a resolver reading field definitions through gw.
func New(gw entity.Gateway, groups ...string) *Resolver {
	if len(groups) == 0 {
		groups = DefaultGroups
	}
	return &Resolver{gw: gw, groups: groups}
}

// NewStatic creates a resolver from a fixed name→field-id table. It never
// queries a gateway.
func NewStatic(fields map[string]int64) *Resolver {
	r := &Resolver{}
	r.install(fields)
	return r
}

// Load populates the map if it has not been loaded yet.
func (r *Resolver) Load(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}

	fields := make(map[string]int64)
	for _, group := range r.groups {
		recs, err := r.gw.Find(ctx, entity.CustomField, entity.Where("custom_group_id", group))
		if err != nil {
			return fmt.Errorf("failed to load custom fields of group %s: %w", group, err)
		}
		for _, rec := range recs {
			name := rec.String("name")
			if name == "" || rec.ID() == 0 {
				continue
			}
			fields[group+"."+name] = rec.ID()
		}
	}
	r.installLocked(fields)
	fiberlog.Infof("[FieldMap] Loaded %d custom fields from %d groups", len(fields), len(r.groups))
	return nil
}

func (r *Resolver) install(fields map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installLocked(fields)
}

func (r *Resolver) installLocked(fields map[string]int64) {
	r.toKey = make(map[string]string, len(fields))
	r.toName = make(map[string]string, len(fields))
	r.ids = make(map[string]int64, len(fields))
	for name, id := range fields {
		key := storagePrefix + strconv.FormatInt(id, 10)
		r.toKey[name] = key
		r.toName[key] = name
		r.ids[name] = id
	}
	r.loaded = true
}

// Resolve maps a semantic name to its storage key. Storage keys and names
// outside the custom groups are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if err := r.Load(ctx); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key, ok := r.toKey[name]; ok {
		return key, nil
	}
	return name, nil
}

// Label maps a storage key to its semantic name. Unknown keys are returned
// unchanged.
func (r *Resolver) Label(ctx context.Context, key string) (string, error) {
	if err := r.Load(ctx); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.toName[key]; ok {
		return name, nil
	}
	return key, nil
}

// Key is the strict form of Resolve: the name must be a known custom field.
func (r *Resolver) Key(ctx context.Context, name string) (string, error) {
	id, err := r.FieldID(ctx, name)
	if err != nil {
		return "", err
	}
	return storagePrefix + strconv.FormatInt(id, 10), nil
}

// FieldID returns the numeric id of a known custom field.
func (r *Resolver) FieldID(ctx context.Context, name string) (int64, error) {
	if err := r.Load(ctx); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	if !ok {
		return 0, fmt.Errorf("custom field %q is not defined: %w", name, entity.ErrNotFound)
	}
	return id, nil
}

// ResolveRecord returns a copy of rec keyed by storage keys. When both the
// name and the key of a field are present, the value under the name wins.
func (r *Resolver) ResolveRecord(ctx context.Context, rec entity.Record) (entity.Record, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(entity.Record, len(rec))
	for k, v := range rec {
		if _, named := r.toKey[k]; !named {
			out[k] = v
		}
	}
	for k, v := range rec {
		if key, named := r.toKey[k]; named {
			out[key] = v
		}
	}
	return out, nil
}

// LabelRecord returns a copy of rec keyed by semantic names. When both the
// key and the name of a field are present, the value under the key wins.
func (r *Resolver) LabelRecord(ctx context.Context, rec entity.Record) (entity.Record, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(entity.Record, len(rec))
	for k, v := range rec {
		if _, stored := r.toName[k]; !stored {
			out[k] = v
		}
	}
	for k, v := range rec {
		if name, stored := r.toName[k]; stored {
			out[name] = v
		}
	}
	return out, nil
}

// ResolveFilter rewrites the field names of every condition.
func (r *Resolver) ResolveFilter(ctx context.Context, f entity.Filter) (entity.Filter, error) {
	out := entity.Filter{Limit: f.Limit}
	for _, c := range f.Conditions {
		key, err := r.Resolve(ctx, c.Field)
		if err != nil {
			return entity.Filter{}, err
		}
		c.Field = key
		out.Conditions = append(out.Conditions, c)
	}
	if f.Sort != "" {
		parts := strings.Fields(f.Sort)
		key, err := r.Resolve(ctx, parts[0])
		if err != nil {
			return entity.Filter{}, err
		}
		parts[0] = key
		out.Sort = strings.Join(parts, " ")
	}
	return out, nil
}

// StorageKeyID extracts the field id of a "custom_<id>" key.
func StorageKeyID(key string) (int64, bool) {
	if !strings.HasPrefix(key, storagePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, storagePrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
