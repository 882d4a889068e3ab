// Package change implements contract changes: tracked modifications of a
// membership that are stored as activities on the host.
package change

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuelReschke/contracts/internal/pkg/apperror"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

// Type enumerates the contract change kinds.
type Type int

const (
	Update Type = iota + 1
	Cancel
	Pause
	Resume
	Revive
)

// Types lists every change type.
var Types = []Type{Update, Cancel, Pause, Resume, Revive}

type typeInfo struct {
	activityType string
	action       string
	title        string
	variant      Variant
}

var typeTable = map[Type]typeInfo{
	Update: {"Contract_Updated", "update", "Update Contract", updateVariant{}},
	Cancel: {"Contract_Cancelled", "cancel", "Cancel Contract", cancelVariant{}},
	Pause:  {"Contract_Paused", "pause", "Pause Contract", pauseVariant{}},
	Resume: {"Contract_Resumed", "resume", "Resume Contract", resumeVariant{}},
	Revive: {"Contract_Revived", "revive", "Revive Contract", reviveVariant{}},
}

// ActivityType is the name of the activity type recording the change.
func (t Type) ActivityType() string { return typeTable[t].activityType }

// Action is the keyword used to request the change.
func (t Type) Action() string { return typeTable[t].action }

// Title is the human readable name of the change.
func (t Type) Title() string { return typeTable[t].title }

// Variant returns the behaviour of the change type.
func (t Type) Variant() Variant { return typeTable[t].variant }

func (t Type) String() string {
	if a := t.Action(); a != "" {
		return a
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is one of Types.
func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// ParseAction returns the type requested by an action keyword.
func ParseAction(action string) (Type, bool) {
	action = strings.ToLower(strings.TrimSpace(action))
	for _, t := range Types {
		if t.Action() == action {
			return t, true
		}
	}
	return 0, false
}

// Registry resolves discriminators (activity type names, action keywords
// or activity type ids) to change types. The id table is read from the
// activity_type option group on first use.
type Registry struct {
	opts *options.Lookup

	mu     sync.RWMutex
	loaded bool
	byID   map[string]Type
	toID   map[Type]string
}

// NewRegistry creates a registry that reads activity type ids through opts.
func NewRegistry(opts *options.Lookup) *Registry {
	return &Registry{opts: opts}
}

// Resolve looks up discriminator as activity type name, then as action
// keyword, then as activity type id.
func (r *Registry) Resolve(ctx context.Context, discriminator string) (Type, error) {
	d := strings.TrimSpace(discriminator)
	for _, t := range Types {
		if t.ActivityType() == d {
			return t, nil
		}
	}
	for _, t := range Types {
		if t.Action() == d {
			return t, nil
		}
	}

	if err := r.load(ctx); err != nil {
		return 0, err
	}
	r.mu.RLock()
	t, ok := r.byID[d]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	return 0, apperror.Validation("activity_type_id", "Activity type '%s' is not a valid contract change type: no such change type.", discriminator)
}

// ActivityTypeID returns the host's activity type id of t.
func (r *Registry) ActivityTypeID(ctx context.Context, t Type) (string, error) {
	if err := r.load(ctx); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.toID[t]
	if !ok {
		return "", apperror.Validation("activity_type_id", "Activity type '%s' is not configured.", t.ActivityType())
	}
	return id, nil
}

// ActivityTypeIDs returns the ids of all configured change types.
func (r *Registry) ActivityTypeIDs(ctx context.Context) ([]string, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.toID))
	for _, t := range Types {
		if id, ok := r.toID[t]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *Registry) load(ctx context.Context) error {
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
	opts, err := r.opts.Options(ctx, options.GroupActivityType)
	if err != nil {
		return fmt.Errorf("failed to load change activity types: %w", err)
	}
	r.byID = make(map[string]Type)
	r.toID = make(map[Type]string)
	for _, o := range opts {
		for _, t := range Types {
			if o.Name == t.ActivityType() {
				r.byID[o.Value] = t
				r.toID[t] = o.Value
			}
		}
	}
	r.loaded = true
	return nil
}
