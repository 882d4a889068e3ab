package entitytest

import (
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

// Option values seeded by NewHost from options.Defaults.
const (
	ActivityScheduled   = "1"
	ActivityCompleted   = "2"
	ActivityCancelled   = "3"
	ActivityNeedsReview = "10"

	ContributionCompleted  = "1"
	ContributionPending    = "2"
	ContributionCancelled  = "3"
	ContributionInProgress = "5"

	InstrumentCreditCard = "1"
	InstrumentCash       = "3"
	InstrumentFRST       = "6"
	InstrumentOOFF       = "7"
	InstrumentRCUR       = "8"

	TypeContractUpdated   = "51"
	TypeContractCancelled = "52"
	TypeContractPaused    = "53"
	TypeContractResumed   = "54"
	TypeContractRevived   = "55"
	TypeContractSigned    = "56"
)

// Membership status ids seeded by NewHost.
const (
	StatusNew       int64 = 1
	StatusCurrent   int64 = 2
	StatusGrace     int64 = 3
	StatusExpired   int64 = 4
	StatusPending   int64 = 5
	StatusCancelled int64 = 6
	StatusDeceased  int64 = 7
	StatusPaused    int64 = 8
)

// Host is a gateway preloaded with the configuration of a CRM running the
// contract extension: option groups, membership statuses and custom fields.
type Host struct {
	*Gateway
	// Fields maps semantic field names to custom field ids.
	Fields map[string]int64
}

// NewHost returns a seeded Host.
func NewHost() *Host {
	h := &Host{Gateway: New(), Fields: make(map[string]int64)}
	for i, o := range options.Defaults {
		h.Seed(entity.OptionValue, entity.Record{
			"option_group_id": o.Group,
			"name":            o.Name,
			"value":           o.Value,
			"label":           o.Label,
			"weight":          int64(i + 1),
		})
	}
	for _, st := range options.DefaultStatuses {
		h.Seed(entity.MembershipStatus, entity.Record{"id": st.ID, "name": st.Name})
	}
	for _, d := range fieldmap.Definitions {
		id := h.Seed(entity.CustomField, entity.Record{
			"custom_group_id": d.Group,
			"name":            d.Name,
			"label":           d.Label,
			"data_type":       d.DataType,
		})
		h.Fields[d.SemanticName()] = id
	}
	return h
}

// Key returns the storage key of a semantic field name; it panics on
// unknown names.
func (h *Host) Key(name string) string {
	id, ok := h.Fields[name]
	if !ok {
		panic("entitytest: unknown custom field " + name)
	}
	return Key(id)
}

// Stored rewrites the semantic names in rec into storage keys.
func (h *Host) Stored(rec entity.Record) entity.Record {
	out := make(entity.Record, len(rec))
	for k, v := range rec {
		if _, ok := h.Fields[k]; ok {
			out[h.Key(k)] = v
			continue
		}
		out[k] = v
	}
	return out
}

// SeedStored seeds rec after rewriting semantic names into storage keys.
func (h *Host) SeedStored(typ entity.Type, rec entity.Record) int64 {
	return h.Seed(typ, h.Stored(rec))
}
