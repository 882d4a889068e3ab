package repository

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
	"github.com/ManuelReschke/contracts/internal/pkg/options"
)

// Provision creates the option values, membership statuses and custom
// fields the contract service needs, skipping those that already exist. It
// returns the number of created records.
func Provision(ctx context.Context, gw entity.Gateway) (int, error) {
	created := 0
	ensure := func(typ entity.Type, filter entity.Filter, rec entity.Record) error {
		n, err := gw.Count(ctx, typ, filter)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", typ, err)
		}
		if n > 0 {
			return nil
		}
		if _, err := gw.Create(ctx, typ, rec); err != nil {
			return fmt.Errorf("failed to create %s: %w", typ, err)
		}
		created++
		return nil
	}

	for i, o := range options.Defaults {
		err := ensure(entity.OptionValue, entity.Where("option_group_id", o.Group).Eq("name", o.Name), entity.Record{
			"option_group_id": o.Group,
			"name":            o.Name,
			"value":           o.Value,
			"label":           o.Label,
			"weight":          int64(i + 1),
		})
		if err != nil {
			return created, err
		}
	}
	for _, st := range options.DefaultStatuses {
		err := ensure(entity.MembershipStatus, entity.Where("name", st.Name), entity.Record{"id": st.ID, "name": st.Name})
		if err != nil {
			return created, err
		}
	}
	for _, d := range fieldmap.Definitions {
		err := ensure(entity.CustomField, entity.Where("custom_group_id", d.Group).Eq("name", d.Name), entity.Record{
			"custom_group_id": d.Group,
			"name":            d.Name,
			"label":           d.Label,
			"data_type":       d.DataType,
		})
		if err != nil {
			return created, err
		}
	}

	if created > 0 {
		log.Infof("[Provision] Created %d configuration records", created)
	}
	return created, nil
}
