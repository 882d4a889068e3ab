package fieldmap_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/entity/entitytest"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
)

func semanticNames() []any {
	out := make([]any, 0, len(fieldmap.Definitions))
	for _, d := range fieldmap.Definitions {
		out = append(out, d.SemanticName())
	}
	return out
}

// Property: Label(Resolve(name)) == name for every known name.
func TestResolveLabelRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := fieldmap.New(entitytest.NewHost())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("label of resolve is the identity on known names", prop.ForAll(
		func(name string) bool {
			key, err := r.Resolve(ctx, name)
			if err != nil {
				return false
			}
			if _, ok := fieldmap.StorageKeyID(key); !ok {
				return false
			}
			back, err := r.Label(ctx, key)
			return err == nil && back == name
		},
		gen.OneConstOf(semanticNames()...),
	))

	properties.Property("unknown names pass through unchanged", prop.ForAll(
		func(name string) bool {
			key, err := r.Resolve(ctx, name)
			return err == nil && key == name
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// Property: ResolveRecord is idempotent and LabelRecord undoes it.
func TestResolveRecordIdempotent(t *testing.T) {
	ctx := context.Background()
	r := fieldmap.New(entitytest.NewHost())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve twice equals resolve once", prop.ForAll(
		func(picks []int, plain string, value string) bool {
			rec := entity.Record{}
			for _, i := range picks {
				rec[fieldmap.Definitions[i].SemanticName()] = value
			}
			if plain != "" {
				rec[plain] = value
			}

			once, err := r.ResolveRecord(ctx, rec)
			if err != nil {
				return false
			}
			twice, err := r.ResolveRecord(ctx, once)
			if err != nil || len(once) != len(twice) {
				return false
			}
			for k, v := range once {
				if twice[k] != v {
					return false
				}
			}

			labelled, err := r.LabelRecord(ctx, once)
			if err != nil || len(labelled) != len(rec) {
				return false
			}
			for k, v := range rec {
				if labelled[k] != v {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(fieldmap.Definitions)-1)),
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
