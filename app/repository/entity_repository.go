package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/json-iterator/go/extra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/ManuelReschke/contracts/app/models"
	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/fieldmap"
)

func init() {
	// Records carry option values as strings and ids as numbers.
	extra.RegisterFuzzyDecoders()
}

var recordJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// entityRepository implements EntityRepository on gorm. Custom field values
// live in civicrm_custom_value and appear on records as "custom_<id>".
type entityRepository struct {
	db *gorm.DB
}

// NewEntityRepository creates the self-hosted entity store.
func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &entityRepository{db: db}
}

type table struct {
	typ    entity.Type
	model  any
	schema *schema.Schema
}

func (r *entityRepository) table(typ entity.Type) (*table, error) {
	model, ok := models.ForType(typ)
	if !ok {
		return nil, fmt.Errorf("unsupported entity type %s", typ)
	}
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model of %s: %w", typ, err)
	}
	return &table{typ: typ, model: model, schema: stmt.Schema}, nil
}

func (t *table) column(name string) (string, error) {
	f := t.schema.LookUpField(name)
	if f == nil || f.DBName == "" {
		return "", fmt.Errorf("unknown field %q of %s", name, t.typ)
	}
	return f.DBName, nil
}

// split separates columns from custom values. Nil values are dropped.
func (t *table) split(fields entity.Record) (map[string]any, map[int64]string, error) {
	base := make(map[string]any, len(fields))
	custom := make(map[int64]string)
	for k, v := range fields {
		if fieldID, ok := fieldmap.StorageKeyID(k); ok {
			custom[fieldID] = entity.ToString(v)
			continue
		}
		col, err := t.column(k)
		if err != nil {
			return nil, nil, err
		}
		if v != nil {
			base[col] = v
		}
	}
	return base, custom, nil
}

func (r *entityRepository) Get(ctx context.Context, typ entity.Type, id int64) (entity.Record, error) {
	recs, err := r.Find(ctx, typ, entity.Where("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, entity.NotFound(typ, id)
	}
	return recs[0], nil
}

func (r *entityRepository) Find(ctx context.Context, typ entity.Type, filter entity.Filter) ([]entity.Record, error) {
	t, err := r.table(typ)
	if err != nil {
		return nil, err
	}
	q, err := r.where(r.db.WithContext(ctx).Model(t.model), t, filter)
	if err != nil {
		return nil, err
	}
	order, err := t.order(filter.Sort)
	if err != nil {
		return nil, err
	}
	q = q.Order(order)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", typ, err)
	}

	recs := make([]entity.Record, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	byID := make(map[int64]entity.Record, len(rows))
	for _, row := range rows {
		rec := entity.Record(row)
		for _, f := range t.schema.Fields {
			if f.Tag.Get("json") == "-" {
				delete(rec, f.DBName)
			}
		}
		recs = append(recs, rec)
		ids = append(ids, rec.ID())
		byID[rec.ID()] = rec
	}
	if err := r.attachCustom(ctx, t, ids, byID); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *entityRepository) attachCustom(ctx context.Context, t *table, ids []int64, byID map[int64]entity.Record) error {
	if len(ids) == 0 {
		return nil
	}
	var values []models.CustomValue
	err := r.db.WithContext(ctx).
		Where("entity_table = ? AND entity_id IN ?", t.schema.Table, ids).
		Find(&values).Error
	if err != nil {
		return fmt.Errorf("failed to load custom values of %s: %w", t.typ, err)
	}
	for _, v := range values {
		if rec, ok := byID[v.EntityID]; ok {
			rec[fmt.Sprintf("custom_%d", v.CustomFieldID)] = v.Value
		}
	}
	return nil
}

func (r *entityRepository) where(q *gorm.DB, t *table, filter entity.Filter) (*gorm.DB, error) {
	for _, c := range filter.Conditions {
		if fieldID, ok := fieldmap.StorageKeyID(c.Field); ok {
			sub := r.db.Model(&models.CustomValue{}).Select("entity_id").
				Where("entity_table = ? AND custom_field_id = ?", t.schema.Table, fieldID)
			switch c.Op {
			case entity.OpEq:
				sub = sub.Where("value = ?", entity.ToString(c.Value))
			case entity.OpNotEq:
				sub = sub.Where("value <> ?", entity.ToString(c.Value))
			case entity.OpIn:
				values := customOperands(c.Values())
				if len(values) == 0 {
					return q.Where("1 = 0"), nil
				}
				sub = sub.Where("value IN ?", values)
			default:
				return nil, fmt.Errorf("unsupported operator %q", c.Op)
			}
			q = q.Where("id IN (?)", sub)
			continue
		}

		col, err := t.column(c.Field)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case entity.OpEq:
			q = q.Where(col+" = ?", c.Value)
		case entity.OpNotEq:
			q = q.Where(col+" <> ?", c.Value)
		case entity.OpIn:
			values := c.Values()
			if len(values) == 0 {
				return q.Where("1 = 0"), nil
			}
			q = q.Where(col+" IN ?", values)
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	return q, nil
}

func customOperands(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = entity.ToString(v)
	}
	return out
}

func (t *table) order(sort string) (string, error) {
	parts := strings.Fields(sort)
	if len(parts) == 0 {
		return "id", nil
	}
	col, err := t.column(parts[0])
	if err != nil {
		return "", err
	}
	if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
		return col + " DESC, id DESC", nil
	}
	return col + ", id", nil
}

func (r *entityRepository) Create(ctx context.Context, typ entity.Type, fields entity.Record) (int64, error) {
	t, err := r.table(typ)
	if err != nil {
		return 0, err
	}
	base, custom, err := t.split(fields)
	if err != nil {
		return 0, err
	}
	data, err := recordJSON.Marshal(base)
	if err != nil {
		return 0, err
	}
	if err := recordJSON.Unmarshal(data, t.model); err != nil {
		return 0, fmt.Errorf("invalid %s record: %w", typ, err)
	}

	var id int64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t.model).Error; err != nil {
			return err
		}
		pk, _ := t.schema.PrioritizedPrimaryField.ValueOf(ctx, reflect.Indirect(reflect.ValueOf(t.model)))
		id, _ = entity.ToInt64(pk)
		return saveCustom(tx, t, id, custom)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", typ, err)
	}
	return id, nil
}

func (r *entityRepository) Update(ctx context.Context, typ entity.Type, id int64, fields entity.Record) error {
	t, err := r.table(typ)
	if err != nil {
		return err
	}
	base, custom, err := t.split(fields)
	if err != nil {
		return err
	}
	delete(base, "id")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(t.model).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return entity.NotFound(typ, id)
		}
		if len(base) > 0 {
			if err := tx.Model(t.model).Where("id = ?", id).Updates(base).Error; err != nil {
				return fmt.Errorf("failed to update %s [%d]: %w", typ, id, err)
			}
		}
		return saveCustom(tx, t, id, custom)
	})
}

func saveCustom(tx *gorm.DB, t *table, id int64, custom map[int64]string) error {
	if len(custom) == 0 {
		return nil
	}
	values := make([]models.CustomValue, 0, len(custom))
	for fieldID, v := range custom {
		values = append(values, models.CustomValue{
			EntityTable:   t.schema.Table,
			EntityID:      id,
			CustomFieldID: fieldID,
			Value:         v,
		})
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_table"}, {Name: "entity_id"}, {Name: "custom_field_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&values).Error
	if err != nil {
		return fmt.Errorf("failed to store custom values of %s [%d]: %w", t.typ, id, err)
	}
	return nil
}

func (r *entityRepository) Count(ctx context.Context, typ entity.Type, filter entity.Filter) (int64, error) {
	t, err := r.table(typ)
	if err != nil {
		return 0, err
	}
	q, err := r.where(r.db.WithContext(ctx).Model(t.model), t, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", typ, err)
	}
	return n, nil
}

// Transaction runs fn against a gateway bound to one database transaction.
func (r *entityRepository) Transaction(ctx context.Context, fn func(gw entity.Gateway) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&entityRepository{db: tx})
	})
}
