package entity

// Op is a comparison operator understood by every gateway.
type Op string

const (
	OpEq    Op = "="
	OpNotEq Op = "<>"
	OpIn    Op = "IN"
)

// Condition restricts one field.
type Condition struct {
	Field string
	Op    Op
	// Value is a scalar for OpEq/OpNotEq and a []any for OpIn.
	Value any
}

// Filter selects records. The zero value matches everything.
type Filter struct {
	Conditions []Condition
	// Sort is a field name optionally followed by " DESC"; defaults to "id".
	Sort string
	// Limit of 0 means unlimited.
	Limit int
}

// Where starts a filter with a single equality condition.
func Where(field string, value any) Filter {
	return Filter{}.Eq(field, value)
}

// Eq adds field = value.
func (f Filter) Eq(field string, value any) Filter {
	return f.with(Condition{Field: field, Op: OpEq, Value: value})
}

// NotEq adds field <> value.
func (f Filter) NotEq(field string, value any) Filter {
	return f.with(Condition{Field: field, Op: OpNotEq, Value: value})
}

// In adds field IN (values...). An empty list matches nothing.
func (f Filter) In(field string, values ...any) Filter {
	return f.with(Condition{Field: field, Op: OpIn, Value: values})
}

// OrderBy sets the sort expression.
func (f Filter) OrderBy(sort string) Filter {
	f.Sort = sort
	return f
}

// WithLimit caps the number of returned records.
func (f Filter) WithLimit(limit int) Filter {
	f.Limit = limit
	return f
}

func (f Filter) with(c Condition) Filter {
	conds := make([]Condition, 0, len(f.Conditions)+1)
	conds = append(conds, f.Conditions...)
	f.Conditions = append(conds, c)
	return f
}

// Values returns the operand list of an IN condition.
func (c Condition) Values() []any {
	if vs, ok := c.Value.([]any); ok {
		return vs
	}
	if c.Value == nil {
		return nil
	}
	return []any{c.Value}
}

// Int64s converts ids into an IN operand list.
func Int64s(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Strings converts names into an IN operand list.
func Strings(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
