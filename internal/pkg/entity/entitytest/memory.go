// Package entitytest provides an in-memory entity.Gateway for tests.
package entitytest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
)

// Call records one gateway invocation.
type Call struct {
	Op   string
	Type entity.Type
	ID   int64
}

// Gateway keeps records in maps. It is safe for concurrent use.
type Gateway struct {
	mu      sync.Mutex
	records map[entity.Type]map[int64]entity.Record
	nextID  map[entity.Type]int64
	calls   []Call
	fail    map[string]error
}

// New returns an empty gateway.
func New() *Gateway {
	return &Gateway{
		records: make(map[entity.Type]map[int64]entity.Record),
		nextID:  make(map[entity.Type]int64),
		fail:    make(map[string]error),
	}
}

// Seed stores rec as-is (it must carry an id) and returns the id.
func (g *Gateway) Seed(typ entity.Type, rec entity.Record) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := rec.ID()
	if id == 0 {
		g.nextID[typ]++
		id = g.nextID[typ]
	}
	if id > g.nextID[typ] {
		g.nextID[typ] = id
	}
	stored := rec.Clone()
	stored["id"] = id
	g.table(typ)[id] = stored
	return id
}

// FailOn makes every op ("create", "update", "get", "find", "count") on typ
// return err until cleared with a nil err.
func (g *Gateway) FailOn(op string, typ entity.Type, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := op + ":" + string(typ)
	if err == nil {
		delete(g.fail, key)
		return
	}
	g.fail[key] = err
}

// Calls returns the invocations so far.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Writes counts create and update calls, optionally restricted to types.
func (g *Gateway) Writes(types ...entity.Type) int {
	n := 0
	for _, c := range g.Calls() {
		if c.Op != "create" && c.Op != "update" {
			continue
		}
		if len(types) == 0 {
			n++
			continue
		}
		for _, t := range types {
			if c.Type == t {
				n++
				break
			}
		}
	}
	return n
}

// All returns every record of typ ordered by id.
func (g *Gateway) All(typ entity.Type) []entity.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sorted(typ, "")
}

func (g *Gateway) Get(_ context.Context, typ entity.Type, id int64) (entity.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.track("get", typ, id); err != nil {
		return nil, err
	}
	rec, ok := g.table(typ)[id]
	if !ok {
		return nil, entity.NotFound(typ, id)
	}
	return rec.Clone(), nil
}

func (g *Gateway) Find(_ context.Context, typ entity.Type, filter entity.Filter) ([]entity.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.track("find", typ, 0); err != nil {
		return nil, err
	}
	var out []entity.Record
	for _, rec := range g.sorted(typ, filter.Sort) {
		if matches(rec, filter) {
			out = append(out, rec)
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (g *Gateway) Create(_ context.Context, typ entity.Type, fields entity.Record) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.track("create", typ, 0); err != nil {
		return 0, err
	}
	g.nextID[typ]++
	id := g.nextID[typ]
	rec := fields.Clone()
	rec["id"] = id
	g.table(typ)[id] = rec
	return id, nil
}

func (g *Gateway) Update(_ context.Context, typ entity.Type, id int64, fields entity.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.track("update", typ, id); err != nil {
		return err
	}
	rec, ok := g.table(typ)[id]
	if !ok {
		return entity.NotFound(typ, id)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return nil
}

func (g *Gateway) Count(_ context.Context, typ entity.Type, filter entity.Filter) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.track("count", typ, 0); err != nil {
		return 0, err
	}
	var n int64
	for _, rec := range g.table(typ) {
		if matches(rec, filter) {
			n++
		}
	}
	return n, nil
}

func (g *Gateway) track(op string, typ entity.Type, id int64) error {
	g.calls = append(g.calls, Call{Op: op, Type: typ, ID: id})
	if err, ok := g.fail[op+":"+string(typ)]; ok {
		return err
	}
	return nil
}

func (g *Gateway) table(typ entity.Type) map[int64]entity.Record {
	t, ok := g.records[typ]
	if !ok {
		t = make(map[int64]entity.Record)
		g.records[typ] = t
	}
	return t
}

func (g *Gateway) sorted(typ entity.Type, sortExpr string) []entity.Record {
	t := g.table(typ)
	out := make([]entity.Record, 0, len(t))
	for _, rec := range t {
		out = append(out, rec.Clone())
	}
	field, desc := parseSort(sortExpr)
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i][field], out[j][field])
		if c == 0 {
			return out[i].ID() < out[j].ID()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func parseSort(expr string) (string, bool) {
	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return "id", false
	}
	return parts[0], len(parts) > 1 && strings.EqualFold(parts[1], "desc")
}

func compare(a, b any) int {
	ai, aok := entity.ToInt64(a)
	bi, bok := entity.ToInt64(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(entity.ToString(a), entity.ToString(b))
}

func matches(rec entity.Record, filter entity.Filter) bool {
	for _, c := range filter.Conditions {
		have := entity.ToString(rec[c.Field])
		switch c.Op {
		case entity.OpEq:
			if have != entity.ToString(c.Value) {
				return false
			}
		case entity.OpNotEq:
			if have == entity.ToString(c.Value) {
				return false
			}
		case entity.OpIn:
			found := false
			for _, v := range c.Values() {
				if have == entity.ToString(v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			panic(fmt.Sprintf("entitytest: unsupported operator %q", c.Op))
		}
	}
	return true
}

// Transactional wraps a Gateway so that InTransaction restores a snapshot
// when the callback fails.
type Transactional struct {
	*Gateway
}

// Transaction implements entity.Transactor.
func (t Transactional) Transaction(ctx context.Context, fn func(gw entity.Gateway) error) error {
	snapshot := t.snapshot()
	if err := fn(t.Gateway); err != nil {
		t.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	records map[entity.Type]map[int64]entity.Record
	nextID  map[entity.Type]int64
}

func (g *Gateway) snapshot() state {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := state{
		records: make(map[entity.Type]map[int64]entity.Record, len(g.records)),
		nextID:  make(map[entity.Type]int64, len(g.nextID)),
	}
	for typ, table := range g.records {
		copied := make(map[int64]entity.Record, len(table))
		for id, rec := range table {
			copied[id] = rec.Clone()
		}
		s.records[typ] = copied
	}
	for typ, id := range g.nextID {
		s.nextID[typ] = id
	}
	return s
}

func (g *Gateway) restore(s state) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = s.records
	g.nextID = s.nextID
}

// Key formats a custom field storage key.
func Key(fieldID int64) string {
	return "custom_" + strconv.FormatInt(fieldID, 10)
}
