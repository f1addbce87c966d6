// Package memory provides an in-process model.Manager used by tests and the
// demo. All managers created from the same DB share one transaction scope.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-material/pkg/model"
)

// DB holds any number of tables. Writers are serialized; a failed Atomic
// scope restores the tables as they were when the scope started.
type DB struct {
	writeMu sync.Mutex

	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	rows   map[int64]model.Record
	nextID int64
}

type scopeKey struct{ db *DB }

// NewDB returns an empty database.
func NewDB() *DB {
	return &DB{tables: make(map[string]*table)}
}

// Manager returns the manager for a table, creating the table on first use.
func (db *DB) Manager(name string) *Manager {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tables[name]; !ok {
		db.tables[name] = &table{rows: make(map[int64]model.Record)}
	}
	return &Manager{db: db, table: name}
}

// Atomic runs fn in a transaction scope. Calls made with a context that is
// already inside a scope of this DB join it.
func (db *DB) Atomic(ctx context.Context, fn model.AtomicFunc) (err error) {
	if fn == nil {
		return errors.New("memory: atomic function is nil")
	}
	if db.inScope(ctx) {
		return fn(ctx)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	snap := db.snapshot()
	defer func() {
		if r := recover(); r != nil {
			db.restore(snap)
			panic(r)
		}
		if err != nil {
			db.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, scopeKey{db}, true))
}

func (db *DB) inScope(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(scopeKey{db}).(bool)
	return v
}

// write applies a mutation. Outside a scope it takes the writer lock so it
// cannot interleave with a running transaction.
func (db *DB) write(ctx context.Context, fn func() error) error {
	if !db.inScope(ctx) {
		db.writeMu.Lock()
		defer db.writeMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn()
}

func (db *DB) snapshot() map[string]*table {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		cp := &table{rows: make(map[int64]model.Record, len(t.rows)), nextID: t.nextID}
		for pk, rec := range t.rows {
			cp.rows[pk] = rec
		}
		out[name] = cp
	}
	return out
}

func (db *DB) restore(snap map[string]*table) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = snap
}

// Manager implements model.Manager over one table of a DB.
type Manager struct {
	db    *DB
	table string
}

var _ model.Manager = (*Manager)(nil)

func (m *Manager) Atomic(ctx context.Context, fn model.AtomicFunc) error {
	return m.db.Atomic(ctx, fn)
}

func (m *Manager) All(_ context.Context) model.QuerySet {
	return &QuerySet{manager: m}
}

// Filter matches records whose attribute equals value. Values compare by
// their formatted form so an int64 column matches an int argument.
func (m *Manager) Filter(field string, value any) model.QuerySet {
	return &QuerySet{manager: m, filters: []filter{{field: field, value: value}}}
}

func (m *Manager) Get(ctx context.Context, pk int64) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.db.mu.RLock()
	defer m.db.mu.RUnlock()
	t := m.db.tables[m.table]
	if t == nil {
		return nil, fmt.Errorf("memory: %s pk=%d: %w", m.table, pk, model.ErrNotFound)
	}
	rec, ok := t.rows[pk]
	if !ok {
		return nil, fmt.Errorf("memory: %s pk=%d: %w", m.table, pk, model.ErrNotFound)
	}
	return model.Clone(rec), nil
}

// Save inserts records with a zero primary key and upserts the rest.
func (m *Manager) Save(ctx context.Context, rec model.Record) error {
	if rec == nil {
		return errors.New("memory: save nil record")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.write(ctx, func() error {
		t := m.db.tableLocked(m.table)
		pk := rec.PrimaryKey()
		if pk == 0 {
			t.nextID++
			pk = t.nextID
			rec.SetPrimaryKey(pk)
		} else if pk > t.nextID {
			t.nextID = pk
		}
		t.rows[pk] = model.Clone(rec)
		return nil
	})
}

// Delete removes the record. Deleting a missing record is not an error.
func (m *Manager) Delete(ctx context.Context, rec model.Record) error {
	if rec == nil {
		return errors.New("memory: delete nil record")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.write(ctx, func() error {
		delete(m.db.tableLocked(m.table).rows, rec.PrimaryKey())
		return nil
	})
}

func (db *DB) tableLocked(name string) *table {
	t, ok := db.tables[name]
	if !ok {
		t = &table{rows: make(map[int64]model.Record)}
		db.tables[name] = t
	}
	return t
}

type filter struct {
	field string
	value any
}

func (f filter) match(rec model.Record) bool {
	got, ok := model.Lookup(rec, f.field)
	if !ok {
		return false
	}
	return fmt.Sprint(got) == fmt.Sprint(f.value)
}

// QuerySet evaluates lazily against the table each time it is read.
type QuerySet struct {
	manager *Manager
	filters []filter
}

var _ model.QuerySet = (*QuerySet)(nil)

// Filter narrows the set further.
func (q *QuerySet) Filter(field string, value any) *QuerySet {
	filters := append(append([]filter{}, q.filters...), filter{field: field, value: value})
	return &QuerySet{manager: q.manager, filters: filters}
}

func (q *QuerySet) Records(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db := q.manager.db
	db.mu.RLock()
	defer db.mu.RUnlock()

	t := db.tables[q.manager.table]
	if t == nil {
		return nil, nil
	}
	keys := make([]int64, 0, len(t.rows))
	for pk := range t.rows {
		keys = append(keys, pk)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]model.Record, 0, len(keys))
rows:
	for _, pk := range keys {
		rec := t.rows[pk]
		for _, f := range q.filters {
			if !f.match(rec) {
				continue rows
			}
		}
		out = append(out, model.Clone(rec))
	}
	return out, nil
}

func (q *QuerySet) Count(ctx context.Context) (int, error) {
	recs, err := q.Records(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Slice returns at most limit records starting at offset. A negative limit
// means no limit.
func (q *QuerySet) Slice(ctx context.Context, offset, limit int) ([]model.Record, error) {
	recs, err := q.Records(ctx)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return []model.Record{}, nil
	}
	end := len(recs)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}
	return recs[offset:end], nil
}
