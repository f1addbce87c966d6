// Package sqlstore implements model.Manager on top of sqlx for PostgreSQL.
// Managers built from one Store join the same transaction when their context
// carries it.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/goliatone/go-material/pkg/model"
)

// DriverName is the database/sql driver registered by lib/pq.
const DriverName = "postgres"

// Options configures a Store.
type Options struct {
	Logger *zap.Logger
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// WithLogger logs every statement at debug level.
func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// Store owns the connection pool and the transaction scope.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type txKey struct{ store *Store }

// Open connects to dsn with the postgres driver.
func Open(ctx context.Context, dsn string, opts ...OptionFn) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an existing handle. Untagged struct fields map to snake_case
// columns, matching model.Columns.
func New(db *sqlx.DB, opts ...OptionFn) *Store {
	o := Options{Logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	db.MapperFunc(model.SnakeCase)
	return &Store{db: db, logger: o.Logger}
}

// DB exposes the underlying handle for schema setup.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// Atomic runs fn inside a database transaction, committing when fn returns
// nil. Nested calls reuse the transaction already in ctx.
func (s *Store) Atomic(ctx context.Context, fn model.AtomicFunc) (err error) {
	if fn == nil {
		return errors.New("sqlstore: atomic function is nil")
	}
	if _, ok := s.txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlstore: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

func (s *Store) txFrom(ctx context.Context) (*sqlx.Tx, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{s}).(*sqlx.Tx)
	return tx, ok && tx != nil
}

func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := s.txFrom(ctx); ok {
		return tx
	}
	return s.db
}

// Manager returns a manager for table whose rows decode into factory records.
func (s *Store) Manager(table string, factory func() model.Record) *Manager {
	return &Manager{store: s, table: table, factory: factory}
}

// Manager implements model.Manager for one table. The primary key column is
// always "id".
type Manager struct {
	store   *Store
	table   string
	factory func() model.Record
}

var _ model.Manager = (*Manager)(nil)

func (m *Manager) Atomic(ctx context.Context, fn model.AtomicFunc) error {
	return m.store.Atomic(ctx, fn)
}

func (m *Manager) All(_ context.Context) model.QuerySet {
	return &QuerySet{manager: m}
}

func (m *Manager) Filter(field string, value any) model.QuerySet {
	return &QuerySet{manager: m, where: []condition{{column: field, value: value}}}
}

func (m *Manager) Get(ctx context.Context, pk int64) (model.Record, error) {
	rec := m.factory()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", m.selectList(), pq.QuoteIdentifier(m.table), pq.QuoteIdentifier("id"))
	m.log(query, pk)
	if err := sqlx.GetContext(ctx, m.store.ext(ctx), rec, query, pk); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore: %s pk=%d: %w", m.table, pk, model.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlstore: get %s: %w", m.table, err)
	}
	return rec, nil
}

// Save inserts when the primary key is zero and updates otherwise. An update
// that touches no row inserts the record with its key.
func (m *Manager) Save(ctx context.Context, rec model.Record) error {
	if rec == nil {
		return errors.New("sqlstore: save nil record")
	}
	cols, args := m.columnValues(rec)
	ext := m.store.ext(ctx)

	if rec.PrimaryKey() == 0 {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			pq.QuoteIdentifier(m.table), joinIdents(cols), placeholders(1, len(cols)), pq.QuoteIdentifier("id"))
		m.log(query, args...)
		var id int64
		if err := ext.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return m.writeErr("insert", err)
		}
		rec.SetPrimaryKey(id)
		return nil
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), i+1)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		pq.QuoteIdentifier(m.table), join(sets), pq.QuoteIdentifier("id"), len(cols)+1)
	updateArgs := append(append([]any{}, args...), rec.PrimaryKey())
	m.log(query, updateArgs...)
	res, err := ext.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return m.writeErr("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	insertCols := append([]string{"id"}, cols...)
	insertArgs := append([]any{rec.PrimaryKey()}, args...)
	query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(m.table), joinIdents(insertCols), placeholders(1, len(insertCols)))
	m.log(query, insertArgs...)
	if _, err := ext.ExecContext(ctx, query, insertArgs...); err != nil {
		return m.writeErr("insert", err)
	}
	return nil
}

func (m *Manager) Delete(ctx context.Context, rec model.Record) error {
	if rec == nil {
		return errors.New("sqlstore: delete nil record")
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pq.QuoteIdentifier(m.table), pq.QuoteIdentifier("id"))
	m.log(query, rec.PrimaryKey())
	if _, err := m.store.ext(ctx).ExecContext(ctx, query, rec.PrimaryKey()); err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", m.table, err)
	}
	return nil
}

// writeErr turns unique and foreign key violations into a
// model.ValidationError so the submitted forms are re-rendered.
func (m *Manager) writeErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return model.NewValidationError(model.NonFieldErrors, "A record with these values already exists.")
		case "foreign_key_violation":
			return model.NewValidationError(model.NonFieldErrors, "Select a valid related record.")
		}
	}
	return fmt.Errorf("sqlstore: %s %s: %w", op, m.table, err)
}

func (m *Manager) columns() []string {
	cols := model.Columns(m.factory())
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, col.Name)
	}
	return out
}

func (m *Manager) selectList() string {
	return joinIdents(m.columns())
}

// columnValues returns every column except id with its value, in
// declaration order.
func (m *Manager) columnValues(rec model.Record) ([]string, []any) {
	values := model.Values(rec)
	var cols []string
	var args []any
	for _, col := range model.Columns(rec) {
		if col.Name == "id" {
			continue
		}
		cols = append(cols, col.Name)
		args = append(args, values[col.Name])
	}
	return cols, args
}

func (m *Manager) hasColumn(name string) bool {
	for _, col := range m.columns() {
		if col == name {
			return true
		}
	}
	return false
}

func (m *Manager) log(query string, args ...any) {
	m.store.logger.Debug("sqlstore: statement", zap.String("table", m.table), zap.String("query", query), zap.Any("args", args))
}
