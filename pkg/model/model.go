package model

import (
	"context"
	"strings"
)

// Record is a persisted entity instance. Records are always handled through
// pointers so managers can assign primary keys on insert.
type Record interface {
	PrimaryKey() int64
	SetPrimaryKey(id int64)
}

// Base provides the conventional auto-increment id column. Embed it in record
// structs to satisfy Record.
type Base struct {
	ID int64 `db:"id" json:"id"`
}

func (b *Base) PrimaryKey() int64 { return b.ID }

func (b *Base) SetPrimaryKey(id int64) { b.ID = id }

// Meta mirrors the options a model exposes to the views: naming used for
// template lookup and route names, plus the backing table.
type Meta struct {
	AppLabel          string
	ModelName         string
	VerboseName       string
	VerboseNamePlural string
	Table             string
}

// Label returns "app.model", the key fixtures and permission codenames use.
func (m Meta) Label() string {
	return m.AppLabel + "." + m.ModelName
}

// QuerySet is a lazily evaluated, pk-ordered collection of records.
type QuerySet interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]Record, error)
	Records(ctx context.Context) ([]Record, error)
}

// AtomicFunc runs inside a transaction scope. Returning an error rolls the
// scope back.
type AtomicFunc func(ctx context.Context) error

// Transactor groups writes into a single all-or-nothing unit. Nested calls
// with a context that already carries a scope join the outer one.
type Transactor interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
}

// Manager is the default access point to a model's records.
type Manager interface {
	Transactor
	All(ctx context.Context) QuerySet
	Filter(field string, value any) QuerySet
	Get(ctx context.Context, pk int64) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, rec Record) error
}

// Model binds metadata, a record factory and the default manager.
type Model interface {
	Meta() Meta
	New() Record
	Manager() Manager
}

type definition struct {
	meta    Meta
	factory func() Record
	manager Manager
}

// Define returns a Model. Missing verbose names and table are derived from
// the model name.
func Define(meta Meta, factory func() Record, manager Manager) Model {
	meta.ModelName = strings.ToLower(strings.TrimSpace(meta.ModelName))
	meta.AppLabel = strings.ToLower(strings.TrimSpace(meta.AppLabel))
	if meta.VerboseName == "" {
		meta.VerboseName = meta.ModelName
	}
	if meta.VerboseNamePlural == "" {
		meta.VerboseNamePlural = meta.VerboseName + "s"
	}
	if meta.Table == "" {
		meta.Table = meta.AppLabel + "_" + meta.ModelName
	}
	return &definition{meta: meta, factory: factory, manager: manager}
}

func (d *definition) Meta() Meta { return d.meta }

func (d *definition) New() Record { return d.factory() }

func (d *definition) Manager() Manager { return d.manager }
