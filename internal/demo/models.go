// Package demo is the sample site served by the material-demo command: a
// small geography catalogue and a people directory with emergency contacts.
package demo

import (
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/store/memory"
	"github.com/goliatone/go-material/pkg/store/sqlstore"
)

type Continent struct {
	model.Base
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

func (c *Continent) String() string { return c.Name }

type Country struct {
	model.Base
	Name        string `db:"name" json:"name"`
	Code        string `db:"code" json:"code"`
	ContinentID int64  `db:"continent_id" json:"continent_id"`
	Population  int64  `db:"population" json:"population"`
}

func (c *Country) String() string { return c.Name }

type City struct {
	model.Base
	Name      string `db:"name" json:"name"`
	CountryID int64  `db:"country_id" json:"country_id"`
	IsCapital bool   `db:"is_capital" json:"is_capital"`
}

func (c *City) String() string { return c.Name }

// Person doubles as the site account. Staff members may sign in.
type Person struct {
	model.Base
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	IsStaff   bool   `db:"is_staff" json:"is_staff"`
}

func (p *Person) String() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Username
	}
	return p.FirstName + " " + p.LastName
}

type EmergencyContact struct {
	model.Base
	PersonID     int64  `db:"person_id" json:"person_id"`
	Name         string `db:"name" json:"name"`
	Relationship string `db:"relationship" json:"relationship"`
	Phone        string `db:"phone" json:"phone"`
}

func (c *EmergencyContact) String() string { return c.Name }

// ManagerFunc returns the manager of a table. MemoryManagers and SQLManagers
// adapt the two stores.
type ManagerFunc func(table string, factory func() model.Record) model.Manager

func MemoryManagers(db *memory.DB) ManagerFunc {
	return func(table string, _ func() model.Record) model.Manager {
		return db.Manager(table)
	}
}

func SQLManagers(store *sqlstore.Store) ManagerFunc {
	return func(table string, factory func() model.Record) model.Manager {
		return store.Manager(table, factory)
	}
}

// App holds the demo models.
type App struct {
	Continent model.Model
	Country   model.Model
	City      model.Model
	Person    model.Model
	Contact   model.Model

	sql *sqlstore.Store
}

// New defines every model over managers.
func New(managers ManagerFunc) *App {
	define := func(meta model.Meta, factory func() model.Record) model.Model {
		if meta.Table == "" {
			meta.Table = meta.AppLabel + "_" + meta.ModelName
		}
		return model.Define(meta, factory, managers(meta.Table, factory))
	}
	return &App{
		Continent: define(model.Meta{AppLabel: "geo", ModelName: "continent"},
			func() model.Record { return &Continent{} }),
		Country: define(model.Meta{AppLabel: "geo", ModelName: "country", VerboseNamePlural: "countries"},
			func() model.Record { return &Country{} }),
		City: define(model.Meta{AppLabel: "geo", ModelName: "city", VerboseNamePlural: "cities"},
			func() model.Record { return &City{} }),
		Person: define(model.Meta{AppLabel: "people", ModelName: "person", VerboseNamePlural: "people"},
			func() model.Record { return &Person{} }),
		Contact: define(model.Meta{AppLabel: "people", ModelName: "emergencycontact", VerboseName: "emergency contact", Table: "people_emergency_contact"},
			func() model.Record { return &EmergencyContact{} }),
	}
}

// Models lists the models for fixture loading and the create command.
func (a *App) Models() []model.Model {
	return []model.Model{a.Continent, a.Country, a.City, a.Person, a.Contact}
}
