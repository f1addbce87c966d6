package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-material/pkg/auth"
	"github.com/goliatone/go-material/pkg/datalist"
	"github.com/goliatone/go-material/pkg/forms"
	"github.com/goliatone/go-material/pkg/frontend"
	"github.com/goliatone/go-material/pkg/model"
	"github.com/goliatone/go-material/pkg/views"
	"github.com/goliatone/go-material/pkg/viewset"
)

// Emergency contact relationships.
const (
	RelationshipSpouse    = "SPS"
	RelationshipPartner   = "PRT"
	RelationshipFriend    = "FRD"
	RelationshipColleague = "CLG"
)

var relationshipChoices = []forms.Choice{
	{Value: RelationshipSpouse, Label: "Spouse"},
	{Value: RelationshipPartner, Label: "Partner"},
	{Value: RelationshipFriend, Label: "Friend"},
	{Value: RelationshipColleague, Label: "Colleague"},
}

// ContactForm is the row form of the emergency contacts formset.
var ContactForm = &forms.Spec{Fields: []forms.Field{
	{Name: "name", Kind: forms.KindChar, Rules: "max=80"},
	{Name: "relationship", Kind: forms.KindChoice, Choices: relationshipChoices},
	{Name: "phone", Kind: forms.KindChar, Rules: "max=20"},
}}

// Register mounts every demo viewset on site.
func (a *App) Register(site *frontend.Frontend) error {
	mounts := []struct {
		prefix string
		vs     *viewset.ModelViewSet
	}{
		{"/geo/continent/", a.continents()},
		{"/geo/country/", a.countries()},
		{"/geo/city/", a.cities()},
		{"/people/person/", a.people()},
	}
	for _, mount := range mounts {
		if err := site.Register(mount.prefix, mount.vs); err != nil {
			return fmt.Errorf("demo: %w", err)
		}
	}
	return nil
}

func (a *App) continents() *viewset.ModelViewSet {
	return viewset.New(a.Continent,
		viewset.WithListDisplay("name", "code"),
		guarded(a.Continent, nil, nil),
	)
}

func (a *App) countries() *viewset.ModelViewSet {
	configure := func(v *views.FormView) {
		v.Fields = []string{"name", "code", "continent_id", "population"}
		v.Inlines = map[string]*forms.InlineSpec{
			"cities": forms.NewInlineSpec(a.City, "country_id", nil, forms.WithExtra(2), forms.WithCanDelete(true)),
		}
		v.SaveModel = a.saveCountry
	}
	return viewset.New(a.Country,
		viewset.WithListDisplay("name", "code", "continent"),
		viewset.WithColumns(datalist.Columns{
			"continent": {Label: "Continent", Value: a.continentName},
		}),
		guarded(a.Country, configure, configure),
	)
}

func (a *App) cities() *viewset.ModelViewSet {
	return viewset.New(a.City,
		viewset.WithListDisplay("name", "country_id", "is_capital"),
		viewset.WithListDisplayLinks("name"),
		guarded(a.City, nil, nil),
		viewset.WithDetailView(views.Detail()),
	)
}

func (a *App) people() *viewset.ModelViewSet {
	contacts := forms.NewFormSetSpec(ContactForm, forms.WithExtra(1), forms.WithMaxNum(3), forms.WithValidateMax(true))
	contacts.Save = a.saveContacts

	return viewset.New(a.Person,
		viewset.WithListDisplay(datalist.StrColumn, "username", "email", "is_staff"),
		guarded(a.Person,
			func(v *views.FormView) {
				v.Formsets = map[string]*forms.FormSetSpec{"contacts": contacts}
			},
			func(v *views.FormView) {
				v.Inlines = map[string]*forms.InlineSpec{
					"contacts": forms.NewInlineSpec(a.Contact, "person_id", ContactForm, forms.WithExtra(1), forms.WithCanDelete(true)),
				}
			},
		),
		viewset.WithDetailView(views.Detail()),
	)
}

// guarded installs the view classes. Each write view requires the matching
// model permission, for example "geo.delete_city".
func guarded(m model.Model, create, update func(*views.FormView)) viewset.OptionFn {
	return viewset.WithViews(
		views.List(),
		views.Create(func(v *views.CreateView) {
			v.PermFunc = requirePerm(m, "add")
			if create != nil {
				create(&v.FormView)
			}
		}),
		views.Update(func(v *views.UpdateView) {
			v.PermFunc = requirePerm(m, "change")
			if update != nil {
				update(&v.FormView)
			}
		}),
		views.Delete(func(v *views.DeleteView) {
			v.PermFunc = requirePerm(m, "delete")
		}),
	)
}

func requirePerm(m model.Model, action string) views.PermFunc {
	codename := auth.Codename(m.Meta(), action)
	return func(user auth.User, _ model.Record) bool {
		return user != nil && user.HasPerm(codename)
	}
}

// saveCountry rejects countries pointing at a missing continent.
func (a *App) saveCountry(ctx context.Context, form *forms.ModelForm) (model.Record, error) {
	rec, err := form.Save(ctx, false)
	if err != nil {
		return nil, err
	}
	country := rec.(*Country)
	if _, err := a.Continent.Manager().Get(ctx, country.ContinentID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewValidationError("continent_id", "Select a valid continent.")
		}
		return nil, err
	}
	if err := a.Country.Manager().Save(ctx, country); err != nil {
		return nil, err
	}
	return country, nil
}

func (a *App) saveContacts(ctx context.Context, parent model.Record, rows []map[string]any) error {
	for _, row := range rows {
		contact := &EmergencyContact{PersonID: parent.PrimaryKey()}
		if err := model.Assign(contact, row); err != nil {
			return err
		}
		if err := a.Contact.Manager().Save(ctx, contact); err != nil {
			return fmt.Errorf("save contact %q: %w", contact.Name, err)
		}
	}
	return nil
}

func (a *App) continentName(rec model.Record) any {
	country, ok := rec.(*Country)
	if !ok || country.ContinentID == 0 {
		return ""
	}
	continent, err := a.Continent.Manager().Get(context.Background(), country.ContinentID)
	if err != nil {
		return ""
	}
	return continent.(*Continent).Name
}
