package console

import (
	"context"
	"strconv"

	"motoriz/internal/core"
	"motoriz/internal/export"
	"motoriz/internal/flow"
	"motoriz/internal/form"
	"motoriz/pkg/domain"
)

// view is one collection as the console sees it.
type view interface {
	name() string
	columns() []string
	rows(query string) [][]string
	exportDomain() string
	fields() []form.Field
	state() flow.State
	draft() form.Draft
	add() (form.Draft, error)
	edit(id domain.ID) (form.Draft, error)
	set(field, value string) error
	save(ctx context.Context) (domain.ID, error)
	cancel()
	remove(ctx context.Context, id domain.ID) (bool, error)
}

type collection[T domain.Record[T]] struct {
	label   string
	ctrl    *flow.Controller[T]
	list    *core.View[T]
	header  []string
	render  func(T) []string
	csvName string
}

func (c *collection[T]) name() string             { return c.label }
func (c *collection[T]) columns() []string        { return c.header }
func (c *collection[T]) exportDomain() string     { return c.csvName }
func (c *collection[T]) fields() []form.Field     { return c.ctrl.Fields() }
func (c *collection[T]) state() flow.State        { return c.ctrl.State() }
func (c *collection[T]) draft() form.Draft        { return c.ctrl.Draft() }
func (c *collection[T]) add() (form.Draft, error) { return c.ctrl.OpenForCreate() }
func (c *collection[T]) cancel()                  { c.ctrl.Cancel() }

func (c *collection[T]) edit(id domain.ID) (form.Draft, error) { return c.ctrl.OpenForEdit(id) }
func (c *collection[T]) set(field, value string) error         { return c.ctrl.Set(field, value) }

func (c *collection[T]) rows(q string) [][]string {
	c.list.SetQuery(q)
	items := c.list.Items()
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, c.render(it))
	}
	return out
}

func (c *collection[T]) save(ctx context.Context) (domain.ID, error) {
	rec, err := c.ctrl.Submit(ctx, nil)
	if err != nil {
		return 0, err
	}
	return rec.RecordID(), nil
}

func (c *collection[T]) remove(ctx context.Context, id domain.ID) (bool, error) {
	return c.ctrl.Delete(ctx, id)
}

// categoryRepo routes deletes through the service so orphaned products are
// reported.
type categoryRepo struct {
	*core.Store[domain.Category]
	svc *core.Service
}

func (r categoryRepo) Delete(ctx context.Context, id domain.ID) error {
	return r.svc.DeleteCategory(ctx, id)
}

func num(n int64) string { return strconv.FormatInt(n, 10) }

func yesNo(ok bool) string {
	if ok {
		return export.Available
	}
	return export.Unavailable
}

// buildViews wires one flow controller per collection.
func buildViews(svc *core.Service, confirm flow.Confirmer, notify flow.Notifier) []view {
	category := func(id domain.ID) string {
		if name := svc.CategoryName(id); name != "" {
			return name
		}
		return export.UnknownCategory
	}
	return []view{
		&collection[domain.Product]{
			label:   core.ResourceProducts,
			ctrl:    flow.New[domain.Product](svc.Products, form.Products{Categories: svc.Categories}, confirm, notify),
			list:    core.NewView[domain.Product](svc.Products, core.ProductFields(svc.Categories), svc.Categories),
			header:  []string{"ID", "Nama Produk", "Kategori", "Harga", "Stok"},
			csvName: export.DomainProducts,
			render: func(p domain.Product) []string {
				return []string{p.ID.String(), p.Name, category(p.CategoryID), num(p.Price), num(p.Stock)}
			},
		},
		&collection[domain.Category]{
			label:  core.ResourceCategories,
			ctrl:   flow.New[domain.Category](categoryRepo{svc.Categories, svc}, form.Categories{ProductTypes: svc.ProductTypes}, confirm, notify),
			list:   core.NewView[domain.Category](svc.Categories, core.CategoryFields),
			header: []string{"ID", "Nama Kategori", "Jenis Produk"},
			render: func(c domain.Category) []string {
				pt, _ := svc.ProductTypes.Get(c.ProductTypeID)
				return []string{c.ID.String(), c.Name, pt.Name}
			},
		},
		&collection[domain.ProductType]{
			label:  core.ResourceProductTypes,
			ctrl:   flow.New[domain.ProductType](svc.ProductTypes, form.ProductTypes{}, confirm, notify),
			list:   core.NewView[domain.ProductType](svc.ProductTypes, core.ProductTypeFields),
			header: []string{"ID", "Jenis Produk", "Deskripsi"},
			render: func(p domain.ProductType) []string { return []string{p.ID.String(), p.Name, p.Description} },
		},
		&collection[domain.Service]{
			label:   core.ResourceServices,
			ctrl:    flow.New[domain.Service](svc.Services, form.Services{}, confirm, notify),
			list:    core.NewView[domain.Service](svc.Services, core.ServiceFields),
			header:  []string{"ID", "Nama Layanan", "Sub Kategori", "Harga", "Ketersediaan"},
			csvName: export.DomainServices,
			render: func(s domain.Service) []string {
				return []string{s.ID.String(), s.Name, s.SubCategory, num(s.Price), yesNo(s.IsAvailable)}
			},
		},
		&collection[domain.Training]{
			label:   core.ResourceTrainings,
			ctrl:    flow.New[domain.Training](svc.Trainings, form.Trainings{}, confirm, notify),
			list:    core.NewView[domain.Training](svc.Trainings, core.TrainingFields),
			header:  []string{"ID", "Nama Pelatihan", "Harga", "Ketersediaan"},
			csvName: export.DomainTrainings,
			render: func(t domain.Training) []string {
				return []string{t.ID.String(), t.Name, num(t.Price), yesNo(t.IsAvailable)}
			},
		},
		&collection[domain.NewsArticle]{
			label:   core.ResourceNews,
			ctrl:    flow.New[domain.NewsArticle](svc.News, form.News{Now: svc.Clock().Now}, confirm, notify),
			list:    core.NewView[domain.NewsArticle](svc.News, core.NewsFields),
			header:  []string{"ID", "Tanggal", "Judul", "Kategori"},
			csvName: export.DomainNews,
			render: func(n domain.NewsArticle) []string {
				return []string{n.ID.String(), n.Date, n.Title, n.Category}
			},
		},
		&collection[domain.Reservation]{
			label:   core.ResourceReservations,
			ctrl:    flow.New[domain.Reservation](svc.Reservations, form.Reservations{}, confirm, notify),
			list:    core.NewView[domain.Reservation](svc.Reservations, core.ReservationFields),
			header:  []string{"ID", "Nama Lengkap", "Telepon", "Jenis Layanan", "Tanggal", "Waktu"},
			csvName: export.DomainReservations,
			render: func(r domain.Reservation) []string {
				return []string{r.ID.String(), r.FullName, r.Phone, r.ServiceType, r.Date, r.Time}
			},
		},
	}
}
