package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

func newCatalog(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc, err := core.NewInMemoryService(ctx)
	require.NoError(t, err)
	pt, err := svc.ProductTypes.Create(ctx, domain.ProductType{Name: "Suku Cadang"})
	require.NoError(t, err)
	_, err = svc.Categories.Create(ctx, domain.Category{Name: "Accu", ProductTypeID: pt.ID})
	require.NoError(t, err)
	_, err = svc.Categories.Create(ctx, domain.Category{Name: "Ban", ProductTypeID: pt.ID})
	require.NoError(t, err)
	return svc
}

func TestProductDraftDefaultsToFirstCategory(t *testing.T) {
	svc := newCatalog(t)
	a := Products{Categories: svc.Categories}
	d := a.ToDraft(nil)
	assert.Equal(t, "1", d["categoryId"])
	assert.Equal(t, "0", d["price"])
	assert.Equal(t, "", d["name"])
}

func TestProductDraftRoundTrip(t *testing.T) {
	svc := newCatalog(t)
	a := Products{Categories: svc.Categories}
	rec := domain.Product{Name: "GS Astra", CategoryID: 2, Brand: "GS", Price: 770000, Stock: 15, Images: []string{"a.jpg", "b.jpg"}}
	got, err := a.FromDraft(a.ToDraft(&rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestProductImagesWithCommasSurviveEdit(t *testing.T) {
	svc := newCatalog(t)
	a := Products{Categories: svc.Categories}
	rec := domain.Product{
		Name:       "Helm Safety Pro",
		CategoryID: 1,
		Images:     []string{"https://cdn.example/img?size=1,2", "data:image/png;base64,iVBORw0KGgo=", "plain.jpg"},
	}
	got, err := a.FromDraft(a.ToDraft(&rec))
	require.NoError(t, err)
	assert.Equal(t, rec.Images, got.Images)

	d := a.ToDraft(&rec)
	d.Set("images", "one.jpg\r\n\n two.jpg ")
	got, err = a.FromDraft(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"one.jpg", "two.jpg"}, got.Images)
}

func TestProductNegativePriceIsRejected(t *testing.T) {
	svc := newCatalog(t)
	a := Products{Categories: svc.Categories}
	d := a.ToDraft(nil)
	d.Set("name", "X")
	d.Set("price", "-5")
	d.Set("images", "x.jpg")

	_, err := a.FromDraft(d)
	require.ErrorIs(t, err, domain.ErrValidation)
	ve, ok := domain.FirstValidation(err)
	require.True(t, ok)
	assert.Equal(t, "price", ve.Field)
	assert.Equal(t, 0, svc.Products.Len())
}

func TestProductMissingCategory(t *testing.T) {
	svc := newCatalog(t)
	a := Products{Categories: svc.Categories}
	cases := map[string]string{"empty": "", "deleted": "99"}
	for name, categoryID := range cases {
		t.Run(name, func(t *testing.T) {
			d := Draft{"name": "Helm", "categoryId": categoryID, "price": "1", "stock": "1", "images": "h.jpg"}
			_, err := a.FromDraft(d)
			ve, ok := domain.FirstValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, "missing category", ve.Message)
		})
	}
}

func TestProductReportsEveryProblemOnce(t *testing.T) {
	a := Products{}
	_, err := a.FromDraft(Draft{"categoryId": "abc", "price": "lots", "stock": "-1"})
	require.Error(t, err)
	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *domain.ValidationError
		require.True(t, errors.As(e, &ve))
		fields = append(fields, ve.Field)
	}
	assert.Equal(t, []string{"categoryId", "price", "stock", "name", "images"}, fields)
}

func TestCategoryRequiresExistingProductType(t *testing.T) {
	svc := newCatalog(t)
	a := Categories{ProductTypes: svc.ProductTypes}
	_, err := a.FromDraft(Draft{"name": "Helm", "productTypeId": "42"})
	ve, ok := domain.FirstValidation(err)
	require.True(t, ok)
	assert.Equal(t, "productTypeId", ve.Field)

	got, err := a.FromDraft(Draft{"name": " Helm ", "productTypeId": "1"})
	require.NoError(t, err)
	assert.Equal(t, "Helm", got.Name)
	assert.ErrorIs(t, a.Validate(domain.Category{}), domain.ErrValidation)
}

func TestServiceDefaults(t *testing.T) {
	d := Services{}.ToDraft(nil)
	assert.Equal(t, SubCategoryElectric, d["subCategory"])
	assert.Equal(t, "true", d["isAvailable"])

	d.Set("name", "Tune Up")
	d.Set("description", "Lengkap")
	d.Set("price", "3500000")
	got, err := Services{}.FromDraft(d)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	assert.Equal(t, int64(3500000), got.Price)

	d.Set("isAvailable", "maybe")
	_, err = Services{}.FromDraft(d)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTrainingRoundTrip(t *testing.T) {
	rec := domain.Training{Name: "Perawatan Motor Mandiri", Price: 2500000, Description: "Kurikulum", IsAvailable: false}
	got, err := Trainings{}.FromDraft(Trainings{}.ToDraft(&rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Error(t, Trainings{}.Validate(domain.Training{Name: "x", Price: -1, Description: "y"}))
}

func TestNewsDefaultsToToday(t *testing.T) {
	a := News{Now: func() time.Time { return time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC) }}
	d := a.ToDraft(nil)
	assert.Equal(t, "4/9/2025", d["date"])
	d.Set("title", "Tips Merawat Motor Listrik")
	d.Set("category", "tips")
	got, err := a.FromDraft(d)
	require.NoError(t, err)
	assert.Equal(t, "4/9/2025", got.Date)

	d.Set("date", "2025-09-04")
	_, err = a.FromDraft(d)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationValidation(t *testing.T) {
	valid := domain.Reservation{FullName: "Andi", Phone: "0812", Email: "andi@example.com", ServiceType: "Service Baterai", Date: "2025-10-05", Time: "09:00"}
	require.NoError(t, Reservations{}.Validate(valid))

	noEmail := valid
	noEmail.Email = ""
	require.NoError(t, Reservations{}.Validate(noEmail))

	cases := map[string]func(r *domain.Reservation){
		"email": func(r *domain.Reservation) { r.Email = "andi at example" },
		"date":  func(r *domain.Reservation) { r.Date = "05/10/2025" },
		"time":  func(r *domain.Reservation) { r.Time = "9am" },
		"phone": func(r *domain.Reservation) { r.Phone = " " },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			r := valid
			mutate(&r)
			ve, ok := domain.FirstValidation(Reservations{}.Validate(r))
			require.True(t, ok)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestDraftHelpers(t *testing.T) {
	var nilDraft Draft
	c := nilDraft.Clone()
	c.Set("a", "1")
	assert.Equal(t, "1", c.Get("a"))
	d := Draft{"name": "  Helm  "}
	clone := d.Clone()
	clone.Set("name", "other")
	assert.Equal(t, "Helm", d.Get("name"))
	assert.True(t, HasField[domain.Product](Products{}, "images"))
	assert.False(t, HasField[domain.Product](Products{}, "weight"))
}
