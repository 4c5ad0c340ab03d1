package core

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"motoriz/internal/infra/persistence/memory"
	"motoriz/pkg/domain"
)

func itemFields(i item) []string { return []string{i.Name} }

var sample = []item{
	{ID: 1, Name: "Accu A", Stock: 2},
	{ID: 2, Name: "Ban B", Stock: 20},
	{ID: 3, Name: "accu premium", Stock: 7},
	{ID: 4, Name: "Kampas Rem ABC", Stock: 1},
}

func TestFilterScenario(t *testing.T) {
	got := Filter(sample[:2], "accu", itemFields)
	want := []item{{ID: 1, Name: "Accu A", Stock: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterIdentityOnEmptyQuery(t *testing.T) {
	got := Filter(sample, "", itemFields)
	if diff := cmp.Diff(sample, got); diff != "" {
		t.Fatalf("empty query must return the input (-want +got):\n%s", diff)
	}
	got[0].Name = "changed"
	if sample[0].Name != "Accu A" {
		t.Fatalf("filter result must not alias the input")
	}
}

func TestFilterIdempotentAndCaseInsensitive(t *testing.T) {
	for _, q := range []string{"accu", "ACCU", "rem", "b", "zzz"} {
		once := Filter(sample, q, itemFields)
		twice := Filter(once, q, itemFields)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("filter not idempotent for %q:\n%s", q, diff)
		}
	}
	upper := Filter(sample, "ABC", itemFields)
	lower := Filter(sample, "abc", itemFields)
	if diff := cmp.Diff(upper, lower); diff != "" {
		t.Fatalf("case sensitivity leak:\n%s", diff)
	}
}

func TestFilterPreservesOrderAndInput(t *testing.T) {
	input := append([]item(nil), sample...)
	got := Filter(input, "accu", itemFields)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected order %+v", got)
	}
	if diff := cmp.Diff(sample, input); diff != "" {
		t.Fatalf("input mutated:\n%s", diff)
	}
}

func TestFilterMatchesAnyField(t *testing.T) {
	fields := func(s domain.Service) []string { return ServiceFields(s) }
	services := []domain.Service{
		{ID: 1, Name: "Service Baterai", SubCategory: "Service Motor Listrik"},
		{ID: 2, Name: "Tune Up Mesin", SubCategory: "Service Motor Bensin"},
	}
	got := Filter(services, "bensin", fields)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected sub category match, got %+v", got)
	}
}

func TestViewRecomputesOnVersionOrQueryChange(t *testing.T) {
	store := NewStore[item]("item", memory.New(sample...), StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	view := NewView[item](store, itemFields)
	view.SetQuery("accu")
	if got := view.Items(); len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	_ = view.Items()
	if view.computes != 1 {
		t.Fatalf("unchanged store and query must reuse the cache, computes=%d", view.computes)
	}

	if _, err := store.Create(context.Background(), item{Name: "Accu baru"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := view.Items(); len(got) != 3 {
		t.Fatalf("stale cache after mutation: %+v", got)
	}

	view.SetQuery("ban")
	if got := view.Items(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("stale cache after query change: %+v", got)
	}
	if view.computes != 3 {
		t.Fatalf("expected 3 recomputations, got %d", view.computes)
	}
}

func TestFilterProductsByCategoryAndType(t *testing.T) {
	ctx := context.Background()
	svc, err := NewInMemoryService(ctx)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	parts, _ := svc.ProductTypes.Create(ctx, domain.ProductType{Name: "Suku Cadang"})
	motor, _ := svc.ProductTypes.Create(ctx, domain.ProductType{Name: "Motor Listrik"})
	accu, _ := svc.Categories.Create(ctx, domain.Category{Name: "Accu", ProductTypeID: parts.ID})
	hub, _ := svc.Categories.Create(ctx, domain.Category{Name: "Hub Motor", ProductTypeID: motor.ID})
	_, _ = svc.Products.Create(ctx, domain.Product{Name: "GS Astra Premium N50", CategoryID: accu.ID, Images: []string{"a.jpg"}})
	_, _ = svc.Products.Create(ctx, domain.Product{Name: "Hub Motor 1500W", CategoryID: hub.ID, Images: []string{"b.jpg"}})

	if got := svc.QueryProducts(ProductQuery{Search: "accu"}); len(got) != 1 || got[0].Name != "GS Astra Premium N50" {
		t.Fatalf("search on category name failed: %+v", got)
	}
	if got := svc.QueryProducts(ProductQuery{CategoryID: hub.ID}); len(got) != 1 || got[0].Name != "Hub Motor 1500W" {
		t.Fatalf("category filter failed: %+v", got)
	}
	if got := svc.QueryProducts(ProductQuery{ProductTypeID: parts.ID}); len(got) != 1 || got[0].CategoryID != accu.ID {
		t.Fatalf("product type filter failed: %+v", got)
	}
	if got := svc.QueryProducts(ProductQuery{Search: "motor", ProductTypeID: parts.ID}); len(got) != 0 {
		t.Fatalf("filters must compose, got %+v", got)
	}
}

func TestProductViewFollowsCategoryRenames(t *testing.T) {
	ctx := context.Background()
	svc, err := NewInMemoryService(ctx)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	accu, _ := svc.Categories.Create(ctx, domain.Category{Name: "Accu"})
	if _, err := svc.Products.Create(ctx, domain.Product{Name: "GS Astra Premium N50", CategoryID: accu.ID, Images: []string{"a.jpg"}}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	view := NewView[domain.Product](svc.Products, ProductFields(svc.Categories), svc.Categories)
	view.SetQuery("accu")
	if got := view.Items(); len(got) != 1 {
		t.Fatalf("expected category name match, got %+v", got)
	}

	if _, err := svc.Categories.Update(ctx, accu.ID, domain.Category{Name: "Baterai"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	fresh := Filter(svc.Products.List(), "accu", ProductFields(svc.Categories))
	if got := view.Items(); len(got) != len(fresh) || len(got) != 0 {
		t.Fatalf("view kept stale match after rename: view=%d fresh=%d", len(got), len(fresh))
	}
	view.SetQuery("baterai")
	if got := view.Items(); len(got) != 1 {
		t.Fatalf("renamed category not searchable: %+v", got)
	}

	if err := svc.DeleteCategory(ctx, accu.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if got := view.Items(); len(got) != 0 {
		t.Fatalf("view kept match after category delete: %+v", got)
	}
}
