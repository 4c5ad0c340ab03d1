package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"motoriz/internal/infra/persistence/sqlstore"
	"motoriz/pkg/domain"
)

func TestOpenPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "motoriz.db")
	db, err := Open(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	products := sqlstore.For[domain.Product](db, domain.EntityProduct)
	if _, err := products.Create(ctx, domain.Product{ID: 1, Name: "GS Astra Premium N50", Price: 770000, Stock: 15, Images: []string{"sparepat.jpg"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	recs, highWater, err := sqlstore.For[domain.Product](reopened, domain.EntityProduct).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "GS Astra Premium N50" || len(recs[0].Images) != 1 {
		t.Fatalf("unexpected records after reopen: %+v", recs)
	}
	if highWater != 1 {
		t.Fatalf("expected high water 1, got %d", highWater)
	}
}
