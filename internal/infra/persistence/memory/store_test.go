package memory

import (
	"context"
	"errors"
	"testing"

	"motoriz/pkg/domain"
)

func TestBackendKeepsHighWaterAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	b := New(domain.Service{ID: 1, Name: "Tune Up"}, domain.Service{ID: 4, Name: "Kelistrikan"})
	if _, err := b.Create(ctx, domain.Service{ID: 5, Name: "Konversi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.Delete(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, hw, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 || hw != 5 {
		t.Fatalf("expected 2 records and high water 5, got %d %d", len(recs), hw)
	}
	if recs[0].ID != 1 || recs[1].ID != 4 {
		t.Fatalf("insertion order lost: %+v", recs)
	}
}

func TestBackendUpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	b := New(domain.Training{ID: 1, Name: "Perawatan"})
	got, err := b.Update(ctx, domain.Training{ID: 1, Name: "Perawatan Motor Mandiri"})
	if err != nil || got.Name != "Perawatan Motor Mandiri" {
		t.Fatalf("update: %+v %v", got, err)
	}
	if _, err := b.Update(ctx, domain.Training{ID: 9}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := b.Delete(ctx, 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBackendFailNextAppliesOnce(t *testing.T) {
	ctx := context.Background()
	b := New[domain.Category]()
	boom := errors.New("offline")
	b.FailNext(boom)
	if _, err := b.Create(ctx, domain.Category{ID: 1, Name: "Accu"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("failed create must not store")
	}
	if _, err := b.Create(ctx, domain.Category{ID: 1, Name: "Accu"}); err != nil {
		t.Fatalf("second create: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", b.Len())
	}
}

func TestLoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := New(domain.Product{ID: 1, Images: []string{"a.jpg"}})
	recs, _, _ := b.Load(ctx)
	recs[0].Images[0] = "b.jpg"
	again, _, _ := b.Load(ctx)
	if again[0].Images[0] != "a.jpg" {
		t.Fatal("Load leaked internal state")
	}
}
