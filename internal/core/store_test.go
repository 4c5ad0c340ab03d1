package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"motoriz/internal/infra/persistence/memory"
	"motoriz/pkg/domain"
)

type item struct {
	ID    domain.ID
	Name  string
	Stock int64
}

func (i item) RecordID() domain.ID { return i.ID }
func (i item) WithID(id domain.ID) item { i.ID = id; return i }

func newItemStore(t *testing.T, seed ...item) (*Store[item], *memory.Backend[item]) {
	t.Helper()
	backend := memory.New(seed...)
	store := NewStore[item]("item", backend, StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store, backend
}

func TestStoreCreateAppendsWithFreshID(t *testing.T) {
	store, _ := newItemStore(t, item{ID: 1, Name: "Accu A", Stock: 2}, item{ID: 2, Name: "Ban B", Stock: 20})
	created, err := store.Create(context.Background(), item{Name: "Kampas C", Stock: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	list := store.List()
	if len(list) != 3 || list[2].ID != created.ID {
		t.Fatalf("expected record appended at the end, got %+v", list)
	}
	count := 0
	for _, rec := range list {
		if rec.ID == created.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one record with id %d, got %d", created.ID, count)
	}
	if created.ID != 3 {
		t.Fatalf("expected id 3, got %d", created.ID)
	}
}

func TestStoreNeverReusesDeletedIDs(t *testing.T) {
	store, _ := newItemStore(t)
	ctx := context.Background()
	a, _ := store.Create(ctx, item{Name: "a"})
	b, _ := store.Create(ctx, item{Name: "b"})
	if err := store.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c, err := store.Create(ctx, item{Name: "c"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == b.ID || c.ID == a.ID {
		t.Fatalf("id %d reused", c.ID)
	}
}

func TestStoreUpdatePreservesPositionAndLength(t *testing.T) {
	store, _ := newItemStore(t, item{ID: 1, Name: "a"}, item{ID: 2, Name: "b"}, item{ID: 3, Name: "c"})
	before := store.Len()
	updated, err := store.Update(context.Background(), 2, item{ID: 77, Name: "b2", Stock: 9})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != 2 {
		t.Fatalf("update must keep the id, got %d", updated.ID)
	}
	list := store.List()
	if len(list) != before {
		t.Fatalf("length changed from %d to %d", before, len(list))
	}
	if list[1].ID != 2 || list[1].Name != "b2" || list[1].Stock != 9 {
		t.Fatalf("expected record 2 updated in place, got %+v", list)
	}
}

func TestStoreMissingIDSignalsNotFound(t *testing.T) {
	store, backend := newItemStore(t, item{ID: 1, Name: "a"})
	ctx := context.Background()
	snapshot := store.List()
	if _, err := store.Update(ctx, 99, item{Name: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	err := store.Delete(ctx, 99)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != 99 || nf.Entity != "item" {
		t.Fatalf("expected NotFoundError for 99, got %v", err)
	}
	if got := store.List(); len(got) != len(snapshot) || got[0] != snapshot[0] {
		t.Fatalf("collection changed: %+v", got)
	}
	if backend.Len() != 1 {
		t.Fatalf("backend must not be touched for missing ids")
	}
}

func TestStoreBackendFailureLeavesStateUnchanged(t *testing.T) {
	store, backend := newItemStore(t, item{ID: 1, Name: "a"})
	ctx := context.Background()
	netErr := &domain.NetworkError{Op: "POST", URL: "http://api/items", StatusCode: 503}
	version := store.Version()

	backend.FailNext(netErr)
	if _, err := store.Create(ctx, item{Name: "b"}); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	backend.FailNext(netErr)
	if _, err := store.Update(ctx, 1, item{Name: "changed"}); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	backend.FailNext(netErr)
	if err := store.Delete(ctx, 1); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	list := store.List()
	if len(list) != 1 || list[0].Name != "a" {
		t.Fatalf("failed remote calls must not change local state: %+v", list)
	}
	if store.Version() != version {
		t.Fatalf("version bumped on failure")
	}
	next, err := store.Create(ctx, item{Name: "b"})
	if err != nil {
		t.Fatalf("create after failure: %v", err)
	}
	if next.ID != 2 {
		t.Fatalf("failed create must not consume an id, got %d", next.ID)
	}
}

func TestStoreLoadUsesBackendHighWater(t *testing.T) {
	backend := memory.New(item{ID: 5, Name: "e"})
	_ = backend.Delete(context.Background(), 5)
	store := NewStore[item]("item", backend, StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	created, err := store.Create(context.Background(), item{Name: "f"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 6 {
		t.Fatalf("expected id above persisted high water, got %d", created.ID)
	}
}

// reloadBackend answers the next Load with a fixed result.
type reloadBackend struct {
	*memory.Backend[item]
	next []item
}

func (b *reloadBackend) Load(ctx context.Context) ([]item, domain.ID, error) {
	if b.next != nil {
		return b.next, 0, nil
	}
	return b.Backend.Load(ctx)
}

func TestStoreFailedReloadKeepsPreviousState(t *testing.T) {
	backend := &reloadBackend{Backend: memory.New(item{ID: 1, Name: "a"}, item{ID: 2, Name: "b"})}
	store := NewStore[item]("item", backend, StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	version := store.Version()

	backend.next = []item{{ID: 7, Name: "x"}, {ID: 7, Name: "y"}}
	err := store.Load(context.Background())
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
	if store.Len() != 2 || store.Version() != version {
		t.Fatalf("failed reload changed state: len=%d version=%d", store.Len(), store.Version())
	}
	if _, ok := store.Get(7); ok {
		t.Fatalf("record from failed reload leaked into the store")
	}
	if got, ok := store.Get(2); !ok || got.Name != "b" {
		t.Fatalf("previous record lost: %+v %v", got, ok)
	}
	created, err := store.Create(context.Background(), item{Name: "c"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 3 {
		t.Fatalf("high water moved by failed reload, got id %d", created.ID)
	}
}

func TestStoreSeedOnlyWhenEmpty(t *testing.T) {
	store, _ := newItemStore(t)
	ctx := context.Background()
	seeded, err := store.Seed(ctx, []item{{ID: 10, Name: "a"}, {ID: 11, Name: "b"}})
	if err != nil || !seeded {
		t.Fatalf("seed: %v %v", seeded, err)
	}
	if again, _ := store.Seed(ctx, []item{{ID: 20, Name: "c"}}); again {
		t.Fatalf("seed must skip a populated collection")
	}
	if got, _ := store.Create(ctx, item{Name: "d"}); got.ID != 12 {
		t.Fatalf("expected id after seeded ids, got %d", got.ID)
	}
}

func TestStoreStampsCreationTime(t *testing.T) {
	fixed := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	backend := memory.New[domain.Category]()
	store := NewStore[domain.Category](domain.EntityCategory, backend, StoreConfig{Clock: ClockFunc(func() time.Time { return fixed })})
	ctx := context.Background()
	c, err := store.Create(ctx, domain.Category{Name: "Accu"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.CreatedAt.Equal(fixed) {
		t.Fatalf("expected created at %v, got %v", fixed, c.CreatedAt)
	}
	u, err := store.Update(ctx, c.ID, domain.Category{Name: "Aki"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !u.CreatedAt.Equal(fixed) || u.Name != "Aki" {
		t.Fatalf("creation time must survive updates: %+v", u)
	}
}

func TestStorePublishesChanges(t *testing.T) {
	feed := NewChangeFeed()
	ch, cancel := feed.Subscribe(8)
	defer cancel()
	store := NewStore[item]("item", memory.New[item](), StoreConfig{Feed: feed})
	ctx := context.Background()
	created, _ := store.Create(ctx, item{Name: "a"})
	_, _ = store.Update(ctx, created.ID, item{Name: "b"})
	_ = store.Delete(ctx, created.ID)

	want := []domain.Action{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete}
	for _, action := range want {
		select {
		case c := <-ch:
			if c.Action != action || c.ID != created.ID || c.Entity != "item" {
				t.Fatalf("unexpected change %+v, want %s", c, action)
			}
			if action == domain.ActionUpdate {
				var before, after item
				if err := c.Before.Decode(&before); err != nil || before.Name != "a" {
					t.Fatalf("before snapshot %+v %v", before, err)
				}
				if err := c.After.Decode(&after); err != nil || after.Name != "b" {
					t.Fatalf("after snapshot %+v %v", after, err)
				}
			}
			if action == domain.ActionDelete && !c.After.IsZero() {
				t.Fatalf("delete carries no after snapshot")
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s change", action)
		}
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	backend := memory.New(domain.Product{ID: 1, Name: "Helm", Images: []string{"a.jpg"}})
	store := NewStore[domain.Product](domain.EntityProduct, backend, StoreConfig{})
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	list := store.List()
	list[0].Images[0] = "mutated.jpg"
	got, _ := store.Get(1)
	if got.Images[0] != "a.jpg" {
		t.Fatalf("store state leaked through List")
	}
}
