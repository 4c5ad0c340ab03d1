package core

import (
	"context"
	"errors"
	"sort"
	"strings"

	"motoriz/internal/infra/persistence/memory"
	"motoriz/pkg/domain"
)

// MotorProductType is the product type whose stock counts as motor units on
// the dashboard.
const MotorProductType = "Motor Listrik"

// Backends bundles one backend per collection.
type Backends struct {
	Products     domain.Backend[domain.Product]
	Categories   domain.Backend[domain.Category]
	ProductTypes domain.Backend[domain.ProductType]
	Services     domain.Backend[domain.Service]
	Trainings    domain.Backend[domain.Training]
	News         domain.Backend[domain.NewsArticle]
	Reservations domain.Backend[domain.Reservation]
}

// MemoryBackends returns process-local backends for every collection.
func MemoryBackends() Backends {
	return Backends{
		Products:     memory.New[domain.Product](),
		Categories:   memory.New[domain.Category](),
		ProductTypes: memory.New[domain.ProductType](),
		Services:     memory.New[domain.Service](),
		Trainings:    memory.New[domain.Training](),
		News:         memory.New[domain.NewsArticle](),
		Reservations: memory.New[domain.Reservation](),
	}
}

func (b Backends) validate() error {
	switch {
	case b.Products == nil, b.Categories == nil, b.ProductTypes == nil, b.Services == nil,
		b.Trainings == nil, b.News == nil, b.Reservations == nil:
		return errors.New("every collection needs a backend")
	}
	return nil
}

// SeedData holds sample records applied to empty collections.
type SeedData struct {
	ProductTypes []domain.ProductType `json:"productTypes"`
	Categories   []domain.Category    `json:"categories"`
	Products     []domain.Product     `json:"products"`
	Services     []domain.Service     `json:"services"`
	Trainings    []domain.Training    `json:"trainings"`
	News         []domain.NewsArticle `json:"news"`
	Reservations []domain.Reservation `json:"reservations"`
}

// Service owns one Store per collection plus the cross-collection queries the
// dashboard and product pages need.
type Service struct {
	Products     *Store[domain.Product]
	Categories   *Store[domain.Category]
	ProductTypes *Store[domain.ProductType]
	Services     *Store[domain.Service]
	Trainings    *Store[domain.Training]
	News         *Store[domain.NewsArticle]
	Reservations *Store[domain.Reservation]

	feed *ChangeFeed
	opts options
}

// NewService wires stores over the given backends. Call Open before use.
func NewService(b Backends, opts ...Option) (*Service, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ids, err := NewIDGenerator(o.idStrategy, o.clock)
	if err != nil {
		return nil, err
	}
	feed := NewChangeFeed()
	cfg := StoreConfig{IDs: ids, Clock: o.clock, Feed: feed, Metrics: o.metrics, Logger: o.logger}
	return &Service{
		Products:     NewStore(domain.EntityProduct, b.Products, cfg),
		Categories:   NewStore(domain.EntityCategory, b.Categories, cfg),
		ProductTypes: NewStore(domain.EntityProductType, b.ProductTypes, cfg),
		Services:     NewStore(domain.EntityService, b.Services, cfg),
		Trainings:    NewStore(domain.EntityTraining, b.Trainings, cfg),
		News:         NewStore(domain.EntityNews, b.News, cfg),
		Reservations: NewStore(domain.EntityReservation, b.Reservations, cfg),
		feed:         feed,
		opts:         o,
	}, nil
}

// NewInMemoryService returns an opened service over memory backends.
func NewInMemoryService(ctx context.Context, opts ...Option) (*Service, error) {
	svc, err := NewService(MemoryBackends(), opts...)
	if err != nil {
		return nil, err
	}
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// Open hydrates every store from its backend and applies seed data to the
// collections that came back empty.
func (s *Service) Open(ctx context.Context) error {
	loaders := []interface{ Load(context.Context) error }{
		s.ProductTypes, s.Categories, s.Products, s.Services, s.Trainings, s.News, s.Reservations,
	}
	for _, l := range loaders {
		if err := l.Load(ctx); err != nil {
			return err
		}
	}
	if s.opts.seed == nil {
		return nil
	}
	seed := s.opts.seed
	if _, err := s.ProductTypes.Seed(ctx, seed.ProductTypes); err != nil {
		return err
	}
	if _, err := s.Categories.Seed(ctx, seed.Categories); err != nil {
		return err
	}
	if _, err := s.Products.Seed(ctx, seed.Products); err != nil {
		return err
	}
	if _, err := s.Services.Seed(ctx, seed.Services); err != nil {
		return err
	}
	if _, err := s.Trainings.Seed(ctx, seed.Trainings); err != nil {
		return err
	}
	if _, err := s.News.Seed(ctx, seed.News); err != nil {
		return err
	}
	if _, err := s.Reservations.Seed(ctx, seed.Reservations); err != nil {
		return err
	}
	return nil
}

// Changes returns the feed every store publishes to.
func (s *Service) Changes() *ChangeFeed { return s.feed }

// Logger returns the configured logger.
func (s *Service) Logger() Logger { return s.opts.logger }

// Clock returns the configured clock.
func (s *Service) Clock() Clock { return s.opts.clock }

// Metrics returns the configured metrics, possibly nil.
func (s *Service) Metrics() *Metrics { return s.opts.metrics }

// QueryProducts lists products narrowed by q.
func (s *Service) QueryProducts(q ProductQuery) []domain.Product {
	return FilterProducts(s.Products.List(), q, s.Categories)
}

// CategoryName returns the name of the product's category or "" when the
// category no longer exists.
func (s *Service) CategoryName(id domain.ID) string {
	if c, ok := s.Categories.Get(id); ok {
		return c.Name
	}
	return ""
}

// ProductTypeName returns the name of the product's effective product type.
func (s *Service) ProductTypeName(p domain.Product) string {
	if pt, ok := s.ProductTypes.Get(ProductTypeOf(p, s.Categories)); ok {
		return pt.Name
	}
	return ""
}

// DeleteCategory removes a category. Products that reference it keep their
// categoryId; OrphanedProducts reports them afterwards.
func (s *Service) DeleteCategory(ctx context.Context, id domain.ID) error {
	if err := s.Categories.Delete(ctx, id); err != nil {
		return err
	}
	if n := len(Where(s.Products.List(), func(p domain.Product) bool { return p.CategoryID == id })); n > 0 {
		s.opts.logger.Warn("category deleted with referencing products", "category_id", id, "products", n)
	}
	return nil
}

// OrphanedProducts returns the products whose category does not exist.
func (s *Service) OrphanedProducts() []domain.Product {
	return Where(s.Products.List(), func(p domain.Product) bool {
		_, ok := s.Categories.Get(p.CategoryID)
		return !ok
	})
}

// LowStockItem is one row of the dashboard stock widget.
type LowStockItem struct {
	ID    domain.ID `json:"id"`
	Name  string    `json:"name"`
	Stock int64     `json:"stock"`
}

// DashboardStats are the counters shown on the dashboard.
type DashboardStats struct {
	TotalMotor        int64          `json:"totalMotor"`
	TotalProducts     int            `json:"totalProduk"`
	TotalServices     int            `json:"totalLayanan"`
	TotalReservations int            `json:"totalReservasi"`
	LowStock          []LowStockItem `json:"lowStock"`
}

// Dashboard computes the dashboard counters from the current collections.
func (s *Service) Dashboard() DashboardStats {
	products := s.Products.List()
	stats := DashboardStats{
		TotalProducts:     len(products),
		TotalServices:     s.Services.Len(),
		TotalReservations: s.Reservations.Len(),
		LowStock:          s.LowStock(),
	}
	for _, p := range products {
		if strings.EqualFold(s.ProductTypeName(p), MotorProductType) {
			stats.TotalMotor += p.Stock
		}
	}
	return stats
}

// LowStock returns products at or below the low stock threshold, lowest
// stock first.
func (s *Service) LowStock() []LowStockItem {
	items := []LowStockItem{}
	for _, p := range s.Products.List() {
		if p.Stock <= s.opts.lowStock {
			items = append(items, LowStockItem{ID: p.ID, Name: p.Name, Stock: p.Stock})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Stock < items[j].Stock })
	return items
}
